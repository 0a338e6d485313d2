// Package testutil wires in-memory stores for package tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/vivah/internal/app"
	"github.com/oggyb/vivah/internal/cache"
	"github.com/oggyb/vivah/internal/config"
	"github.com/oggyb/vivah/internal/db"
)

// Password is the plaintext credential of every user created by NewUser.
const Password = "secret-pass-1"

var passwordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

// NewDB opens a migrated, per-test in-memory sqlite database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	database, err := db.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	// one connection keeps the shared in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return database
}

// NewRedis starts a miniredis and returns a cache bound to it.
func NewRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

// DiscardLogger drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewAppContext bundles a fresh DB, miniredis and a silent logger.
func NewAppContext(t *testing.T) (*app.AppContext, *miniredis.Miniredis) {
	t.Helper()
	rc, mr := NewRedis(t)
	return app.New(NewDB(t), rc, DiscardLogger()), mr
}

// UserOption tweaks a user before insertion.
type UserOption func(*db.User)

func WithGender(g string) UserOption { return func(u *db.User) { u.Gender = g } }

func Unverified() UserOption { return func(u *db.User) { u.IsEmailVerified = false } }

func Inactive() UserOption {
	return func(u *db.User) {
		u.IsActive = false
		u.AccountStatus = db.AccountInactive
	}
}

func AsAdmin() UserOption { return func(u *db.User) { u.Role = db.RoleAdmin } }

func WithProfile(fn func(*db.User)) UserOption { return UserOption(fn) }

// NewUser inserts an active, verified user with the given id. Email and phone
// are derived from the id so several users never collide.
func NewUser(t *testing.T, database *gorm.DB, id string, opts ...UserOption) *db.User {
	t.Helper()
	email := id + "@example.com"
	phone := "+91" + fmt.Sprintf("%010d", hash(id))
	u := &db.User{
		ID:              id,
		Email:           email,
		EmailKey:        &email,
		Phone:           phone,
		PhoneKey:        &phone,
		PasswordHash:    passwordHash,
		Role:            db.RoleUser,
		Name:            "User " + id,
		Gender:          db.GenderMale,
		DateOfBirth:     time.Date(1995, 6, 15, 0, 0, 0, 0, time.UTC),
		MaritalStatus:   "never_married",
		Height:          "5'8\"",
		City:            "Pune",
		State:           "Maharashtra",
		Country:         "India",
		Religion:        "hindu",
		IsEmailVerified: true,
		IsActive:        true,
		AccountStatus:   db.AccountActive,
	}
	for _, opt := range opts {
		opt(u)
	}
	require.NoError(t, database.WithContext(context.Background()).Create(u).Error)
	return u
}

// Accepted inserts an accepted interest from sender to receiver.
func Accepted(t *testing.T, database *gorm.DB, senderID, receiverID string) *db.Interest {
	t.Helper()
	in := &db.Interest{SenderID: senderID, ReceiverID: receiverID, Status: db.InterestAccepted}
	require.NoError(t, database.Create(in).Error)
	return in
}

func hash(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
