package admin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/vivah/internal/db"
	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/repository"
	"github.com/oggyb/vivah/internal/service/admin"
	"github.com/oggyb/vivah/internal/service/profile"
	"github.com/oggyb/vivah/internal/testutil"
)

func str(s string) *string { return &s }

func TestListAndGetUsers(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	testutil.NewUser(t, appCtx.DB, "u1", testutil.WithProfile(func(u *db.User) { u.Name = "Asha Rao" }))
	testutil.NewUser(t, appCtx.DB, "u2", testutil.Inactive())
	testutil.NewUser(t, appCtx.DB, "u3", testutil.Unverified())
	svc := admin.NewAdminService(appCtx, nil, nil)

	all, err := svc.ListUsers(ctx, admin.ListInput{})
	require.NoError(t, err)
	assert.Len(t, all.Users, 3, "admin sees hidden accounts too")

	inactive, err := svc.ListUsers(ctx, admin.ListInput{Status: db.AccountInactive})
	require.NoError(t, err)
	require.Len(t, inactive.Users, 1)
	assert.Equal(t, "u2", inactive.Users[0].ID)

	byName, err := svc.ListUsers(ctx, admin.ListInput{Query: "asha"})
	require.NoError(t, err)
	require.Len(t, byName.Users, 1)
	assert.Equal(t, "u1", byName.Users[0].ID)

	page, err := svc.ListUsers(ctx, admin.ListInput{Limit: 2})
	require.NoError(t, err)
	require.NotNil(t, page.NextCursor)
	rest, err := svc.ListUsers(ctx, admin.ListInput{Limit: 2, Cursor: *page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, rest.Users, 1)

	_, err = svc.ListUsers(ctx, admin.ListInput{Status: "banned"})
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))

	_, err = svc.GetUser(ctx, "missing")
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	testutil.NewUser(t, appCtx.DB, "u1")
	testutil.NewUser(t, appCtx.DB, "u2")
	svc := admin.NewAdminService(appCtx, nil, nil)

	out, err := svc.UpdateUser(ctx, "u1", admin.UserPatch{
		Patch:  profile.Patch{City: str("Nagpur")},
		Email:  str("New@Example.com"),
		Gender: str(db.GenderFemale),
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", out.Email)
	assert.Equal(t, db.GenderFemale, out.Gender)
	assert.Equal(t, "Nagpur", out.City)

	found, err := repository.NewUserRepository(appCtx.DB).GetByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", found.ID)

	_, err = svc.UpdateUser(ctx, "u1", admin.UserPatch{Email: str("u2@example.com")})
	assert.True(t, svcErr.IsKind(err, svcErr.KindConflict))

	_, err = svc.UpdateUser(ctx, "u1", admin.UserPatch{Gender: str("other")})
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))
}

func TestAccountStatusAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	u1 := testutil.NewUser(t, appCtx.DB, "u1")
	svc := admin.NewAdminService(appCtx, nil, nil)

	out, err := svc.SetAccountStatus(ctx, "u1", db.AccountInactive)
	require.NoError(t, err)
	assert.False(t, out.IsActive)
	assert.Equal(t, db.AccountInactive, out.AccountStatus)

	out, err = svc.SetAccountStatus(ctx, "u1", db.AccountActive)
	require.NoError(t, err)
	assert.True(t, out.IsActive)

	_, err = svc.SetAccountStatus(ctx, "u1", db.AccountDeleted)
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))

	out, err = svc.SoftDeleteUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, db.AccountDeleted, out.AccountStatus)
	assert.False(t, out.IsActive)

	var stored db.User
	require.NoError(t, appCtx.DB.First(&stored, "id = ?", "u1").Error)
	assert.Nil(t, stored.EmailKey)
	assert.Nil(t, stored.PhoneKey)
	assert.Nil(t, stored.VerificationToken)
	assert.Nil(t, stored.ResetToken)

	// the freed email can be taken by a new account
	testutil.NewUser(t, appCtx.DB, "u1b", testutil.WithProfile(func(u *db.User) {
		u.Email, u.EmailKey = u1.Email, u1.EmailKey
	}))

	_, err = svc.SetAccountStatus(ctx, "u1", db.AccountActive)
	assert.True(t, svcErr.IsKind(err, svcErr.KindInvalidState))
}

func TestHardDeleteUser_Cascades(t *testing.T) {
	ctx := context.Background()
	appCtx, mr := testutil.NewAppContext(t)
	testutil.NewUser(t, appCtx.DB, "u1")
	testutil.NewUser(t, appCtx.DB, "u2")
	testutil.NewUser(t, appCtx.DB, "u3")
	testutil.Accepted(t, appCtx.DB, "u1", "u2")
	require.NoError(t, appCtx.DB.Create(&db.Interest{SenderID: "u1", ReceiverID: "u3", Status: db.InterestPending}).Error)
	require.NoError(t, appCtx.DB.Create(&db.Shortlist{UserID: "u3", ShortlistedUserID: "u1"}).Error)
	require.NoError(t, appCtx.DB.Create(&db.Message{SenderID: "u2", ReceiverID: "u1", Content: "hi"}).Error)
	require.NoError(t, appCtx.DB.Create(&db.Message{SenderID: "u2", ReceiverID: "u3", Content: "stays"}).Error)
	require.NoError(t, appCtx.RedisCache.SetPendingCount(ctx, "u3", 1))

	svc := admin.NewAdminService(appCtx, nil, nil)
	deleted, err := svc.HardDeleteUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", deleted.ID)

	var n int64
	require.NoError(t, appCtx.DB.Model(&db.Interest{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, appCtx.DB.Model(&db.Shortlist{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, appCtx.DB.Model(&db.Message{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	assert.False(t, mr.Exists(appCtx.RedisCache.KeyForPendingCount("u3")))

	_, err = svc.HardDeleteUser(ctx, "u1")
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.UsersByStatus[db.AccountActive])
	assert.Equal(t, int64(1), stats.Messages)
	assert.Empty(t, stats.InterestsByStatus)
}
