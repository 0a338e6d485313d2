package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/vivah/internal/app"
	tokens "github.com/oggyb/vivah/internal/auth"
	"github.com/oggyb/vivah/internal/db"
	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/notify"
	"github.com/oggyb/vivah/internal/repository"
	"github.com/oggyb/vivah/internal/service/dto"
	"github.com/oggyb/vivah/internal/service/profile"
	"github.com/oggyb/vivah/internal/validation"
)

// RegisterInput is the self-service sign-up form.
type RegisterInput struct {
	Email         string `json:"email" validate:"required,email,max=255"`
	Phone         string `json:"phone" validate:"required,phone"`
	Password      string `json:"password" validate:"required,min=8,max=72"`
	Name          string `json:"name" validate:"required,min=2,max=100"`
	Gender        string `json:"gender" validate:"required,gender"`
	DateOfBirth   string `json:"dateOfBirth" validate:"required"`
	MaritalStatus string `json:"maritalStatus" validate:"required,marital"`
	Height        string `json:"height" validate:"required,max=16"`
	City          string `json:"city" validate:"required,max=100"`
	State         string `json:"state" validate:"required,max=100"`
	Country       string `json:"country" validate:"required,max=100"`
	Religion      string `json:"religion" validate:"max=64"`
	Caste         string `json:"caste" validate:"max=64"`
	SubCaste      string `json:"subCaste" validate:"max=64"`
	MotherTongue  string `json:"motherTongue" validate:"max=64"`
	Education     string `json:"education" validate:"education"`
	Profession    string `json:"profession" validate:"profession"`
	AnnualIncome  string `json:"annualIncome" validate:"income"`
	Complexion    string `json:"complexion" validate:"complexion"`
	FoodHabits    string `json:"foodHabits" validate:"foodhabits"`
	Bio           string `json:"bio" validate:"max=500"`
}

type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      dto.SelfProfile `json:"user"`
}

// Options sets token lifetimes.
type Options struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

// Service owns registration, login and the email-verification and
// password-reset token lifecycles.
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	jwt      *tokens.JWTService
	notifier *notify.Dispatcher
	opts     Options
	now      func() time.Time
}

func NewAuthService(appCtx *app.AppContext, jwt *tokens.JWTService, notifier *notify.Dispatcher, opts Options) *Service {
	if opts.VerificationTTL <= 0 {
		opts.VerificationTTL = 24 * time.Hour
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		jwt:      jwt,
		notifier: notifier,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an unverified identity and sends its verification token.
//
// Behavior:
//   - Email and phone must be unused by every identity that is not deleted.
//     The pre-check gives a precise message; the unique key columns settle races.
//   - The new identity cannot log in until VerifyEmail succeeds.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*dto.SelfProfile, error) {
	s.appCtx.Logger.Debug("Register called", "email", in.Email)

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	now := s.now()
	dob, err := profile.ParseDateOfBirth(in.DateOfBirth, now)
	if err != nil {
		return nil, err
	}

	email, phone := repository.Keys(in.Email, in.Phone)
	if taken, err := s.users.EmailTaken(ctx, *email, ""); err != nil {
		return nil, svcErr.Map(err)
	} else if taken {
		return nil, svcErr.Conflict("email already registered")
	}
	if taken, err := s.users.PhoneTaken(ctx, *phone, ""); err != nil {
		return nil, svcErr.Map(err)
	} else if taken {
		return nil, svcErr.Conflict("phone already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, svcErr.Internal(err)
	}
	token, err := newToken()
	if err != nil {
		return nil, svcErr.Internal(err)
	}
	expires := now.Add(s.opts.VerificationTTL)

	u := &db.User{
		Email:                 *email,
		EmailKey:              email,
		Phone:                 *phone,
		PhoneKey:              phone,
		PasswordHash:          string(hash),
		Role:                  db.RoleUser,
		Name:                  strings.TrimSpace(in.Name),
		Gender:                in.Gender,
		DateOfBirth:           dob,
		MaritalStatus:         in.MaritalStatus,
		Height:                strings.TrimSpace(in.Height),
		City:                  strings.TrimSpace(in.City),
		State:                 strings.TrimSpace(in.State),
		Country:               strings.TrimSpace(in.Country),
		Religion:              strings.TrimSpace(in.Religion),
		Caste:                 strings.TrimSpace(in.Caste),
		SubCaste:              strings.TrimSpace(in.SubCaste),
		MotherTongue:          strings.TrimSpace(in.MotherTongue),
		Education:             in.Education,
		Profession:            in.Profession,
		AnnualIncome:          in.AnnualIncome,
		Complexion:            in.Complexion,
		FoodHabits:            in.FoodHabits,
		Bio:                   strings.TrimSpace(in.Bio),
		Photos:                []string{},
		VerificationToken:     &token,
		VerificationExpiresAt: &expires,
		IsActive:              true,
		AccountStatus:         db.AccountActive,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.Conflict("email or phone already registered")
		}
		s.appCtx.Logger.Error("Create user failed", "err", err)
		return nil, svcErr.Map(err)
	}

	s.appCtx.Metrics.IncrementUsersRegistered()
	s.sendVerification(u, token)

	out := dto.NewSelfProfile(u, now)
	return &out, nil
}

// VerifyEmail consumes a verification token.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	s.appCtx.Logger.Debug("VerifyEmail called")

	u, err := s.users.GetByVerificationToken(ctx, strings.TrimSpace(token))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("invalid verification token")
	} else if err != nil {
		return svcErr.Map(err)
	}
	if u.VerificationExpiresAt == nil || s.now().After(*u.VerificationExpiresAt) {
		return svcErr.InvalidState("verification token has expired")
	}

	return svcErr.Map(s.users.Update(ctx, u.ID, map[string]any{
		"is_email_verified":       true,
		"verification_token":      nil,
		"verification_expires_at": nil,
	}))
}

// ResendVerification issues a fresh token for an unverified identity.
// Unknown or already verified addresses succeed silently.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	s.appCtx.Logger.Debug("ResendVerification called", "email", email)

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	} else if err != nil {
		return svcErr.Map(err)
	}
	if u.IsEmailVerified {
		return nil
	}

	token, err := newToken()
	if err != nil {
		return svcErr.Internal(err)
	}
	expires := s.now().Add(s.opts.VerificationTTL)
	if err := s.users.Update(ctx, u.ID, map[string]any{
		"verification_token":      token,
		"verification_expires_at": expires,
	}); err != nil {
		return svcErr.Map(err)
	}
	s.sendVerification(u, token)
	return nil
}

// Login checks credentials and issues an access token.
//
// Behavior:
//   - Unknown email and wrong password give the same Unauthorized error.
//   - Deactivated or deleted accounts are Unauthorized.
//   - Correct credentials on an unverified account are InvalidState.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	s.appCtx.Logger.Debug("Login called", "email", email)

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.Unauthorized("invalid email or password")
	} else if err != nil {
		return nil, svcErr.Map(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.appCtx.Logger.Warn("login failed", "user", u.ID)
		return nil, svcErr.Unauthorized("invalid email or password")
	}
	if !u.IsActive || u.AccountStatus != db.AccountActive {
		return nil, svcErr.Unauthorized("account is not active")
	}
	if !u.IsEmailVerified {
		return nil, svcErr.InvalidState("email not verified")
	}

	token, expires, err := s.jwt.GenerateAccessToken(u.ID, u.Role)
	if err != nil {
		return nil, svcErr.Internal(err)
	}

	now := s.now()
	if err := s.users.Update(ctx, u.ID, map[string]any{"last_login_at": now}); err != nil {
		s.appCtx.Logger.Warn("last login update failed", "user", u.ID, "err", err)
	} else {
		u.LastLoginAt = &now
	}

	return &LoginResult{Token: token, ExpiresAt: expires, User: dto.NewSelfProfile(u, now)}, nil
}

// ForgotPassword issues a reset token when the address belongs to an
// account. The outcome is the same either way.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	s.appCtx.Logger.Debug("ForgotPassword called", "email", email)

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	} else if err != nil {
		return svcErr.Map(err)
	}
	if u.AccountStatus == db.AccountDeleted {
		return nil
	}

	token, err := newToken()
	if err != nil {
		return svcErr.Internal(err)
	}
	expires := s.now().Add(s.opts.ResetTTL)
	if err := s.users.Update(ctx, u.ID, map[string]any{
		"reset_token":      token,
		"reset_expires_at": expires,
	}); err != nil {
		return svcErr.Map(err)
	}

	s.notifier.Send(notify.Notification{
		Kind:    notify.KindPasswordReset,
		UserID:  u.ID,
		Email:   u.Email,
		Subject: "Reset your password",
		Data:    map[string]string{"token": token},
	})
	return nil
}

// ResetPassword consumes a reset token and replaces the credential.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	s.appCtx.Logger.Debug("ResetPassword called")

	if n := len(newPassword); n < 8 || n > 72 {
		return svcErr.Validation("password: must be between 8 and 72 characters")
	}
	u, err := s.users.GetByResetToken(ctx, strings.TrimSpace(token))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.NotFound("invalid reset token")
	} else if err != nil {
		return svcErr.Map(err)
	}
	if u.ResetExpiresAt == nil || s.now().After(*u.ResetExpiresAt) {
		return svcErr.InvalidState("reset token has expired")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return svcErr.Internal(err)
	}
	return svcErr.Map(s.users.Update(ctx, u.ID, map[string]any{
		"password_hash":    string(hash),
		"reset_token":      nil,
		"reset_expires_at": nil,
	}))
}

func (s *Service) sendVerification(u *db.User, token string) {
	s.notifier.Send(notify.Notification{
		Kind:    notify.KindVerifyEmail,
		UserID:  u.ID,
		Email:   u.Email,
		Subject: "Verify your email",
		Data:    map[string]string{"token": token},
	})
}

// newToken returns 32 random bytes, hex encoded.
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
