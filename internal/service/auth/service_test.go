package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/vivah/internal/app"
	tokens "github.com/oggyb/vivah/internal/auth"
	"github.com/oggyb/vivah/internal/db"
	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/notify"
	"github.com/oggyb/vivah/internal/service/auth"
	"github.com/oggyb/vivah/internal/testutil"
)

type outbox struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (o *outbox) Notify(_ context.Context, n notify.Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, n)
	return nil
}

func (o *outbox) last(kind string) *notify.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].Kind == kind {
			n := o.sent[i]
			return &n
		}
	}
	return nil
}

type fixture struct {
	appCtx *app.AppContext
	svc    *auth.Service
	jwt    *tokens.JWTService
	box    *outbox
	disp   *notify.Dispatcher
}

func setup(t *testing.T) *fixture {
	t.Helper()
	appCtx, _ := testutil.NewAppContext(t)
	box := &outbox{}
	disp := notify.NewDispatcher(box, appCtx.Logger, appCtx.Metrics)
	jwt := tokens.NewJWTService("test-key", "vivah", time.Hour)
	return &fixture{
		appCtx: appCtx,
		svc:    auth.NewAuthService(appCtx, jwt, disp, auth.Options{}),
		jwt:    jwt,
		box:    box,
		disp:   disp,
	}
}

func validInput() auth.RegisterInput {
	return auth.RegisterInput{
		Email:         "Asha@Example.com",
		Phone:         "+91 98765-43210",
		Password:      "correct-horse",
		Name:          "Asha",
		Gender:        db.GenderFemale,
		DateOfBirth:   "1996-02-29",
		MaritalStatus: "never_married",
		Height:        "5'4\"",
		City:          "Pune",
		State:         "Maharashtra",
		Country:       "India",
		Education:     "masters",
	}
}

func TestRegisterVerifyLogin(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	self, err := f.svc.Register(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", self.Email)
	assert.Equal(t, "+919876543210", self.Phone)
	assert.False(t, self.IsEmailVerified)

	// unverified accounts cannot log in
	_, err = f.svc.Login(ctx, "asha@example.com", "correct-horse")
	assert.True(t, svcErr.IsKind(err, svcErr.KindInvalidState))

	f.disp.Wait()
	n := f.box.last(notify.KindVerifyEmail)
	require.NotNil(t, n)
	assert.Equal(t, self.ID, n.UserID)

	require.NoError(t, f.svc.VerifyEmail(ctx, n.Data["token"]))
	err = f.svc.VerifyEmail(ctx, n.Data["token"])
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound), "token is single use")

	_, err = f.svc.Login(ctx, "asha@example.com", "wrong-password")
	assert.True(t, svcErr.IsKind(err, svcErr.KindUnauthorized))
	_, err = f.svc.Login(ctx, "nobody@example.com", "correct-horse")
	assert.True(t, svcErr.IsKind(err, svcErr.KindUnauthorized))

	res, err := f.svc.Login(ctx, " ASHA@example.com ", "correct-horse")
	require.NoError(t, err)
	assert.NotNil(t, res.User.LastLoginAt)

	claims, err := f.jwt.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, self.ID, claims.UserID)
	assert.Equal(t, db.RoleUser, claims.Role)
}

func TestRegister_Rejects(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.svc.Register(ctx, validInput())
	require.NoError(t, err)

	dupEmail := validInput()
	dupEmail.Phone = "+91 90000-00000"
	_, err = f.svc.Register(ctx, dupEmail)
	assert.True(t, svcErr.IsKind(err, svcErr.KindConflict))
	assert.Equal(t, "email already registered", svcErr.PublicMessage(err))

	dupPhone := validInput()
	dupPhone.Email = "other@example.com"
	_, err = f.svc.Register(ctx, dupPhone)
	assert.True(t, svcErr.IsKind(err, svcErr.KindConflict))

	young := validInput()
	young.Email, young.Phone = "young@example.com", "+91 90000-00001"
	young.DateOfBirth = time.Now().UTC().AddDate(-17, 0, 0).Format(time.DateOnly)
	_, err = f.svc.Register(ctx, young)
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))

	bad := validInput()
	bad.Email, bad.Gender, bad.Password = "not-an-email", "robot", "short"
	_, err = f.svc.Register(ctx, bad)
	require.True(t, svcErr.IsKind(err, svcErr.KindValidation))
	msg := svcErr.PublicMessage(err)
	assert.Contains(t, msg, "email:")
	assert.Contains(t, msg, "gender:")
	assert.Contains(t, msg, "password:")
}

func TestRegister_ReusesKeysOfDeletedAccount(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	self, err := f.svc.Register(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, f.appCtx.DB.Model(&db.User{}).Where("id = ?", self.ID).Updates(map[string]any{
		"email_key": nil, "phone_key": nil, "is_active": false, "account_status": db.AccountDeleted,
	}).Error)

	again, err := f.svc.Register(ctx, validInput())
	require.NoError(t, err)
	assert.NotEqual(t, self.ID, again.ID)
}

func TestVerifyEmail_Expired(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	self, err := f.svc.Register(ctx, validInput())
	require.NoError(t, err)
	f.disp.Wait()
	token := f.box.last(notify.KindVerifyEmail).Data["token"]

	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, f.appCtx.DB.Model(&db.User{}).Where("id = ?", self.ID).
		Update("verification_expires_at", past).Error)

	err = f.svc.VerifyEmail(ctx, token)
	assert.True(t, svcErr.IsKind(err, svcErr.KindInvalidState))

	// a resend replaces the expired token
	require.NoError(t, f.svc.ResendVerification(ctx, "asha@example.com"))
	f.disp.Wait()
	fresh := f.box.last(notify.KindVerifyEmail).Data["token"]
	assert.NotEqual(t, token, fresh)
	require.NoError(t, f.svc.VerifyEmail(ctx, fresh))

	// verified and unknown addresses succeed silently
	require.NoError(t, f.svc.ResendVerification(ctx, "asha@example.com"))
	require.NoError(t, f.svc.ResendVerification(ctx, "ghost@example.com"))
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	testutil.NewUser(t, f.appCtx.DB, "u1")

	require.NoError(t, f.svc.ForgotPassword(ctx, "ghost@example.com"))
	require.NoError(t, f.svc.ForgotPassword(ctx, "u1@example.com"))
	f.disp.Wait()
	n := f.box.last(notify.KindPasswordReset)
	require.NotNil(t, n)
	assert.Equal(t, "u1", n.UserID)

	err := f.svc.ResetPassword(ctx, n.Data["token"], "short")
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))

	err = f.svc.ResetPassword(ctx, "unknown", "brand-new-pass")
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))

	require.NoError(t, f.svc.ResetPassword(ctx, n.Data["token"], "brand-new-pass"))

	_, err = f.svc.Login(ctx, "u1@example.com", testutil.Password)
	assert.True(t, svcErr.IsKind(err, svcErr.KindUnauthorized))
	_, err = f.svc.Login(ctx, "u1@example.com", "brand-new-pass")
	require.NoError(t, err)
}

func TestPasswordReset_Expired(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	testutil.NewUser(t, f.appCtx.DB, "u1")

	require.NoError(t, f.svc.ForgotPassword(ctx, "u1@example.com"))
	f.disp.Wait()
	token := f.box.last(notify.KindPasswordReset).Data["token"]

	require.NoError(t, f.appCtx.DB.Model(&db.User{}).Where("id = ?", "u1").
		Update("reset_expires_at", time.Now().UTC().Add(-time.Second)).Error)

	err := f.svc.ResetPassword(ctx, token, "brand-new-pass")
	assert.True(t, svcErr.IsKind(err, svcErr.KindInvalidState))
}

func TestLogin_InactiveAccount(t *testing.T) {
	f := setup(t)
	testutil.NewUser(t, f.appCtx.DB, "u1", testutil.Inactive())

	_, err := f.svc.Login(context.Background(), "u1@example.com", testutil.Password)
	assert.True(t, svcErr.IsKind(err, svcErr.KindUnauthorized))
}
