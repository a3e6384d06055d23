package service

import (
	"context"
	"testing"
	"time"

	"storefront/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	svc, err := NewAuthService(AuthConfig{
		JWTSecret:     []byte("test-secret"),
		TokenTTL:      24 * time.Hour,
		RefreshWindow: 72 * time.Hour,
		AdminEmail:    "admin@example.com",
		AdminPassword: "admin123",
	})
	require.NoError(t, err)
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, &RegisterRequest{
		Email:     "Jane@Example.com",
		Password:  "secret1",
		FirstName: "Jane",
		LastName:  "Doe",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "jane@example.com", res.User.Email)
	assert.Equal(t, "customer", res.User.Role)

	login, err := svc.Login(ctx, "jane@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
	require.NotNil(t, login.User.LastLogin)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{
		Email: "jane@example.com", Password: "secret1", FirstName: "Jane",
	})
	assert.Equal(t, util.KindValidation, util.ErrKind(err))

	_, err = svc.Register(ctx, &RegisterRequest{
		Email: "not-an-email", Password: "secret1", FirstName: "Jane", LastName: "Doe",
	})
	assert.Equal(t, util.KindValidation, util.ErrKind(err))

	_, err = svc.Register(ctx, &RegisterRequest{
		Email: "jane@example.com", Password: "short", FirstName: "Jane", LastName: "Doe",
	})
	assert.Equal(t, util.KindValidation, util.ErrKind(err))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	req := &RegisterRequest{
		Email: "jane@example.com", Password: "secret1", FirstName: "Jane", LastName: "Doe",
	}
	_, err := svc.Register(ctx, req)
	require.NoError(t, err)

	_, err = svc.Register(ctx, req)
	assert.Equal(t, util.KindConflict, util.ErrKind(err))
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{
		Email: "jane@example.com", Password: "secret1", FirstName: "Jane", LastName: "Doe",
	})
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "nobody@example.com", "secret1")
	_, wrongErr := svc.Login(ctx, "jane@example.com", "wrong-password")

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, util.KindUnauthorized, util.ErrKind(unknownErr))
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestVerifyTokenRoundTrip(t *testing.T) {
	svc := newTestAuthService(t)

	res, err := svc.Login(context.Background(), "admin@example.com", "admin123")
	require.NoError(t, err)

	user, err := svc.VerifyToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.Equal(t, "admin", user.Role)
	assert.Empty(t, user.PasswordHash)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	svc := newTestAuthService(t)

	res, err := svc.Login(context.Background(), "admin@example.com", "admin123")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	_, err = svc.VerifyToken(res.Token)
	assert.Equal(t, util.KindUnauthorized, util.ErrKind(err))
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.VerifyToken("not.a.token")
	assert.Equal(t, util.KindUnauthorized, util.ErrKind(err))
}

func TestRefreshTokenWithinWindow(t *testing.T) {
	svc := newTestAuthService(t)

	res, err := svc.Login(context.Background(), "admin@example.com", "admin123")
	require.NoError(t, err)

	// Expired one hour ago, well inside the 72h refresh window.
	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	refreshed, err := svc.RefreshToken(res.Token)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.Token)

	user, err := svc.VerifyToken(refreshed.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)
}

func TestRefreshTokenBeyondWindow(t *testing.T) {
	svc := newTestAuthService(t)

	res, err := svc.Login(context.Background(), "admin@example.com", "admin123")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(24*time.Hour + 73*time.Hour) }

	_, err = svc.RefreshToken(res.Token)
	assert.Equal(t, util.KindUnauthorized, util.ErrKind(err))
}

func TestChangePassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, &RegisterRequest{
		Email: "jane@example.com", Password: "secret1", FirstName: "Jane", LastName: "Doe",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(res.User.ID, "wrong", "newsecret")
	assert.Equal(t, util.KindUnauthorized, util.ErrKind(err))

	require.NoError(t, svc.ChangePassword(res.User.ID, "secret1", "newsecret"))

	_, err = svc.Login(ctx, "jane@example.com", "secret1")
	require.Error(t, err)
	_, err = svc.Login(ctx, "jane@example.com", "newsecret")
	require.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, &RegisterRequest{
		Email: "jane@example.com", Password: "secret1", FirstName: "Jane", LastName: "Doe",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(res.User.ID, "Janet", "Smith", "+201234567890")
	require.NoError(t, err)
	assert.Equal(t, "Janet", updated.FirstName)
	assert.Equal(t, "Smith", updated.LastName)
	assert.Equal(t, "+201234567890", updated.Phone)

	_, err = svc.UpdateProfile(9999, "Janet", "Smith", "")
	assert.Equal(t, util.KindNotFound, util.ErrKind(err))
}
