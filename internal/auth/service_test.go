package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/farmlink/farmlink-backend/internal/users"
	pkgAuth "github.com/farmlink/farmlink-backend/pkg/auth"
	"github.com/farmlink/farmlink-backend/pkg/config"
	"github.com/farmlink/farmlink-backend/pkg/db/dbtest"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
)

type stubSessions struct {
	generated []string
	revoked   []string
	err       error
}

func (s *stubSessions) Generate(_ context.Context, accessID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.generated = append(s.generated, accessID)
	return "refresh", nil
}

func (s *stubSessions) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return s.err
}

func testJWT() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "farmlink", ExpirationMinutes: 60, RefreshTokenTTLMinutes: 120}
}

func newTestService(t *testing.T, sessions *stubSessions) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(dbtest.New(t)),
		SessionManager: sessions,
		JWTConfig:      testJWT(),
		PasswordConfig: config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32},
		Now:            func() time.Time { return time.Now() },
	})
	require.NoError(t, err)
	return svc
}

func TestRegisterLoginLogout(t *testing.T) {
	sessions := &stubSessions{}
	svc := newTestService(t, sessions)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{Email: "Buyer@Farm.io", Password: "long-password", Name: "Kofi", Role: "buyer"})
	require.NoError(t, err)
	require.Equal(t, "buyer@farm.io", user.Email)
	require.Equal(t, enums.RoleBuyer, user.Role)

	resp, err := svc.Login(ctx, LoginRequest{Email: "buyer@farm.io", Password: "long-password"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotNil(t, resp.User.LastLoginAt)
	require.Equal(t, []string{resp.AccessID}, sessions.generated)

	claims, err := pkgAuth.ParseAccessToken(testJWT(), resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, resp.AccessID, claims.ID)

	require.NoError(t, svc.Logout(ctx, resp.AccessID))
	require.Equal(t, []string{resp.AccessID}, sessions.revoked)
}

func TestRegisterRejectsPrivilegedRolesAndDuplicates(t *testing.T) {
	svc := newTestService(t, &stubSessions{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "a@farm.io", Password: "long-password", Name: "A", Role: "admin"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Register(ctx, RegisterRequest{Email: "a@farm.io", Password: "long-password", Name: "A", Role: "grower"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))

	_, err = svc.Register(ctx, RegisterRequest{Email: "a@farm.io", Password: "long-password", Name: "A", Role: "farmer"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterRequest{Email: "A@farm.io", Password: "long-password", Name: "A", Role: "farmer"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t, &stubSessions{})
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Email: "f@farm.io", Password: "long-password", Name: "F", Role: "farmer"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "f@farm.io", Password: "nope"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Login(ctx, LoginRequest{Email: "ghost@farm.io", Password: "long-password"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLoginSurfacesSessionStoreFailure(t *testing.T) {
	sessions := &stubSessions{}
	svc := newTestService(t, sessions)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterRequest{Email: "f@farm.io", Password: "long-password", Name: "F", Role: "farmer"})
	require.NoError(t, err)

	sessions.err = errors.New("redis down")
	_, err = svc.Login(ctx, LoginRequest{Email: "f@farm.io", Password: "long-password"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
