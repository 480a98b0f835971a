package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/farmlink/farmlink-backend/pkg/auth"
	"github.com/farmlink/farmlink-backend/pkg/auth/session"
	"github.com/farmlink/farmlink-backend/pkg/config"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "farmlink", ExpirationMinutes: 60, CookieName: "farmlink_session"}

type capturedActor struct {
	user     string
	role     string
	accessID string
}

func captureHandler(c *capturedActor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.user = UserIDFromContext(r.Context())
		c.role = RoleFromContext(r.Context())
		c.accessID = AccessIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(captureHandler(&capturedActor{}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(captureHandler(&capturedActor{}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	userID := uuid.New()
	token, accessID := mintTestToken(t, userID, enums.RoleBuyer)

	var captured capturedActor
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(captureHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, userID.String(), captured.user)
	require.Equal(t, string(enums.RoleBuyer), captured.role)
	require.Equal(t, accessID, captured.accessID)
}

func TestAuthAcceptsSessionCookie(t *testing.T) {
	userID := uuid.New()
	token, _ := mintTestToken(t, userID, enums.RoleDriver)

	var captured capturedActor
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(captureHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: testJWT.CookieName, Value: token})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, string(enums.RoleDriver), captured.role)
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	token, _ := mintTestToken(t, uuid.New(), enums.RoleBuyer)
	handler := Auth(testJWT, stubSessionVerifier{ok: false}, nil)(captureHandler(&capturedActor{}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthSessionStoreFailureIsDependencyError(t *testing.T) {
	token, _ := mintTestToken(t, uuid.New(), enums.RoleBuyer)
	handler := Auth(testJWT, stubSessionVerifier{err: errors.New("redis down")}, nil)(captureHandler(&capturedActor{}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.RoleAdmin, enums.RoleDriver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for role, want := range map[enums.UserRole]int{
		enums.RoleAdmin:  http.StatusNoContent,
		enums.RoleDriver: http.StatusNoContent,
		enums.RoleBuyer:  http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithActor(req.Context(), uuid.New(), role))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		require.Equal(t, want, resp.Code, "role %s", role)
	}
}

func TestActorFromContext(t *testing.T) {
	_, _, err := ActorFromContext(context.Background())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	id := uuid.New()
	gotID, role, err := ActorFromContext(WithActor(context.Background(), id, enums.RoleFarmer))
	require.NoError(t, err)
	require.Equal(t, id, gotID)
	require.Equal(t, enums.RoleFarmer, role)
}

func mintTestToken(t *testing.T, userID uuid.UUID, role enums.UserRole) (string, string) {
	t.Helper()
	accessID := session.NewAccessID()
	token, _, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    accessID,
	})
	require.NoError(t, err)
	return token, accessID
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(context.Context, string) (bool, error) {
	return s.ok, s.err
}
