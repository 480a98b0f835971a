package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/farmlink/farmlink-backend/pkg/config"
	"github.com/farmlink/farmlink-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "farmlink", ExpirationMinutes: 30}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	token, minted, err := MintAccessToken(cfg, time.Now().UTC(), AccessTokenPayload{UserID: userID, Role: enums.RoleBuyer, JTI: "jti-1"})
	require.NoError(t, err)
	require.Equal(t, "jti-1", minted.ID)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, enums.RoleBuyer, claims.Role)
	require.Equal(t, "jti-1", claims.ID)
	require.Equal(t, "farmlink", claims.Issuer)
}

func TestMintGeneratesJTI(t *testing.T) {
	_, claims, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)
	_, err = uuid.Parse(claims.ID)
	require.NoError(t, err)
}

func TestMintRejectsInvalidInput(t *testing.T) {
	cfg := testJWTConfig()
	_, _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "owner"})
	require.Error(t, err)

	_, _, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{Role: enums.RoleBuyer})
	require.Error(t, err)

	cfg.Secret = ""
	_, _, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleBuyer})
	require.Error(t, err)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	cfg := testJWTConfig()
	expired, _, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleBuyer})
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, expired)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	other := cfg
	other.Secret = "another"
	token, _, err := MintAccessToken(other, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleBuyer})
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)

	wrongIssuer := cfg
	wrongIssuer.Issuer = "elsewhere"
	token, _, err = MintAccessToken(wrongIssuer, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleBuyer})
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)
}
