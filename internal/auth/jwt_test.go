package auth

import (
	"context"
	"testing"
	"time"

	"github.com/ahmedmiske/tabaro-sub002/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCfg = config.AuthConfig{
	JWTSecretKey: "test-secret-key",
	JWTExpiry:    time.Hour,
}

// fakeBlacklist is an in-memory TokenBlacklist for tests.
type fakeBlacklist struct {
	revoked map[string]bool
}

func (f *fakeBlacklist) Add(_ context.Context, jti string, _ time.Time) error {
	if f.revoked == nil {
		f.revoked = map[string]bool{}
	}
	f.revoked[jti] = true
	return nil
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], nil
}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(42, "aminata", "user", testCfg)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(context.Background(), token, testCfg.JWTSecretKey, nil)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "aminata", claims.Username)
	assert.Equal(t, "user", claims.Role)
	assert.NotEmpty(t, claims.ID, "token must carry a JTI")
}

func TestValidateTokenWrongKey(t *testing.T) {
	token, err := GenerateToken(1, "someone", "user", testCfg)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, "a-different-key", nil)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	expiredCfg := config.AuthConfig{
		JWTSecretKey: testCfg.JWTSecretKey,
		JWTExpiry:    -time.Minute,
	}
	token, err := GenerateToken(1, "someone", "user", expiredCfg)
	require.NoError(t, err)

	_, err = ValidateToken(context.Background(), token, testCfg.JWTSecretKey, nil)
	assert.Error(t, err)
}

func TestValidateTokenRevoked(t *testing.T) {
	token, err := GenerateToken(7, "moussa", "admin", testCfg)
	require.NoError(t, err)

	bl := &fakeBlacklist{}
	claims, err := ValidateToken(context.Background(), token, testCfg.JWTSecretKey, bl)
	require.NoError(t, err)

	require.NoError(t, bl.Add(context.Background(), claims.ID, claims.ExpiresAt.Time))

	_, err = ValidateToken(context.Background(), token, testCfg.JWTSecretKey, bl)
	assert.Error(t, err, "revoked token must be rejected")
}
