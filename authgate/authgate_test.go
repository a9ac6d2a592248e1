package authgate

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarm1.dev/core/swarmerr"
)

const testSecret = "test-hmac-secret"

func signHMAC(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestVerifyHMACValidToken(t *testing.T) {
	v := NewVerifier(Config{JWTSecret: testSecret})
	tok := signHMAC(t, jwt.MapClaims{
		"sub":   "user-1",
		"roles": []interface{}{"developer"},
		"tenant": "acme",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	claims, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, []string{"developer"}, claims.Roles)
	assert.Equal(t, "acme", claims.Tenant)
}

func TestVerifyHMACWrongSecretIsAuthFailed(t *testing.T) {
	v := NewVerifier(Config{JWTSecret: testSecret})
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"})
	signed, err := token.SignedString([]byte("not-the-secret"))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), signed)
	require.Error(t, err)
	assert.True(t, swarmerr.Is(err, swarmerr.AuthFailed))
}

func TestVerifyExpiredTokenIsAuthFailed(t *testing.T) {
	v := NewVerifier(Config{JWTSecret: testSecret})
	tok := signHMAC(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := v.Verify(context.Background(), tok)
	require.Error(t, err)
	assert.True(t, swarmerr.Is(err, swarmerr.AuthFailed))
}

func TestVerifyMissingTokenIsAuthFailed(t *testing.T) {
	v := NewVerifier(Config{JWTSecret: testSecret})
	_, err := v.Verify(context.Background(), "")
	require.Error(t, err)
	assert.True(t, swarmerr.Is(err, swarmerr.AuthFailed))
}

func TestRolesFallBackToRealmAccessNesting(t *testing.T) {
	v := NewVerifier(Config{JWTSecret: testSecret})
	tok := signHMAC(t, jwt.MapClaims{
		"sub": "user-2",
		"realm_access": map[string]interface{}{
			"roles": []interface{}{"viewer"},
		},
	})

	claims, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, []string{"viewer"}, claims.Roles)
}

func TestGateDisabledSkipsVerification(t *testing.T) {
	g := NewGate(Config{Required: false})
	claims, err := g.Authorize(context.Background(), "", PermEnqueueJobs, "acme")
	require.NoError(t, err)
	assert.Nil(t, claims)
}

func TestGateRequiredMissingTokenIsAuthFailed(t *testing.T) {
	g := NewGate(Config{Required: true, JWTSecret: testSecret})
	_, err := g.Authorize(context.Background(), "", PermEnqueueJobs, "")
	require.Error(t, err)
	assert.True(t, swarmerr.Is(err, swarmerr.AuthFailed))
}

func TestGateViewerCannotEnqueueJobs(t *testing.T) {
	g := NewGate(Config{Required: true, JWTSecret: testSecret})
	tok := signHMAC(t, jwt.MapClaims{"sub": "u", "roles": []interface{}{"viewer"}})

	_, err := g.Authorize(context.Background(), tok, PermEnqueueJobs, "")
	require.Error(t, err)
	assert.True(t, swarmerr.Is(err, swarmerr.Forbidden))
}

func TestGateAdminActsCrossTenant(t *testing.T) {
	g := NewGate(Config{Required: true, JWTSecret: testSecret})
	tok := signHMAC(t, jwt.MapClaims{"sub": "u", "roles": []interface{}{"admin"}, "tenant": "acme"})

	claims, err := g.Authorize(context.Background(), tok, PermEnqueueJobs, "other-tenant")
	require.NoError(t, err)
	assert.True(t, claims.isAdmin())
}

func TestGateDeveloperTenantMismatchIsForbidden(t *testing.T) {
	g := NewGate(Config{Required: true, JWTSecret: testSecret})
	tok := signHMAC(t, jwt.MapClaims{"sub": "u", "roles": []interface{}{"developer"}, "tenant": "acme"})

	_, err := g.Authorize(context.Background(), tok, PermEnqueueJobs, "other-tenant")
	require.Error(t, err)
	assert.True(t, swarmerr.Is(err, swarmerr.Forbidden))
}

func TestGateDeveloperMatchingTenantSucceeds(t *testing.T) {
	g := NewGate(Config{Required: true, JWTSecret: testSecret})
	tok := signHMAC(t, jwt.MapClaims{"sub": "u", "roles": []interface{}{"developer"}, "tenant": "acme"})

	claims, err := g.Authorize(context.Background(), tok, PermEnqueueJobs, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.Tenant)
}
