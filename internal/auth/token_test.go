package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	agent := &domain.Agent{
		ID:       "agent-1",
		TenantID: "tenant-1",
		Role:     domain.AgentRoleAdmin,
	}

	token, expiresAt, err := tm.GenerateToken(agent)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.AgentID)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, domain.AgentRoleAdmin, claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", 60)
	verifier := NewTokenManager("secret-b", 60)

	token, _, err := issuer.GenerateToken(&domain.Agent{ID: "agent-1", TenantID: "tenant-1"})
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	_, err := tm.ParseToken("not.a.token")
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple", 4)
	require.NoError(t, err)

	assert.NoError(t, ComparePassword(hash, "correct horse battery staple"))
	assert.Error(t, ComparePassword(hash, "wrong password"))
}

func TestPasswordHashDefaultsOutOfRangeCost(t *testing.T) {
	// Unconfigured (zero) cost must still produce a verifiable hash.
	hash, err := HashPassword("correct horse battery staple", 0)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct horse battery staple"))
}
