package billing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	signer, err := NewStateSigner("a-long-enough-session-secret", time.Minute)
	require.NoError(t, err)

	token, issued, err := signer.Issue("111", "")
	require.NoError(t, err)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "111", claims.GuildID)
	assert.Equal(t, issued.Nonce, claims.Nonce)
	assert.Empty(t, claims.RoleID)

	token, _, err = signer.Issue("111", "role-member")
	require.NoError(t, err)
	claims, err = signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "role-member", claims.RoleID)
}

func TestStateRejectsTampering(t *testing.T) {
	signer, err := NewStateSigner("a-long-enough-session-secret", time.Minute)
	require.NoError(t, err)
	other, err := NewStateSigner("another-session-secret-value", time.Minute)
	require.NoError(t, err)

	token, _, err := signer.Issue("111", "")
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.Error(t, err)

	parts := strings.SplitN(token, ".", 2)
	_, err = signer.Verify(parts[0] + ".AAAA")
	assert.Error(t, err)

	_, err = signer.Verify("no-dot")
	assert.Error(t, err)
}

func TestStateExpires(t *testing.T) {
	signer, err := NewStateSigner("a-long-enough-session-secret", time.Minute)
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return start }
	token, _, err := signer.Issue("111", "")
	require.NoError(t, err)

	signer.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = signer.Verify(token)
	assert.EqualError(t, err, "state expired")
}

func TestNewStateSignerRequiresSecret(t *testing.T) {
	_, err := NewStateSigner(" ", time.Minute)
	assert.Error(t, err)

	signer, err := NewStateSigner("a-long-enough-session-secret", 0)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, signer.TTL())
}
