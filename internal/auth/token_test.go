package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := IssueSession(42, secret)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := VerifySession(token, secret)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestVerifySessionWrongSecret(t *testing.T) {
	token, err := IssueSession(42, []byte("right-secret"))
	require.NoError(t, err)

	_, err = VerifySession(token, []byte("wrong-secret"))
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerifySessionTampered(t *testing.T) {
	secret := []byte("test-secret")
	token, err := IssueSession(42, secret)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + ".eyJzdWIiOiI5OTkifQ." + parts[2]

	_, err = VerifySession(tampered, secret)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerifySessionGarbage(t *testing.T) {
	_, err := VerifySession("not-a-token", []byte("secret"))
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestNewResetToken(t *testing.T) {
	token, err := NewResetToken(7)
	require.NoError(t, err)

	// 32 random bytes hex-encoded plus the user id suffix.
	assert.Len(t, token, 65)
	assert.True(t, strings.HasSuffix(token, "7"))

	other, err := NewResetToken(7)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestHashResetToken(t *testing.T) {
	digest := HashResetToken("abc")
	assert.Len(t, digest, 64)
	assert.Equal(t, digest, HashResetToken("abc"))
	assert.NotEqual(t, digest, HashResetToken("abd"))
}
