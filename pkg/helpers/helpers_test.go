package helpers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	tok, exp, err := m.GenerateSessionToken("sess-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.ParseSessionToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	tok, _, err := NewJWTManager("other", time.Hour).GenerateSessionToken("sess-1")
	require.NoError(t, err)
	_, err = m.ParseSessionToken(tok)
	assert.Error(t, err, "wrong secret")

	expired := NewJWTManager("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, _, err = expired.GenerateSessionToken("sess-1")
	require.NoError(t, err)
	_, err = m.ParseSessionToken(tok)
	assert.Error(t, err, "expired")

	tok, _, err = m.GenerateSessionToken("")
	require.NoError(t, err)
	_, err = m.ParseSessionToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	h, err := HashPasswordCost("Aa1!aaaa", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "Aa1!aaaa", h)
	assert.True(t, CompareHashAndPassword(h, "Aa1!aaaa"))
	assert.False(t, CompareHashAndPassword(h, "Aa1!aaab"))

	_, err = HashPassword(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestMaxAgeFrom(t *testing.T) {
	assert.Zero(t, maxAgeFrom(time.Now().Add(-time.Minute)))
	assert.InDelta(t, 3600, maxAgeFrom(time.Now().Add(time.Hour)), 2)
}
