package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret-0123456789", time.Hour, 24*time.Hour)
	userID, sessionID := uuid.New(), uuid.New()

	access, err := m.GenerateAccessToken(userID, sessionID, "owner@example.com")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, sessionID, claims.SessionID)
	assert.Equal(t, "owner@example.com", claims.Email)

	refresh, err := m.GenerateRefreshToken(userID, sessionID)
	require.NoError(t, err)

	rc, err := m.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, sessionID, rc.SessionID)
}

func TestJWTRejectsWrongType(t *testing.T) {
	m := NewJWTManager("test-secret-0123456789", time.Hour, 24*time.Hour)

	refresh, err := m.GenerateRefreshToken(uuid.New(), uuid.New())
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestJWTRejectsExpiredAndForeign(t *testing.T) {
	m := NewJWTManager("test-secret-0123456789", time.Minute, time.Hour)
	base := time.Now()
	m.now = func() time.Time { return base }

	tok, err := m.GenerateAccessToken(uuid.New(), uuid.New(), "")
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = m.ValidateAccessToken(tok)
	assert.Error(t, err)

	other := NewJWTManager("another-secret-0123456789", time.Hour, time.Hour)
	tok, err = other.GenerateAccessToken(uuid.New(), uuid.New(), "")
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(tok)
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}
