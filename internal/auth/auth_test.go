package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_Pair(t *testing.T) {
	tm := NewTokenManager("s3cret", "seva", time.Minute, time.Hour)

	p, err := tm.GeneratePair("7", "admin")
	require.NoError(t, err)

	c, err := tm.ParseAccess(p.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "7", c.UserID)
	assert.Equal(t, "admin", c.Role)

	r, err := tm.ParseRefresh(p.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "7", r.UserID)
}

func TestTokenManager_TokensAreNotInterchangeable(t *testing.T) {
	tm := NewTokenManager("s3cret", "seva", time.Minute, time.Hour)
	p, err := tm.GeneratePair("7", "admin")
	require.NoError(t, err)

	_, err = tm.ParseAccess(p.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = tm.ParseRefresh(p.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsOtherSecretAndExpired(t *testing.T) {
	tm := NewTokenManager("s3cret", "seva", time.Minute, time.Hour)
	p, err := tm.GeneratePair("7", "admin")
	require.NoError(t, err)

	other := NewTokenManager("different", "seva", time.Minute, time.Hour)
	_, err = other.ParseAccess(p.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ParseAccess(p.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword("correct horse", h))
	assert.Error(t, VerifyPassword("wrong", h))
}
