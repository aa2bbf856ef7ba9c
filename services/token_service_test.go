package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashrajoria/webook/models"
)

func TestTokenRoundTrip(t *testing.T) {
	ts := NewTokenService("secret", time.Hour)
	token, err := ts.GenerateToken(&models.User{ID: 12, Email: "a@x.com", Role: models.RoleAdmin})
	require.NoError(t, err)

	claims, err := ts.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(12), claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.True(t, claims.IsAdmin())
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	issuer := NewTokenService("secret", time.Hour)
	token, err := issuer.GenerateToken(&models.User{ID: 1, Role: models.RoleUser})
	require.NoError(t, err)

	_, err = NewTokenService("other", time.Hour).ValidateToken(token)
	assert.Error(t, err)

	expired := NewTokenService("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.GenerateToken(&models.User{ID: 1})
	require.NoError(t, err)
	_, err = expired.ValidateToken(old)
	assert.Error(t, err)

	_, err = issuer.ValidateToken("garbage")
	assert.Error(t, err)
}
