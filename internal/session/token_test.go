package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-app/rollcall/internal/identity"
)

const testSecret = "test-secret-at-least-32-characters!!"

func TestTokenManager_GenerateAndParse(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	token, err := tm.Generate("sid-1", &identity.Session{
		Email:       "user@school.edu",
		AccessToken: "at",
	})
	require.NoError(t, err)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SID)
	require.NotNil(t, claims.Provider)
	assert.Equal(t, "user@school.edu", claims.Provider.Email)
	assert.Equal(t, "at", claims.Provider.AccessToken)
}

func TestTokenManager_NoProviderSession(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	token, err := tm.Generate("sid-1", nil)
	require.NoError(t, err)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SID)
	assert.Nil(t, claims.Provider)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager(testSecret, time.Hour).Generate("sid-1", nil)
	require.NoError(t, err)

	_, err = NewTokenManager("another-secret-32-characters-long!!!", time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager(testSecret, -time.Minute)

	token, err := tm.Generate("sid-1", nil)
	require.NoError(t, err)

	_, err = tm.Parse(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	_, err := tm.Parse("not-a-token")
	assert.Error(t, err)
}
