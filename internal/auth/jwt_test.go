package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewTokenManager_WeakSecret(t *testing.T) {
	_, err := NewTokenManager("short", time.Hour)
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestGenerateAndValidate(t *testing.T) {
	tm, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	token, err := tm.Generate("ops", true)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Operator)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestValidate_InvalidTokens(t *testing.T) {
	tm, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	for _, token := range []string{
		"invalid.token.here",
		"",
		"not.a.jwt",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
	} {
		_, err := tm.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}

func TestValidate_OtherSecret(t *testing.T) {
	a, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	b, err := NewTokenManager(strings.Repeat("z", 32), time.Hour)
	require.NoError(t, err)

	token, err := a.Generate("ops", true)
	require.NoError(t, err)

	_, err = b.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	tm, err := NewTokenManager(testSecret, time.Minute)
	require.NoError(t, err)

	issued := time.Now().Add(-time.Hour)
	tm.now = func() time.Time { return issued }
	token, err := tm.Generate("ops", false)
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
