package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, exp, err := GenerateJWT(42, "owner@example.com", "secret", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "owner@example.com", claims.Email)
	assert.Equal(t, "42", claims.Subject)
}

func TestJWTRejectsWrongSecretAndExpiry(t *testing.T) {
	token, _, err := GenerateJWT(1, "a@example.com", "secret", time.Hour)
	require.NoError(t, err)
	_, err = ValidateJWT(token, "other")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	expired, _, err := GenerateJWT(1, "a@example.com", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateJWT(expired, "secret")
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = ValidateJWT("not.a.token", "secret")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("Str0ng&Secret!")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("Str0ng&Secret!", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestMeetsPolicy(t *testing.T) {
	cases := map[string]bool{
		"Str0ng&Secret":   true,
		"Short1&a":        false,
		"alllowercase1&x": false,
		"ALLUPPERCASE1&X": false,
		"NoDigitsHere&&x": false,
		"NoSpecial12345a": false,
		"Has Space1&abcd": false,
		"Unicodé1&abcdef": false,
		"Exactly12Ch@":    true,
	}
	for pw, want := range cases {
		assert.Equal(t, want, MeetsPolicy(pw), pw)
	}
}

func TestGenerateVerificationCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateVerificationCode()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, code, 100000)
		assert.LessOrEqual(t, code, 999999)
	}
}
