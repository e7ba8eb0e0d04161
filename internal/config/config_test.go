package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresMongoAndJWT(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load("api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load("all")
	require.NoError(t, err)

	assert.Equal(t, "all", cfg.RunMode)
	assert.Equal(t, 15*time.Minute, cfg.VerificationCodeTTL)
	assert.Equal(t, 15*time.Minute, cfg.PasswordResetTTL)
	assert.Equal(t, 24*time.Hour, cfg.PasswordResetLock)
	assert.Equal(t, int64(5*1024*1024), cfg.TemplateMaxUploadSize)
	assert.Equal(t, "8080", cfg.ApiPort)
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AUCTION_CACHE_TTL_SECONDS", "soon")

	_, err := Load("api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUCTION_CACHE_TTL_SECONDS")
}
