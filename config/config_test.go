package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("DSN", "user:pass@tcp(localhost:3306)/todos?parseTime=true")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "4000")
	t.Setenv("TOKEN_TTL", "24h")
	t.Setenv("MIN_PASSWORD_LEN", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 8, cfg.MinPasswordLen)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DSN", "user:pass@tcp(localhost:3306)/todos?parseTime=true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, time.Duration(0), cfg.TokenTTL)
	assert.Equal(t, 6, cfg.MinPasswordLen)
}
