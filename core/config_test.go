package core

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("DATABASE_URL", "sqlite://test.db")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("AI_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	conf, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	assert.Equal(t, "sqlite://test.db", conf.DatabaseURL)
	assert.Equal(t, 24*time.Hour, conf.Server.JWTExpirationDelta)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, conf.Server.CORSAllowedOrigins)
	assert.Equal(t, "anthropic", conf.AI.Provider)
	assert.Equal(t, "sk-ant", conf.AIKey())
}

func TestNewConfig_missing(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := NewConfig()
	require.Error(t, err)
	assert.Equal(t, ErrMissingConfig, errors.Cause(err))
	assert.Contains(t, err.Error(), "DATABASE_URL, JWT_SECRET_KEY")
}
