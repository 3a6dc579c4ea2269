package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	cfg, err := NewConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 10*time.Second, cfg.ShutdownDrainTimeout)

	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SHUTDOWN_DRAIN_TIMEOUT", "30s")
	cfg, err = NewConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 30*time.Second, cfg.ShutdownDrainTimeout)
}
