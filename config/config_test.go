package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":5000", cfg.Addr)
	assert.Empty(t, cfg.PostgresURL)
	assert.True(t, cfg.BridgeEnabled)
	assert.Equal(t, 1024, cfg.Socket.ReadBufferSize)
	assert.Equal(t, 1024, cfg.Socket.WriteBufferSize)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("FEEDWIRE_ADDR", ":8080")
	t.Setenv("FEEDWIRE_POSTGRES_URL", "postgres://localhost/feedwire")
	t.Setenv("FEEDWIRE_BRIDGE", "false")
	t.Setenv("FEEDWIRE_WS_READ_BUFFER", "4096")

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "postgres://localhost/feedwire", cfg.PostgresURL)
	assert.False(t, cfg.BridgeEnabled)
	assert.Equal(t, 4096, cfg.Socket.ReadBufferSize)
	assert.Equal(t, 1024, cfg.Socket.WriteBufferSize)
}

func TestFromEnvInvalidBuffer(t *testing.T) {
	t.Setenv("FEEDWIRE_WS_READ_BUFFER", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, 1024, cfg.Socket.ReadBufferSize)
}
