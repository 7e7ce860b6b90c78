package config

import (
	"os"
	"strconv"
)

// Config holds all server configuration, loaded from the environment.
type Config struct {
	// Addr is the listen address, e.g. ":5000".
	Addr string

	// PostgresURL selects the postgres store when set; empty means the
	// in-memory store.
	PostgresURL string

	// BridgeEnabled controls whether the Redis cross-instance bridge is
	// attempted at startup. The hub runs standalone when the bridge is
	// disabled or unreachable.
	BridgeEnabled bool

	Socket SocketConfig
}

// SocketConfig holds WebSocket server configuration.
type SocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Addr:          ":5000",
		BridgeEnabled: true,
		Socket: SocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// FromEnv loads configuration from environment variables, falling back to
// defaults for any missing values.
func FromEnv() *Config {
	cfg := Default()

	if addr := os.Getenv("FEEDWIRE_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if dsn := os.Getenv("FEEDWIRE_POSTGRES_URL"); dsn != "" {
		cfg.PostgresURL = dsn
	}
	if v := os.Getenv("FEEDWIRE_BRIDGE"); v != "" {
		cfg.BridgeEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("FEEDWIRE_WS_READ_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Socket.ReadBufferSize = n
		}
	}
	if v := os.Getenv("FEEDWIRE_WS_WRITE_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Socket.WriteBufferSize = n
		}
	}
	return cfg
}
