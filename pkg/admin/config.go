package admin

import "time"

// Config holds the admin HTTP surface's settings. Opt-in and separate
// from the TCP wire protocol's server.Config: most deployments never
// need to bind it.
type Config struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns sane defaults: localhost:3001, 30s read/write
// timeouts, 60s idle timeout.
func DefaultConfig() *Config {
	return &Config{
		Host:         "localhost",
		Port:         3001,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
