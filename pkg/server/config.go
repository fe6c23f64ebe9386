package server

import "github.com/mnohosten/siltchest/internal/engine"

// Config holds TCP server configuration settings.
type Config struct {
	Host           string // Server host address
	Port           int    // Server port
	DataDir        string // Engine data directory
	FlushThreshold int    // Mem-table flush threshold, in entries
	MaxRuns        int    // Quiescent run count bound
	MaxConnections int    // Concurrent connection cap (LimitListener)

	// Events, if non-nil, is wired into the engine so the admin surface
	// can stream live flush/merge notifications over its websocket.
	Events engine.EventSink
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           3000,
		DataDir:        "./data",
		FlushThreshold: 1000,
		MaxRuns:        4,
		MaxConnections: 256,
	}
}
