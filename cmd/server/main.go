package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/mnohosten/siltchest/pkg/admin"
	"github.com/mnohosten/siltchest/pkg/server"
)

func main() {
	// Parse command-line flags
	host := flag.String("host", "localhost", "TCP server host address")
	port := flag.Int("port", defaultPort(), "TCP server port (defaults to $PORT, or 3000)")
	dataDir := flag.String("data-dir", "./data", "Data directory for engine storage")
	flushThreshold := flag.Int("flush-threshold", 1000, "Mem-table flush threshold, in entries")
	maxRuns := flag.Int("max-runs", 4, "Quiescent run count bound")
	maxConnections := flag.Int("max-connections", 256, "Concurrent connection cap")
	enableAdmin := flag.Bool("admin", false, "Enable the admin HTTP surface (/healthz, /stats, /metrics, /ws/events, /graphql)")
	adminHost := flag.String("admin-host", "localhost", "Admin HTTP surface host address")
	adminPort := flag.Int("admin-port", 3001, "Admin HTTP surface port")
	flag.Parse()

	// Create server configuration
	config := server.DefaultConfig()
	config.Host = *host
	config.Port = *port
	config.DataDir = *dataDir
	config.FlushThreshold = *flushThreshold
	config.MaxRuns = *maxRuns
	config.MaxConnections = *maxConnections

	var broadcaster *admin.Broadcaster
	if *enableAdmin {
		broadcaster = admin.NewBroadcaster()
		config.Events = broadcaster
	}

	// Create server
	srv, err := server.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ failed to create server: %v\n", err)
		os.Exit(1)
	}

	if *enableAdmin {
		adminCfg := admin.DefaultConfig()
		adminCfg.Host = *adminHost
		adminCfg.Port = *adminPort
		adm := admin.New(adminCfg, srv.Engine(), srv.MetricsCollector(), broadcaster)
		go func() {
			if err := adm.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  admin surface error: %v\n", err)
			}
		}()
	}

	// Start server (blocks until shutdown)
	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ server error: %v\n", err)
		os.Exit(1)
	}
}

// defaultPort reads the bind port from $PORT, falling back to 3000 if
// unset or not a valid integer.
func defaultPort() int {
	if raw := os.Getenv("PORT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return 3000
}
