// Package server runs the line-delimited TCP front end described by the
// wire protocol: accept a connection, read one statement per line,
// evaluate it against the shared engine, write back a self-describing
// binary response followed by a newline. Adapted from the teacher repo's
// pkg/server/server.go lifecycle shape (Config/New/Start/Shutdown,
// signal-driven graceful stop, emoji-prefixed lifecycle logging) but the
// transport is a raw net.Listen accept loop instead of chi/net-http,
// because the protocol here is framed TCP lines, not HTTP.
package server

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/net/netutil"

	"github.com/mnohosten/siltchest/internal/engine"
	"github.com/mnohosten/siltchest/internal/value"
	"github.com/mnohosten/siltchest/pkg/metrics"
)

// Server is the TCP front end over one shared Engine.
type Server struct {
	config    *Config
	engine    *engine.Engine
	metrics   *metrics.MetricsCollector
	listener  net.Listener
	wg        sync.WaitGroup
}

// New opens the engine at config.DataDir and constructs a Server ready to
// Start. The engine's own mutex is the single shared lock spec'd to cover
// a whole statement's evaluation, including any flush or merge it
// triggers — the server does not add a second lock on top of it.
func New(config *Config) (*Server, error) {
	mc := metrics.NewMetricsCollector()

	engCfg := engine.DefaultConfig(config.DataDir)
	engCfg.FlushThreshold = config.FlushThreshold
	engCfg.MaxRuns = config.MaxRuns
	engCfg.Metrics = mc
	engCfg.Events = config.Events

	eng, err := engine.New(engCfg)
	if err != nil {
		return nil, fmt.Errorf("server: open engine: %w", err)
	}
	return &Server{config: config, engine: eng, metrics: mc}, nil
}

// MetricsCollector returns the collector counting this server's engine
// operations, for the admin surface's /metrics endpoint.
func (s *Server) MetricsCollector() *metrics.MetricsCollector {
	return s.metrics
}

// Engine returns the underlying engine, for the admin surface's /healthz,
// /stats and /graphql handlers.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// Listen binds the TCP address from config. Separated from Serve so tests
// can learn the bound address (useful when Config.Port is 0) before the
// blocking accept loop starts.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	s.listener = netutil.LimitListener(ln, s.config.MaxConnections)
	fmt.Printf("🚀 siltchest listening on %s (max %d connections)\n", s.listener.Addr(), s.config.MaxConnections)
	fmt.Printf("📁 data directory: %s\n", s.config.DataDir)
	return nil
}

// Addr returns the bound listener address. Valid only after Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the accept loop until Shutdown closes the listener. Listen
// must have been called first.
func (s *Server) Serve() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Printf("\n⚠️  received signal: %v\n", sig)
		if err := s.Shutdown(); err != nil {
			fmt.Printf("❌ shutdown error: %v\n", err)
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			fmt.Printf("⚠️  accept error: %v\n", err)
			continue
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Start binds the TCP listener and runs the accept loop until Shutdown
// closes the listener or an external signal triggers shutdown. Returns
// nil on clean shutdown, non-nil on bind failure.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// handleConn serves one connection: a statement per line until "exit" or
// a read/write I/O failure closes the connection.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line == "exit" {
			return
		}

		stmt, err := parseStatement(line)
		var v value.Value
		if err == nil {
			v, err = stmt.Eval(s.engine)
		}

		resp := encodeResponse(v, err)
		resp = append(resp, '\n')
		if _, werr := conn.Write(resp); werr != nil {
			return
		}
	}
}

// Shutdown stops accepting new connections and flushes the engine.
// In-flight statements under the engine's lock are allowed to complete:
// Engine.Close blocks on acquiring that lock before it flushes and
// releases the directory lock.
func (s *Server) Shutdown() error {
	fmt.Println("🛑 shutting down server...")
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			fmt.Printf("⚠️  listener close error: %v\n", err)
		}
	}
	if err := s.engine.Close(); err != nil {
		fmt.Printf("❌ engine close error: %v\n", err)
		return err
	}
	fmt.Println("✅ server shutdown complete")
	return nil
}
