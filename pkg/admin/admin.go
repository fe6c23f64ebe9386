// Package admin is the opt-in HTTP surface alongside the TCP wire
// protocol: liveness, a point-in-time stats snapshot, Prometheus
// metrics, a websocket feed of flush/merge events, and a minimal
// read-only GraphQL endpoint. Adapted from the teacher's pkg/server
// HTTP admin console (chi router, middleware stack, /graphql mount)
// but scoped to this engine's surface — no document CRUD routes, no
// cursors, no collections.
package admin

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnohosten/siltchest/internal/engine"
	"github.com/mnohosten/siltchest/pkg/metrics"
)

// Admin is the admin HTTP server over one engine.
type Admin struct {
	config      *Config
	engine      *engine.Engine
	metrics     *metrics.MetricsCollector
	broadcaster *Broadcaster
	router      *chi.Mux
	httpSrv     *http.Server
	startTime   time.Time
}

// New builds an Admin surface over eng, reading counters from mc and
// flush/merge events from broadcaster (both may be nil, which disables
// /metrics and /ws/events respectively but leaves /healthz and /stats
// working).
func New(config *Config, eng *engine.Engine, mc *metrics.MetricsCollector, broadcaster *Broadcaster) *Admin {
	a := &Admin{
		config:      config,
		engine:      eng,
		metrics:     mc,
		broadcaster: broadcaster,
		router:      chi.NewRouter(),
		startTime:   time.Now(),
	}
	a.setupMiddleware()
	a.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	a.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return a
}

func (a *Admin) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Timeout(60 * time.Second))
}

func (a *Admin) setupRoutes() {
	a.router.Get("/healthz", a.handleHealthz(a.startTime))
	a.router.Get("/stats", a.handleStats(a.engine))

	if a.metrics != nil {
		a.router.Get("/metrics", a.handleMetrics(a.metrics))
	}

	if a.broadcaster != nil {
		a.router.Get("/ws/events", a.handleEvents(a.broadcaster))
	}

	gqlHandler := newGraphQLHandler(a.engine)
	a.router.Post("/graphql", gqlHandler.ServeHTTP)
}

// Addr returns the configured listen address ("host:port" from Config).
// It is not the address the listener actually bound, so a configured
// port of 0 is reported as 0.
func (a *Admin) Addr() string {
	return a.httpSrv.Addr
}

// Start runs the admin HTTP server until Shutdown stops it. Returns nil
// on clean shutdown, non-nil on listen failure.
func (a *Admin) Start() error {
	fmt.Printf("🛠️  admin surface listening on http://%s\n", a.httpSrv.Addr)
	if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("admin: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the admin HTTP server within a 10s deadline.
func (a *Admin) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.httpSrv.Shutdown(ctx)
}
