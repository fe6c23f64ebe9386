package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mnohosten/siltchest/internal/engine"
	"github.com/mnohosten/siltchest/pkg/metrics"
)

// writeJSON mirrors the teacher's writeSuccess helper: a flat envelope
// with an "ok" flag and the handler's result.
func writeJSON(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":     true,
		"result": result,
	})
}

// handleHealthz reports liveness and uptime.
func (a *Admin) handleHealthz(startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"status": "healthy",
			"uptime": time.Since(startTime).String(),
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

// handleStats reports a point-in-time snapshot of engine.Stats.
func (a *Admin) handleStats(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, eng.Stats())
	}
}

// handleMetrics writes the Prometheus text exposition of the collector.
func (a *Admin) handleMetrics(mc *metrics.MetricsCollector) http.HandlerFunc {
	exporter := metrics.NewPrometheusExporter(mc)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		if err := exporter.WriteMetrics(w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleEvents upgrades to a websocket and streams flush/merge events
// until the client disconnects. Adapted from the teacher's
// HandleChangeStream: upgrade, register, stream, unregister on exit —
// trimmed to one event type and no client-supplied filter.
func (a *Admin) handleEvents(b *Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sub := b.Subscribe()
		defer b.Unsubscribe(sub)

		// Drain client reads so the connection notices a close; this
		// endpoint is send-only from the server's side.
		go func() {
			for {
				if _, _, err := conn.NextReader(); err != nil {
					conn.Close()
					return
				}
			}
		}()

		for ev := range sub {
			payload, err := ev.marshal()
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
