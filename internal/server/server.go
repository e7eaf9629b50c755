// Package server assembles the HTTP surface: the chat WebSocket endpoint,
// the notes API and the operational endpoints.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"notechat/internal/chat"
	"notechat/internal/config"
	"notechat/internal/note"
	wsocket "notechat/internal/websocket"
)

// Check reports whether a dependency is reachable
type Check func(ctx context.Context) error

// Deps are the components the HTTP server routes to
type Deps struct {
	Config  *config.ServerConfig
	Chat    *chat.Handler
	Service *chat.Service
	Manager *wsocket.Manager
	Notes   *note.Handler
	Auth    func(http.Handler) http.Handler
	Checks  map[string]Check
	Logger  *slog.Logger
}

// NewMux registers every route
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", d.Chat.HandleWebSocket)
	d.Notes.Register(mux, d.Auth)
	mux.HandleFunc("GET /health", d.health)
	mux.HandleFunc("GET /stats", d.stats)
	return mux
}

// New creates the HTTP server. WriteTimeout stays unset since WebSocket
// connections are hijacked and manage their own deadlines.
func New(d Deps) *http.Server {
	return &http.Server{
		Addr:              d.Config.Port,
		Handler:           NewMux(d),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (d Deps) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(d.Checks))}
	status := http.StatusOK
	for name, check := range d.Checks {
		if err := check(ctx); err != nil {
			d.Logger.Warn("Health check failed", "check", name, "error", err)
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}

type statsResponse struct {
	Uptime             string                `json:"uptime"`
	ActiveConnections  int                   `json:"active_connections"`
	MaxConnections     int                   `json:"max_connections"`
	HealthyConnections int                   `json:"healthy_connections"`
	ActiveRooms        int                   `json:"active_rooms"`
	Metrics            *config.ServerMetrics `json:"metrics"`
}

func (d Deps) stats(w http.ResponseWriter, _ *http.Request) {
	metrics := d.Service.Metrics().GetMetrics()

	healthy := 0
	for _, h := range d.Manager.HealthStats() {
		if h.IsHealthy {
			healthy++
		}
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Uptime:             time.Since(metrics.StartTime).Round(time.Second).String(),
		ActiveConnections:  d.Manager.Count(),
		MaxConnections:     d.Config.MaxConnections,
		HealthyConnections: healthy,
		ActiveRooms:        d.Service.Registry().RoomCount(),
		Metrics:            metrics,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
