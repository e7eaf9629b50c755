package chat

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"notechat/internal/config"
	"notechat/internal/identity"
	"notechat/internal/protocol"
	wsocket "notechat/internal/websocket"
)

// Handler upgrades authenticated HTTP requests to chat sessions
type Handler struct {
	upgrader websocket.Upgrader
	service  *Service
	manager  *wsocket.Manager
	resolver identity.Resolver
	config   *config.ServerConfig
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(service *Service, manager *wsocket.Manager, resolver identity.Resolver, cfg *config.ServerConfig, logger *slog.Logger) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowedOrigin == "*" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == cfg.AllowedOrigin
			},
		},
		service:  service,
		manager:  manager,
		resolver: resolver,
		config:   cfg,
		logger:   logger,
	}
}

// HandleWebSocket resolves the caller, upgrades the connection and serves
// it until it closes.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := h.resolver.ResolveUser(identity.TokenFromRequest(r))
	if err != nil {
		h.logger.Warn("Rejected WebSocket upgrade", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if h.manager.Count() >= h.config.MaxConnections {
		http.Error(w, "Server is full", http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", "error", err)
		return
	}

	conn := wsocket.NewConnection(uuid.NewString(), userID, ws, h.config, h.logger)
	go conn.WritePump()

	if err := h.manager.Add(conn); err != nil {
		if errors.Is(err, wsocket.ErrTooManyConnections) {
			_ = conn.Send(protocol.Error("Server is full."))
		}
		conn.Close()
		return
	}
	defer h.manager.Remove(conn.ID())

	h.logger.Info("New WebSocket connection", "conn_id", conn.ID(), "user_id", userID, "remote", r.RemoteAddr)

	session := h.service.Open(r.Context(), conn)
	conn.ReadPump(session.HandleFrame)
	session.Disconnect()

	h.logger.Info("Connection closed", "conn_id", conn.ID(), "user_id", userID)
}
