package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"notechat/internal/config"
)

var ErrTooManyConnections = errors.New("connection limit reached")

// Manager tracks live connections, enforces the connection limit and
// closes connections whose heartbeat has stopped.
type Manager struct {
	connections map[string]*Connection
	mutex       sync.RWMutex
	config      *config.ServerConfig
	metrics     *config.ServerMetrics
	logger      *slog.Logger
}

// NewManager creates a new WebSocket manager
func NewManager(cfg *config.ServerConfig, metrics *config.ServerMetrics, logger *slog.Logger) *Manager {
	return &Manager{
		connections: make(map[string]*Connection),
		config:      cfg,
		metrics:     metrics,
		logger:      logger,
	}
}

// Run performs health checks until ctx is done, then closes every connection.
func (m *Manager) Run(ctx context.Context) {
	defer m.CloseAll()

	if !m.config.EnableHealthCheck {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(m.config.HealthCheckInterval)
	defer ticker.Stop()

	m.logger.Info("Starting connection health monitor", "interval", m.config.HealthCheckInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.performHealthCheck()
		}
	}
}

// Add registers a connection unless the limit is reached
func (m *Manager) Add(conn *Connection) error {
	m.mutex.Lock()
	if len(m.connections) >= m.config.MaxConnections {
		m.mutex.Unlock()
		m.logger.Warn("Connection limit reached, rejecting", "conn_id", conn.ID(), "max", m.config.MaxConnections)
		return ErrTooManyConnections
	}
	m.connections[conn.ID()] = conn
	total := len(m.connections)
	m.mutex.Unlock()

	m.metrics.IncrementConnections()
	m.logger.Info("Connection registered", "conn_id", conn.ID(), "user_id", conn.UserID(), "total", total)
	return nil
}

// Remove forgets a connection and closes it
func (m *Manager) Remove(connID string) {
	m.mutex.Lock()
	conn, exists := m.connections[connID]
	delete(m.connections, connID)
	total := len(m.connections)
	m.mutex.Unlock()

	if !exists {
		return
	}
	conn.Close()
	m.metrics.DecrementConnections()
	m.logger.Info("Connection unregistered", "conn_id", connID, "total", total)
}

// Get returns a registered connection
func (m *Manager) Get(connID string) (*Connection, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	conn, ok := m.connections[connID]
	return conn, ok
}

// Count returns the number of registered connections
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.connections)
}

// CloseAll closes every registered connection. Their handlers unregister them.
func (m *Manager) CloseAll() {
	m.mutex.RLock()
	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	m.mutex.RUnlock()

	for _, conn := range conns {
		conn.Close()
	}
	if len(conns) > 0 {
		m.logger.Info("Closed all connections", "count", len(conns))
	}
}

// performHealthCheck closes connections that stopped answering pings
func (m *Manager) performHealthCheck() {
	m.mutex.RLock()
	unhealthy := make([]*Connection, 0)
	for _, conn := range m.connections {
		if !conn.Health.CheckHealth(m.config.PongTimeout) {
			unhealthy = append(unhealthy, conn)
		}
	}
	healthy := len(m.connections) - len(unhealthy)
	m.mutex.RUnlock()

	for _, conn := range unhealthy {
		m.logger.Warn("Closing unhealthy connection", "conn_id", conn.ID(), "missed_pongs", conn.Health.GetStats().MissedPongs)
		conn.Close()
	}

	if len(unhealthy) > 0 {
		m.logger.Info("Health check completed", "healthy", healthy, "closed", len(unhealthy))
	}
}

// HealthStats returns health statistics for all connections
func (m *Manager) HealthStats() map[string]*ConnectionHealth {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := make(map[string]*ConnectionHealth, len(m.connections))
	for id, conn := range m.connections {
		stats[id] = conn.Health.GetStats()
	}
	return stats
}
