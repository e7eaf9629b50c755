package websocket

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"notechat/internal/config"
	"notechat/internal/protocol"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendQueueFull    = errors.New("send queue full")
)

// Connection is one upgraded client socket. Frames are written only by
// WritePump; Send enqueues them.
type Connection struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	Health *ConnectionHealth
	config *config.ServerConfig
	logger *slog.Logger
}

// NewConnection wraps an upgraded socket for the authenticated userID
func NewConnection(id, userID string, conn *websocket.Conn, cfg *config.ServerConfig, logger *slog.Logger) *Connection {
	return &Connection{
		id:     id,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, cfg.SendBuffer),
		done:   make(chan struct{}),
		Health: NewConnectionHealth(),
		config: cfg,
		logger: logger.With("conn_id", id, "user_id", userID),
	}
}

// ID returns the connection ID
func (c *Connection) ID() string {
	return c.id
}

// UserID returns the user resolved at upgrade time
func (c *Connection) UserID() string {
	return c.userID
}

// Done is closed once the connection starts shutting down
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Send enqueues an event. A connection whose queue is full is closed
// rather than skipped, so members that stay connected never miss events.
func (c *Connection) Send(ev protocol.Event) error {
	data, err := protocol.Encode(ev)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("Send queue full, closing unresponsive connection")
		c.Close()
		return ErrSendQueueFull
	}
}

// Close starts shutdown; WritePump flushes frames already queued, then
// sends the close frame. Safe to call repeatedly.
func (c *Connection) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// ReadPump delivers inbound frames to handle until the socket fails or
// the connection is closed. It runs on the caller's goroutine.
func (c *Connection) ReadPump(handle func([]byte)) {
	defer c.Close()

	c.conn.SetReadLimit(c.config.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.Health.RecordPong()
		return c.conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error", "error", err)
			}
			return
		}
		c.Health.RecordActivity()
		handle(data)
	}
}

// WritePump drains the send queue and pings every HeartbeatInterval.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("Failed to write message", "error", err)
				c.Close()
				return
			}

		case <-ticker.C:
			c.Health.RecordPing()
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Warn("Failed to send ping", "error", err)
				c.Close()
				return
			}

		case <-c.done:
			c.flush()
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.config.WriteTimeout))
			return
		}
	}
}

// flush writes whatever is still queued without waiting for more
func (c *Connection) flush() {
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}
