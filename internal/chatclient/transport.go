package chatclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"notechat/internal/protocol"
)

// Transport is one open connection to the chat server
type Transport interface {
	Send(ev protocol.Event) error
	// Receive blocks until the next event arrives or the connection fails
	Receive() (protocol.Event, error)
	Close() error
}

// Dialer opens transports
type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}

// WebSocketDialer dials the server's /ws endpoint with a bearer token
type WebSocketDialer struct {
	URL              string
	Token            string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// Dial opens a WebSocket transport
func (d *WebSocketDialer) Dial(ctx context.Context) (Transport, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout <= 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}

	header := http.Header{}
	if d.Token != "" {
		header.Set("Authorization", "Bearer "+d.Token)
	}

	conn, resp, err := dialer.DialContext(ctx, d.URL, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("dial %s: %w (status %d)", d.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}

	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &webSocketTransport{conn: conn, writeTimeout: writeTimeout}, nil
}

type webSocketTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMutex   sync.Mutex
}

func (t *webSocketTransport) Send(ev protocol.Event) error {
	data, err := protocol.Encode(ev)
	if err != nil {
		return err
	}

	t.writeMutex.Lock()
	defer t.writeMutex.Unlock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// Receive skips frames that do not decode
func (t *webSocketTransport) Receive() (protocol.Event, error) {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			return protocol.Event{}, err
		}
		ev, err := protocol.Decode(data)
		if err != nil {
			continue
		}
		return ev, nil
	}
}

func (t *webSocketTransport) Close() error {
	t.writeMutex.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	t.writeMutex.Unlock()
	return t.conn.Close()
}
