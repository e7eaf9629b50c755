package websocket

import (
	"sync"
	"time"
)

// ConnectionHealth tracks heartbeat activity of a connection
type ConnectionHealth struct {
	IsHealthy       bool      `json:"is_healthy"`
	LastPingTime    time.Time `json:"last_ping_time"`
	LastPongTime    time.Time `json:"last_pong_time"`
	PingsSent       int64     `json:"pings_sent"`
	PongsReceived   int64     `json:"pongs_received"`
	MissedPongs     int64     `json:"missed_pongs"`
	ConnectionStart time.Time `json:"connection_start"`
	LastActivity    time.Time `json:"last_activity"`
	mutex           sync.RWMutex
	now             func() time.Time
}

// NewConnectionHealth creates a new connection health tracker
func NewConnectionHealth() *ConnectionHealth {
	return newConnectionHealth(time.Now)
}

func newConnectionHealth(now func() time.Time) *ConnectionHealth {
	start := now()
	return &ConnectionHealth{
		IsHealthy:       true,
		ConnectionStart: start,
		LastActivity:    start,
		now:             now,
	}
}

// RecordPing records a ping sent
func (ch *ConnectionHealth) RecordPing() {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()
	ch.LastPingTime = ch.now()
	ch.PingsSent++
}

// RecordPong records a pong received
func (ch *ConnectionHealth) RecordPong() {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()
	ch.LastPongTime = ch.now()
	ch.LastActivity = ch.LastPongTime
	ch.PongsReceived++
	ch.IsHealthy = true
	ch.MissedPongs = 0
}

// RecordActivity records an inbound frame
func (ch *ConnectionHealth) RecordActivity() {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()
	ch.LastActivity = ch.now()
}

// CheckHealth marks the connection unhealthy once a ping has gone
// unanswered for longer than pongTimeout.
func (ch *ConnectionHealth) CheckHealth(pongTimeout time.Duration) bool {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	if ch.LastPingTime.IsZero() {
		return true
	}

	// Only pings newer than the last pong are outstanding
	if !ch.LastPongTime.Before(ch.LastPingTime) {
		return ch.IsHealthy
	}

	if ch.now().Sub(ch.LastPingTime) > pongTimeout {
		ch.IsHealthy = false
		ch.MissedPongs++
		return false
	}
	return ch.IsHealthy
}

// GetStats returns a copy of the counters
func (ch *ConnectionHealth) GetStats() *ConnectionHealth {
	ch.mutex.RLock()
	defer ch.mutex.RUnlock()

	return &ConnectionHealth{
		IsHealthy:       ch.IsHealthy,
		LastPingTime:    ch.LastPingTime,
		LastPongTime:    ch.LastPongTime,
		PingsSent:       ch.PingsSent,
		PongsReceived:   ch.PongsReceived,
		MissedPongs:     ch.MissedPongs,
		ConnectionStart: ch.ConnectionStart,
		LastActivity:    ch.LastActivity,
	}
}
