package config

import (
	"sync"
	"time"
)

// ServerMetrics holds server performance metrics
type ServerMetrics struct {
	TotalConnections  int64     `json:"total_connections"`
	ActiveConnections int64     `json:"active_connections"`
	TotalMessages     int64     `json:"total_messages"`
	JoinsAccepted     int64     `json:"joins_accepted"`
	JoinsRejected     int64     `json:"joins_rejected"`
	RejectedMessages  int64     `json:"rejected_messages"`
	StartTime         time.Time `json:"start_time"`
	LastMessageTime   time.Time `json:"last_message_time"`
	MessageRate       float64   `json:"message_rate"`
	ConnectionRate    float64   `json:"connection_rate"`
	mutex             sync.RWMutex
}

// NewServerMetrics creates new server metrics
func NewServerMetrics() *ServerMetrics {
	return &ServerMetrics{
		StartTime: time.Now(),
	}
}

// IncrementConnections increments connection count
func (sm *ServerMetrics) IncrementConnections() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.TotalConnections++
	sm.ActiveConnections++
}

// DecrementConnections decrements active connection count
func (sm *ServerMetrics) DecrementConnections() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.ActiveConnections--
}

// IncrementMessages counts an accepted chat message
func (sm *ServerMetrics) IncrementMessages() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.TotalMessages++
	sm.LastMessageTime = time.Now()
}

// IncrementRejectedMessages counts a send that failed validation or rate limiting
func (sm *ServerMetrics) IncrementRejectedMessages() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.RejectedMessages++
}

// RecordJoin counts a join attempt by outcome
func (sm *ServerMetrics) RecordJoin(accepted bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	if accepted {
		sm.JoinsAccepted++
	} else {
		sm.JoinsRejected++
	}
}

// GetMetrics returns current metrics with calculated rates
func (sm *ServerMetrics) GetMetrics() *ServerMetrics {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	uptime := time.Since(sm.StartTime).Seconds()
	var messageRate, connectionRate float64
	if uptime > 0 {
		messageRate = float64(sm.TotalMessages) / uptime
		connectionRate = float64(sm.TotalConnections) / uptime
	}

	return &ServerMetrics{
		TotalConnections:  sm.TotalConnections,
		ActiveConnections: sm.ActiveConnections,
		TotalMessages:     sm.TotalMessages,
		JoinsAccepted:     sm.JoinsAccepted,
		JoinsRejected:     sm.JoinsRejected,
		RejectedMessages:  sm.RejectedMessages,
		StartTime:         sm.StartTime,
		LastMessageTime:   sm.LastMessageTime,
		MessageRate:       messageRate,
		ConnectionRate:    connectionRate,
	}
}
