package config

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// RateLimiter manages rate limiting per user. Each user gets a fixed window
// that starts with their first message and expires after RateLimitWindow.
type RateLimiter struct {
	windows *ttlcache.Cache[string, *userWindow]
	limit   int
	window  time.Duration
	enabled bool
	mutex   sync.Mutex
}

type userWindow struct {
	count int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *ServerConfig) *RateLimiter {
	windows := ttlcache.New[string, *userWindow](
		ttlcache.WithTTL[string, *userWindow](config.RateLimitWindow),
		ttlcache.WithDisableTouchOnHit[string, *userWindow](),
	)
	return &RateLimiter{
		windows: windows,
		limit:   config.RateLimitMessages,
		window:  config.RateLimitWindow,
		enabled: config.EnableRateLimit,
	}
}

// Start runs the expired-window cleanup loop until Stop is called.
func (rl *RateLimiter) Start() {
	go rl.windows.Start()
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.windows.Stop()
}

// Allow reports whether userID may send another message and counts it if so.
func (rl *RateLimiter) Allow(userID string) bool {
	if !rl.enabled {
		return true
	}

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	item := rl.windows.Get(userID)
	if item == nil {
		rl.windows.Set(userID, &userWindow{count: 1}, ttlcache.DefaultTTL)
		return true
	}

	w := item.Value()
	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

// Status returns the messages left in the current window and the time until it resets.
func (rl *RateLimiter) Status(userID string) (int, time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	item := rl.windows.Get(userID)
	if item == nil {
		return rl.limit, rl.window
	}

	remaining := max(rl.limit-item.Value().count, 0)
	return remaining, max(time.Until(item.ExpiresAt()), 0)
}
