package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func limiterConfig(limit int, window time.Duration) *ServerConfig {
	cfg := DefaultServerConfig()
	cfg.RateLimitMessages = limit
	cfg.RateLimitWindow = window
	return cfg
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	req := require.New(t)
	rl := NewRateLimiter(limiterConfig(3, time.Minute))

	for range 3 {
		req.True(rl.Allow("u1"))
	}
	req.False(rl.Allow("u1"))
	req.True(rl.Allow("u2"), "limits are per user")

	remaining, reset := rl.Status("u1")
	req.Zero(remaining)
	req.Greater(reset, time.Duration(0))
}

func TestRateLimiter_WindowExpires(t *testing.T) {
	req := require.New(t)
	rl := NewRateLimiter(limiterConfig(1, 50*time.Millisecond))

	req.True(rl.Allow("u1"))
	req.False(rl.Allow("u1"))
	req.Eventually(func() bool { return rl.Allow("u1") }, time.Second, 10*time.Millisecond)
}

func TestRateLimiter_Disabled(t *testing.T) {
	cfg := limiterConfig(1, time.Minute)
	cfg.EnableRateLimit = false
	rl := NewRateLimiter(cfg)

	for range 5 {
		require.True(t, rl.Allow("u1"))
	}
}
