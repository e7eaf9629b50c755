package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultServerConfig(t *testing.T) {
	req := require.New(t)
	cfg := DefaultServerConfig()

	req.Equal(":9090", cfg.Port)
	req.Equal(1000, cfg.MaxMessageLength)
	req.Equal(256, cfg.SendBuffer)
	req.Equal(30*time.Second, cfg.HeartbeatInterval)
	req.Equal(60*time.Second, cfg.PongTimeout)
	req.Equal(5*time.Second, cfg.JoinTimeout)
	req.Equal(time.Minute, cfg.RateLimitWindow)
	req.True(cfg.EnableRateLimit)
	req.False(cfg.EnableMongoDB)
	req.Empty(cfg.RedisURL)
	req.NoError(cfg.Validate())
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("CHAT_PORT", ":7000")
	t.Setenv("CHAT_MAX_MESSAGE_LENGTH", "250")
	t.Setenv("CHAT_JOIN_TIMEOUT", "750ms")
	t.Setenv("CHAT_ENABLE_MESSAGE_LOG", "true")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(":7000", cfg.Port)
	req.Equal(250, cfg.MaxMessageLength)
	req.Equal(750*time.Millisecond, cfg.JoinTimeout)
	req.True(cfg.EnableMessageLog)
	req.Equal(1000, cfg.MaxConnections)
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "test.env")
	req.NoError(os.WriteFile(path, []byte("CHAT_RELAY_CHANNEL=notes:relay\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("CHAT_RELAY_CHANNEL") })

	cfg, err := Load(path)
	req.NoError(err)
	req.Equal("notes:relay", cfg.RelayChannel)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("CHAT_HEARTBEAT_INTERVAL", "90s")
	t.Setenv("CHAT_PONG_TIMEOUT", "60s")

	_, err := Load()
	require.ErrorContains(t, err, "CHAT_PONG_TIMEOUT")
}
