package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Port              string        `env:"CHAT_PORT,default=:9090" json:"port"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO" json:"log_level"`
	MaxConnections    int           `env:"CHAT_MAX_CONNECTIONS,default=1000" json:"max_connections"`
	MaxUsersPerRoom   int           `env:"CHAT_MAX_USERS_PER_ROOM,default=50" json:"max_users_per_room"`
	HeartbeatInterval time.Duration `env:"CHAT_HEARTBEAT_INTERVAL,default=30s" json:"heartbeat_interval"`
	WriteTimeout      time.Duration `env:"CHAT_WRITE_TIMEOUT,default=10s" json:"write_timeout"`
	PongTimeout       time.Duration `env:"CHAT_PONG_TIMEOUT,default=60s" json:"pong_timeout"`
	JoinTimeout       time.Duration `env:"CHAT_JOIN_TIMEOUT,default=5s" json:"join_timeout"`
	ShutdownTimeout   time.Duration `env:"CHAT_SHUTDOWN_TIMEOUT,default=10s" json:"shutdown_timeout"`
	SendBuffer        int           `env:"CHAT_SEND_BUFFER,default=256" json:"send_buffer"`
	ReadLimit         int64         `env:"CHAT_READ_LIMIT,default=16384" json:"read_limit"`
	AllowedOrigin     string        `env:"CHAT_ALLOWED_ORIGIN,default=*" json:"allowed_origin"`

	EnableHealthCheck   bool          `env:"CHAT_ENABLE_HEALTH_CHECK,default=true" json:"enable_health_check"`
	HealthCheckInterval time.Duration `env:"CHAT_HEALTH_CHECK_INTERVAL,default=30s" json:"health_check_interval"`

	// Security settings
	MaxMessageLength  int           `env:"CHAT_MAX_MESSAGE_LENGTH,default=1000" json:"max_message_length"`
	EscapeHTML        bool          `env:"CHAT_ESCAPE_HTML,default=false" json:"escape_html"`
	RateLimitMessages int           `env:"CHAT_RATE_LIMIT_MESSAGES,default=10" json:"rate_limit_messages"`
	RateLimitWindow   time.Duration `env:"CHAT_RATE_LIMIT_WINDOW,default=1m" json:"rate_limit_window"`
	EnableRateLimit   bool          `env:"CHAT_ENABLE_RATE_LIMIT,default=true" json:"enable_rate_limit"`
	JWTSecret         string        `env:"JWT_SECRET,default=notechat-dev-secret" json:"-"`

	// Storage
	EnableMongoDB     bool          `env:"CHAT_ENABLE_MONGODB,default=false" json:"enable_mongodb"`
	MongoURI          string        `env:"MONGODB_URI,default=mongodb://localhost:27017" json:"-"`
	MongoDatabase     string        `env:"MONGODB_DATABASE,default=notechat" json:"mongo_database"`
	MongoTimeout      time.Duration `env:"MONGODB_TIMEOUT,default=5s" json:"mongo_timeout"`
	EnableMessageLog  bool          `env:"CHAT_ENABLE_MESSAGE_LOG,default=false" json:"enable_message_log"`
	MessageLogHistory int           `env:"CHAT_MESSAGE_LOG_HISTORY,default=200" json:"message_log_history"`

	// Cross-instance relay, disabled when RedisURL is empty
	RedisURL     string `env:"REDIS_URL" json:"-"`
	RelayChannel string `env:"CHAT_RELAY_CHANNEL,default=notechat:chat" json:"relay_channel"`
}

// DefaultServerConfig returns the configuration with every default applied
// and nothing read from the environment.
func DefaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{}
	if err := env.Unmarshal(env.EnvSet{}, cfg); err != nil {
		panic(fmt.Sprintf("invalid config defaults: %v", err))
	}
	return cfg
}

// Load reads an optional .env file, then the process environment.
func Load(files ...string) (*ServerConfig, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &ServerConfig{}
	if _, err := env.UnmarshalFromEnviron(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *ServerConfig) Validate() error {
	switch {
	case c.MaxConnections <= 0:
		return fmt.Errorf("CHAT_MAX_CONNECTIONS must be positive, got %d", c.MaxConnections)
	case c.MaxMessageLength <= 0:
		return fmt.Errorf("CHAT_MAX_MESSAGE_LENGTH must be positive, got %d", c.MaxMessageLength)
	case c.SendBuffer <= 0:
		return fmt.Errorf("CHAT_SEND_BUFFER must be positive, got %d", c.SendBuffer)
	case c.HeartbeatInterval <= 0 || c.PongTimeout <= c.HeartbeatInterval:
		return fmt.Errorf("CHAT_PONG_TIMEOUT (%v) must exceed CHAT_HEARTBEAT_INTERVAL (%v)", c.PongTimeout, c.HeartbeatInterval)
	case c.JoinTimeout <= 0:
		return fmt.Errorf("CHAT_JOIN_TIMEOUT must be positive, got %v", c.JoinTimeout)
	case c.EnableRateLimit && (c.RateLimitMessages <= 0 || c.RateLimitWindow <= 0):
		return fmt.Errorf("rate limit needs positive CHAT_RATE_LIMIT_MESSAGES and CHAT_RATE_LIMIT_WINDOW")
	case c.JWTSecret == "":
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	return nil
}
