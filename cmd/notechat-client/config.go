package main

import "time"

type Config struct {
	URL         string        `env:"NOTECHAT_URL,default=ws://localhost:9090/ws"`
	Token       string        `env:"NOTECHAT_TOKEN,required=true"`
	NoteID      string        `env:"NOTECHAT_NOTE_ID,required=true"`
	UserID      string        `env:"NOTECHAT_USER_ID,required=true"`
	MaxAttempts int           `env:"NOTECHAT_RECONNECT_ATTEMPTS,default=3"`
	Backoff     time.Duration `env:"NOTECHAT_RECONNECT_BACKOFF,default=500ms"`
	LogLevel    string        `env:"LOG_LEVEL,default=ERROR"`
	Colours     bool          `env:"NOTECHAT_COLOURS,default=true"`
}
