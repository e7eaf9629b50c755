// Package relay fans accepted chat messages out to every server instance
// through a Redis pub/sub channel, so members of one note room may be
// connected to different processes.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"notechat/internal/protocol"
)

// Envelope is the payload published on the relay channel
type Envelope struct {
	Origin  string         `json:"origin"`
	NoteID  string         `json:"noteId"`
	Exclude string         `json:"exclude,omitempty"`
	Event   protocol.Event `json:"event"`
}

// Deliver hands a relayed event to the local room registry
type Deliver func(noteID string, ev protocol.Event, excludeConnID string)

// RedisRelay publishes and receives chat events over Redis
type RedisRelay struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
}

// NewRedisRelay connects to redisURL and checks the connection
func NewRedisRelay(ctx context.Context, redisURL, channel string, logger *slog.Logger) (*RedisRelay, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisRelayWithClient(client, channel, logger), nil
}

// NewRedisRelayWithClient creates a relay from an existing client
func NewRedisRelayWithClient(client *redis.Client, channel string, logger *slog.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// Origin identifies this instance on the channel
func (r *RedisRelay) Origin() string {
	return r.origin
}

// Publish sends ev to the other instances. The local instance has already
// delivered it and ignores its own envelopes.
func (r *RedisRelay) Publish(ctx context.Context, noteID string, ev protocol.Event, excludeConnID string) error {
	payload, err := json.Marshal(Envelope{
		Origin:  r.origin,
		NoteID:  noteID,
		Exclude: excludeConnID,
		Event:   ev,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	return nil
}

// Subscribe starts listening on the relay channel. The subscription is
// confirmed by the server before Subscribe returns.
func (r *RedisRelay) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	return &Subscription{pubsub: pubsub, origin: r.origin, logger: r.logger}, nil
}

// Ping checks if Redis is reachable
func (r *RedisRelay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisRelay) Close() error {
	return r.client.Close()
}

// Subscription receives envelopes published by other instances
type Subscription struct {
	pubsub *redis.PubSub
	origin string
	logger *slog.Logger
}

// Run passes every foreign envelope to deliver until ctx is done
func (s *Subscription) Run(ctx context.Context, deliver Deliver) error {
	defer s.pubsub.Close()

	messages := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("relay subscription closed")
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				s.logger.Warn("Dropping malformed relay envelope", "error", err)
				continue
			}
			if env.Origin == s.origin {
				continue
			}
			deliver(env.NoteID, env.Event, env.Exclude)
		}
	}
}

// Close stops the subscription
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}
