//go:generate go run go.uber.org/mock/mockgen -source=service.go -destination=../mocks/mock_chat_service.go -package=mocks
package chat

import (
	"context"
	"log/slog"
	"time"

	"notechat/internal/config"
	"notechat/internal/message"
	"notechat/internal/protocol"
	"notechat/internal/security"
)

// JoinAuthorizer decides whether a user may join a note's room
type JoinAuthorizer interface {
	Authorize(ctx context.Context, noteID, userID string) error
}

// Relay forwards accepted messages to other server instances
type Relay interface {
	Publish(ctx context.Context, noteID string, ev protocol.Event, excludeConnID string) error
}

// Options configures a Service. Messages and Relay are optional.
type Options struct {
	Registry    *Registry
	Authorizer  JoinAuthorizer
	Validator   *security.InputValidator
	Limiter     *config.RateLimiter
	Messages    message.Log
	Relay       Relay
	Metrics     *config.ServerMetrics
	Logger      *slog.Logger
	JoinTimeout time.Duration
	Now         func() time.Time
}

// Service owns the shared state every chat session works against
type Service struct {
	registry    *Registry
	authorizer  JoinAuthorizer
	validator   *security.InputValidator
	limiter     *config.RateLimiter
	messages    message.Log
	relay       Relay
	metrics     *config.ServerMetrics
	logger      *slog.Logger
	joinTimeout time.Duration
	now         func() time.Time
}

// NewService creates a chat service
func NewService(opts Options) *Service {
	s := &Service{
		registry:    opts.Registry,
		authorizer:  opts.Authorizer,
		validator:   opts.Validator,
		limiter:     opts.Limiter,
		messages:    opts.Messages,
		relay:       opts.Relay,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		joinTimeout: opts.JoinTimeout,
		now:         opts.Now,
	}
	if s.metrics == nil {
		s.metrics = config.NewServerMetrics()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.joinTimeout <= 0 {
		s.joinTimeout = 5 * time.Second
	}
	return s
}

// Open starts a session for an authenticated connection. The session
// stops on Disconnect or when ctx is done.
func (s *Service) Open(ctx context.Context, peer Peer) *Session {
	return newSession(ctx, s, peer)
}

// Registry returns the room registry
func (s *Service) Registry() *Registry {
	return s.registry
}

// Metrics returns the counters the service updates
func (s *Service) Metrics() *config.ServerMetrics {
	return s.metrics
}

// DeliverRemote fans out a message accepted by another instance
func (s *Service) DeliverRemote(noteID string, ev protocol.Event, excludeConnID string) {
	s.registry.Broadcast(noteID, ev, excludeConnID)
}

// publish logs, fans out and relays an accepted message
func (s *Service) publish(ctx context.Context, ev protocol.Event, senderConnID string) {
	if s.messages != nil {
		if err := s.messages.Append(ctx, message.FromEvent(ev)); err != nil {
			s.logger.Warn("Failed to save message", "note_id", ev.NoteID, "error", err)
		}
	}

	delivered := s.registry.Broadcast(ev.NoteID, ev, senderConnID)

	if s.relay != nil {
		if err := s.relay.Publish(ctx, ev.NoteID, ev, senderConnID); err != nil {
			s.logger.Warn("Failed to relay message", "note_id", ev.NoteID, "error", err)
		}
	}

	s.metrics.IncrementMessages()
	s.logger.Debug("Broadcast chat message", "note_id", ev.NoteID, "message_id", ev.ID, "delivered", delivered)
}
