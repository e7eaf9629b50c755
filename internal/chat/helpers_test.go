package chat_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"notechat/internal/chat"
	"notechat/internal/config"
	"notechat/internal/protocol"
	"notechat/internal/security"
)

var errPeerClosed = errors.New("peer closed")

// fakePeer records every event sent to it
type fakePeer struct {
	id     string
	userID string
	events chan protocol.Event

	mutex  sync.Mutex
	closed bool
}

func newFakePeer(id, userID string) *fakePeer {
	return &fakePeer{id: id, userID: userID, events: make(chan protocol.Event, 64)}
}

func (p *fakePeer) ID() string     { return p.id }
func (p *fakePeer) UserID() string { return p.userID }

func (p *fakePeer) Send(ev protocol.Event) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.closed {
		return errPeerClosed
	}
	p.events <- ev
	return nil
}

func (p *fakePeer) close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.closed = true
}

func (p *fakePeer) next(t *testing.T) protocol.Event {
	t.Helper()
	select {
	case ev := <-p.events:
		return ev
	case <-time.After(time.Second):
		t.Fatalf("%s received no event", p.id)
		return protocol.Event{}
	}
}

func (p *fakePeer) quiet(t *testing.T) {
	t.Helper()
	select {
	case ev := <-p.events:
		t.Fatalf("%s received unexpected %s event: %q", p.id, ev.Type, ev.Message)
	case <-time.After(50 * time.Millisecond):
	}
}

// allowAll lets every user join every room
type allowAll struct{}

func (allowAll) Authorize(context.Context, string, string) error { return nil }

// gatedAuthorizer blocks each call until a result is pushed or ctx ends
type gatedAuthorizer struct {
	results chan error
	calls   chan context.Context
}

func newGatedAuthorizer() *gatedAuthorizer {
	return &gatedAuthorizer{results: make(chan error, 4), calls: make(chan context.Context, 4)}
}

func (a *gatedAuthorizer) Authorize(ctx context.Context, _, _ string) error {
	a.calls <- ctx
	select {
	case err := <-a.results:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func testConfig() *config.ServerConfig {
	cfg := config.DefaultServerConfig()
	cfg.EnableRateLimit = false
	return cfg
}

func newTestService(t *testing.T, authorizer chat.JoinAuthorizer, configure ...func(*chat.Options)) *chat.Service {
	t.Helper()
	cfg := testConfig()
	logger := logs.GetLoggerFromLevel(slog.LevelError)

	limiter := config.NewRateLimiter(cfg)
	opts := chat.Options{
		Registry:   chat.NewRegistry(cfg.MaxUsersPerRoom, logger),
		Authorizer: authorizer,
		Validator:  security.NewInputValidator(cfg),
		Limiter:    limiter,
		Metrics:    config.NewServerMetrics(),
		Logger:     logger,
	}
	for _, fn := range configure {
		fn(&opts)
	}
	return chat.NewService(opts)
}

func frame(t *testing.T, ev protocol.Event) []byte {
	t.Helper()
	data, err := protocol.Encode(ev)
	require.NoError(t, err)
	return data
}

// joined opens a session for peer and waits until it is in noteID's room
func joined(t *testing.T, svc *chat.Service, peer *fakePeer, noteID string) *chat.Session {
	t.Helper()
	s := svc.Open(context.Background(), peer)
	t.Cleanup(s.Disconnect)
	s.HandleFrame(frame(t, protocol.JoinNoteRoom(noteID, peer.userID)))
	ev := peer.next(t)
	require.Equal(t, protocol.TypeJoinedNoteRoom, ev.Type, ev.Message)
	return s
}
