// Package chatclient is the client side of note chat: one Controller per
// user session owns a single transport, tracks the room state and keeps
// the local message list.
package chatclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"notechat/internal/protocol"
)

var (
	ErrNotConnected   = errors.New("not connected to chat server")
	ErrEmptyMessage   = errors.New("empty message")
	ErrMessageTooLong = errors.New("message too long")
	ErrConnectFailed  = errors.New("failed to connect to chat server")
)

const (
	textNotConnected  = "Cannot send message. Not connected to chat server."
	textEmptyMessage  = "Cannot send empty message"
	textConnectFailed = "Failed to connect to chat server. Please try again later."
	textDisconnected  = "Disconnected from chat server."
)

// Status of the transport
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusOpen
	StatusReconnecting
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusReconnecting:
		return "reconnecting"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Message is one entry of the local message list
type Message struct {
	ID        string
	Sender    string
	Body      string
	Timestamp time.Time
	System    bool
}

// State is a snapshot of the controller. Connected is true once the server
// confirmed the room join. A server error only clears it when it answers a
// pending join; rejected sends leave the room membership untouched.
type State struct {
	Status    Status
	Connected bool
	NoteID    string
	UserID    string
	Messages  []Message
	Error     string
}

// Options configures a Controller
type Options struct {
	Dialer           Dialer
	MaxAttempts      int
	Backoff          time.Duration
	MaxMessageLength int
	DedupWindow      time.Duration
	Now              func() time.Time
	Logger           *slog.Logger
}

// Controller drives one chat connection for one user session
type Controller struct {
	dialer      Dialer
	maxAttempts int
	backoff     time.Duration
	maxLength   int
	dedupWindow time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mutex      sync.Mutex
	transport  Transport
	generation uint64
	dialing    bool
	joining    bool
	stopRedial context.CancelFunc
	state      State
	lastSystem string
	changes    chan struct{}
}

// NewController creates an idle controller
func NewController(opts Options) *Controller {
	c := &Controller{
		dialer:      opts.Dialer,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		maxLength:   opts.MaxMessageLength,
		dedupWindow: opts.DedupWindow,
		now:         opts.Now,
		logger:      opts.Logger,
		changes:     make(chan struct{}, 1),
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 3
	}
	if c.backoff <= 0 {
		c.backoff = 500 * time.Millisecond
	}
	if c.maxLength <= 0 {
		c.maxLength = 500
	}
	if c.dedupWindow <= 0 {
		c.dedupWindow = 2 * time.Second
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Connect joins the chat room of noteID. It dials when no transport is
// open; otherwise it reuses the open transport and sends the join again.
func (c *Controller) Connect(ctx context.Context, noteID, userID string) error {
	c.mutex.Lock()
	c.state.NoteID, c.state.UserID = noteID, userID
	if t := c.transport; t != nil {
		c.mutex.Unlock()
		c.logger.Debug("Reusing chat connection", "note_id", noteID)
		return c.join(t)
	}
	if c.dialing {
		c.mutex.Unlock()
		return nil
	}
	c.dialing = true
	c.generation++
	gen := c.generation
	c.state.Status = StatusConnecting
	c.state.Error = ""
	c.mutex.Unlock()
	c.notify()

	t, err := c.dial(ctx)
	if !c.attach(gen, t, err) {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConnectFailed, err)
		}
		return ErrNotConnected
	}
	return c.join(t)
}

// Send emits a chat message and appends it to the local list right away.
// Invalid messages are rejected without touching the network.
func (c *Controller) Send(noteID, body, senderID string) error {
	c.mutex.Lock()
	var err error
	switch {
	case !c.state.Connected || c.transport == nil:
		c.state.Error, err = textNotConnected, ErrNotConnected
	case strings.TrimSpace(body) == "":
		c.state.Error, err = textEmptyMessage, ErrEmptyMessage
	case utf8.RuneCountInString(body) > c.maxLength:
		c.state.Error = fmt.Sprintf("Message too long (max %d characters)", c.maxLength)
		err = ErrMessageTooLong
	}
	if err != nil {
		c.mutex.Unlock()
		c.notify()
		return err
	}
	t := c.transport
	c.mutex.Unlock()

	if err := t.Send(protocol.SendChatMessage(noteID, body, senderID)); err != nil {
		return fmt.Errorf("send chat message: %w", err)
	}

	c.mutex.Lock()
	c.appendLocked(Message{Sender: senderID, Body: body, Timestamp: c.now()})
	c.mutex.Unlock()
	c.notify()
	return nil
}

// Disconnect closes the transport, clears the message list and resets the
// state so that a later Connect starts clean.
func (c *Controller) Disconnect() {
	c.mutex.Lock()
	t := c.transport
	c.transport = nil
	c.generation++
	c.dialing = false
	if c.stopRedial != nil {
		c.stopRedial()
		c.stopRedial = nil
	}
	c.state = State{}
	c.lastSystem = ""
	c.joining = false
	c.mutex.Unlock()

	if t != nil {
		_ = t.Close()
	}
	c.notify()
}

// State returns a snapshot of the current state
func (c *Controller) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	s := c.state
	s.Messages = slices.Clone(c.state.Messages)
	return s
}

// Changes receives a signal after every state change. Signals coalesce.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes
}

func (c *Controller) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func (c *Controller) join(t Transport) error {
	c.mutex.Lock()
	noteID, userID := c.state.NoteID, c.state.UserID
	c.joining = true
	c.mutex.Unlock()

	if err := t.Send(protocol.JoinNoteRoom(noteID, userID)); err != nil {
		c.mutex.Lock()
		c.joining = false
		c.mutex.Unlock()
		return fmt.Errorf("send join request: %w", err)
	}
	return nil
}

// dial tries up to maxAttempts times, doubling the wait between attempts
func (c *Controller) dial(ctx context.Context) (Transport, error) {
	var lastErr error
	wait := c.backoff
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		t, err := c.dialer.Dial(ctx)
		if err == nil {
			return t, nil
		}
		lastErr = err
		c.logger.Warn("Chat connection attempt failed", "attempt", attempt, "max", c.maxAttempts, "error", err)

		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return nil, lastErr
}

// attach installs a dialed transport if gen is still current and starts
// reading from it. It reports whether the transport is now in use.
func (c *Controller) attach(gen uint64, t Transport, err error) bool {
	c.mutex.Lock()
	if gen != c.generation {
		c.mutex.Unlock()
		if t != nil {
			_ = t.Close()
		}
		return false
	}
	c.dialing = false
	c.stopRedial = nil
	if err != nil {
		c.state.Status = StatusFailed
		c.state.Connected = false
		c.state.Error = textConnectFailed
		c.mutex.Unlock()
		c.notify()
		return false
	}
	c.transport = t
	c.state.Status = StatusOpen
	c.mutex.Unlock()
	c.notify()

	go c.readLoop(gen, t)
	return true
}

func (c *Controller) readLoop(gen uint64, t Transport) {
	for {
		ev, err := t.Receive()
		if err != nil {
			c.transportLost(gen, t, err)
			return
		}
		c.handle(gen, ev)
	}
}

func (c *Controller) handle(gen uint64, ev protocol.Event) {
	c.mutex.Lock()
	if gen != c.generation {
		c.mutex.Unlock()
		return
	}

	switch ev.Type {
	case protocol.TypeJoinedNoteRoom:
		c.joining = false
		c.state.Connected = true
		c.state.Error = ""
		c.appendLocked(Message{Sender: protocol.SystemSender, Body: ev.Message, Timestamp: c.now(), System: true})
	case protocol.TypeNewChatMessage:
		// own messages were appended when sent
		if ev.Sender == c.state.UserID {
			c.mutex.Unlock()
			return
		}
		c.appendLocked(Message{ID: ev.ID, Sender: ev.Sender, Body: ev.Message, Timestamp: c.now()})
	case protocol.TypeError:
		c.state.Error = ev.Message
		if c.joining {
			c.joining = false
			c.state.Connected = false
		}
	default:
		c.mutex.Unlock()
		c.logger.Debug("Ignoring chat event", "type", ev.Type)
		return
	}
	c.mutex.Unlock()
	c.notify()
}

// appendLocked applies the dedup rules: a system message equal to the last
// system message is dropped, and so is a user message equal to the
// previous entry within the dedup window.
func (c *Controller) appendLocked(m Message) {
	msgs := c.state.Messages
	if m.System {
		if m.Body == c.lastSystem {
			return
		}
		c.lastSystem = m.Body
	} else if n := len(msgs); n > 0 {
		last := msgs[n-1]
		gap := m.Timestamp.Sub(last.Timestamp).Abs()
		if last.Sender == m.Sender && last.Body == m.Body && gap < c.dedupWindow {
			return
		}
	}
	c.state.Messages = append(msgs, m)
}

func (c *Controller) transportLost(gen uint64, t Transport, err error) {
	c.mutex.Lock()
	if gen != c.generation {
		c.mutex.Unlock()
		return
	}
	c.logger.Warn("Chat connection lost", "error", err)
	c.transport = nil
	c.joining = false
	c.state.Connected = false
	c.state.Status = StatusReconnecting
	c.state.Error = textDisconnected
	c.generation++
	next := c.generation
	c.dialing = true
	ctx, cancel := context.WithCancel(context.Background())
	c.stopRedial = cancel
	c.mutex.Unlock()

	_ = t.Close()
	c.notify()

	go func() {
		defer cancel()
		nt, err := c.dial(ctx)
		if c.attach(next, nt, err) {
			if err := c.join(nt); err != nil {
				c.logger.Warn("Failed to rejoin chat room", "error", err)
			}
		}
	}()
}
