package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"notechat/internal/protocol"
)

// State of a chat session
type State int

const (
	StateConnected State = iota
	StateRoomJoinRequested
	StateInRoom
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateRoomJoinRequested:
		return "RoomJoinRequested"
	case StateInRoom:
		return "InRoom"
	case StateDisconnected:
		return "Disconnected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var errUserMismatch = newError(KindForbidden, "User does not match the authenticated connection.")

type joinRequest struct {
	NoteID string `validate:"required,max=128"`
	UserID string `validate:"required,max=128"`
}

type sendRequest struct {
	NoteID string `validate:"required,max=128"`
	Sender string `validate:"required,max=128"`
}

// Session is the server side of one chat connection. Every event of the
// connection runs on the session's own goroutine, one at a time.
type Session struct {
	service *Service
	peer    Peer
	userID  string
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan func()
	done   chan struct{}

	// guarded by mutex for readers outside the loop
	mutex  sync.RWMutex
	state  State
	noteID string

	// loop-owned
	joinSeq      uint64
	joinCancel   context.CancelFunc
	restoreState State
}

func newSession(ctx context.Context, service *Service, peer Peer) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		service: service,
		peer:    peer,
		userID:  peer.UserID(),
		logger:  service.logger.With("conn_id", peer.ID(), "user_id", peer.UserID()),
		ctx:     ctx,
		cancel:  cancel,
		inbox:   make(chan func(), 16),
		done:    make(chan struct{}),
		state:   StateConnected,
	}
	go s.run()
	return s
}

// State returns the current state
func (s *Session) State() State {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state
}

// Room returns the note whose room the session is in, if any
func (s *Session) Room() (string, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.noteID, s.state == StateInRoom
}

// HandleFrame queues a raw client frame for processing
func (s *Session) HandleFrame(data []byte) {
	ev, err := protocol.Decode(data)
	if err != nil {
		s.post(func() { s.reject(wrapError(KindValidation, "Invalid message format.", err)) })
		return
	}
	s.post(func() { s.handle(ev) })
}

// Disconnect leaves the room, cancels a pending join and waits for the
// session to stop. Safe to call more than once.
func (s *Session) Disconnect() {
	s.post(s.shutdown)
	<-s.done
}

// Done is closed once the session has stopped
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) post(fn func()) bool {
	select {
	case s.inbox <- fn:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.inbox:
			fn()
			if s.State() == StateDisconnected {
				return
			}
		case <-s.ctx.Done():
			s.shutdown()
			return
		}
	}
}

func (s *Session) setState(state State, noteID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.state = state
	s.noteID = noteID
}

func (s *Session) handle(ev protocol.Event) {
	switch ev.Type {
	case protocol.TypeJoinNoteRoom:
		s.handleJoin(ev)
	case protocol.TypeSendChatMessage:
		s.handleSend(ev)
	default:
		s.reject(newError(KindValidation, fmt.Sprintf("Unknown event type: %s", ev.Type)))
	}
}

func (s *Session) handleJoin(ev protocol.Event) {
	req := joinRequest{NoteID: ev.NoteID, UserID: ev.UserID}
	if err := s.service.validator.ValidateStruct(req); err != nil {
		s.reject(wrapError(KindValidation, "noteId and userId are required.", err))
		return
	}
	if req.UserID != s.userID {
		s.reject(errUserMismatch)
		return
	}
	if s.state == StateRoomJoinRequested {
		s.reject(newError(KindValidation, "A join request is already pending."))
		return
	}

	s.restoreState = s.state
	s.setState(StateRoomJoinRequested, s.noteID)
	s.joinSeq++
	seq := s.joinSeq

	ctx, cancel := context.WithTimeout(s.ctx, s.service.joinTimeout)
	s.joinCancel = cancel

	go func() {
		err := s.service.authorizer.Authorize(ctx, req.NoteID, s.userID)
		s.post(func() { s.finishJoin(seq, req.NoteID, err) })
	}()
}

func (s *Session) finishJoin(seq uint64, noteID string, err error) {
	// Results of cancelled or superseded joins are dropped
	if s.state != StateRoomJoinRequested || seq != s.joinSeq {
		return
	}
	s.joinCancel()
	s.joinCancel = nil

	if err == nil {
		_, err = s.service.registry.Join(noteID, s.peer)
	}
	if err != nil {
		s.mutex.Lock()
		s.state = s.restoreState
		s.mutex.Unlock()
		s.service.metrics.RecordJoin(false)
		s.logger.Info("Join rejected", "note_id", noteID, "error", err)
		s.reject(err)
		return
	}

	s.setState(StateInRoom, noteID)
	s.service.metrics.RecordJoin(true)
	s.logger.Info("Joined note room", "note_id", noteID)
	s.send(protocol.JoinedNoteRoom(noteID))
}

func (s *Session) handleSend(ev protocol.Event) {
	if s.state != StateInRoom {
		s.rejectMessage(newError(KindValidation, "Join the note's chat room before sending messages."))
		return
	}

	req := sendRequest{NoteID: ev.NoteID, Sender: ev.Sender}
	if err := s.service.validator.ValidateStruct(req); err != nil {
		s.rejectMessage(wrapError(KindValidation, "noteId and sender are required.", err))
		return
	}
	if req.NoteID != s.noteID {
		s.rejectMessage(newError(KindForbidden, "You have not joined the chat room of this note."))
		return
	}
	if req.Sender != s.userID {
		s.rejectMessage(errUserMismatch)
		return
	}

	body, err := s.service.validator.ValidateMessage(ev.Message)
	if err != nil {
		s.rejectMessage(wrapError(KindValidation, err.Error(), err))
		return
	}

	if !s.service.limiter.Allow(s.userID) {
		_, reset := s.service.limiter.Status(s.userID)
		s.rejectMessage(newError(KindRateLimited, fmt.Sprintf("Rate limit exceeded. Try again in %v.", reset.Round(time.Second))))
		return
	}

	out := protocol.Event{
		Type:      protocol.TypeNewChatMessage,
		NoteID:    s.noteID,
		Message:   body,
		Sender:    s.userID,
		ID:        ulid.Make().String(),
		Timestamp: s.service.now().UTC(),
	}
	s.service.publish(s.ctx, out, s.peer.ID())
}

func (s *Session) shutdown() {
	if s.State() == StateDisconnected {
		return
	}
	if s.joinCancel != nil {
		s.joinCancel()
		s.joinCancel = nil
	}
	if noteID, ok := s.service.registry.Leave(s.peer.ID()); ok {
		s.logger.Info("Left note room", "note_id", noteID)
	}
	s.setState(StateDisconnected, "")
	s.cancel()
}

func (s *Session) rejectMessage(err error) {
	s.service.metrics.IncrementRejectedMessages()
	s.reject(err)
}

// reject reports err to this connection only
func (s *Session) reject(err error) {
	text := ErrInternal.Message
	var chatErr *Error
	if errors.As(err, &chatErr) {
		text = chatErr.Message
	}
	s.logger.Debug("Rejected client event", "error", err)
	s.send(protocol.Error(text))
}

func (s *Session) send(ev protocol.Event) {
	if err := s.peer.Send(ev); err != nil {
		s.logger.Debug("Failed to send event", "type", ev.Type, "error", err)
	}
}
