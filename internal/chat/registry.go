package chat

import (
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"notechat/internal/protocol"
)

// Peer is a room member's connection
type Peer interface {
	ID() string
	UserID() string
	Send(ev protocol.Event) error
}

// Registry maps note ids to the connections in their chat room. Rooms
// exist only while they have members.
type Registry struct {
	rooms           map[string]map[string]Peer
	roomOf          map[string]string
	maxUsersPerRoom int
	mutex           sync.RWMutex
	logger          *slog.Logger
}

// NewRegistry creates an empty registry. maxUsersPerRoom <= 0 means no limit.
func NewRegistry(maxUsersPerRoom int, logger *slog.Logger) *Registry {
	return &Registry{
		rooms:           make(map[string]map[string]Peer),
		roomOf:          make(map[string]string),
		maxUsersPerRoom: maxUsersPerRoom,
		logger:          logger,
	}
}

// Join adds peer to the room of noteID and reports whether membership
// changed. Joining the current room again is a no-op; joining another
// room moves the connection.
func (r *Registry) Join(noteID string, peer Peer) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	connID := peer.ID()
	if current, ok := r.roomOf[connID]; ok && current == noteID {
		return false, nil
	}

	members := r.rooms[noteID]
	if r.maxUsersPerRoom > 0 && len(members) >= r.maxUsersPerRoom {
		return false, newError(KindForbidden, "Chat room is full.")
	}

	if previous, ok := r.roomOf[connID]; ok {
		r.removeLocked(previous, connID)
	}

	if members == nil {
		members = make(map[string]Peer)
		r.rooms[noteID] = members
	}
	members[connID] = peer
	r.roomOf[connID] = noteID

	r.logger.Debug("Joined room", "note_id", noteID, "conn_id", connID, "members", len(members))
	return true, nil
}

// Leave removes the connection from its room and returns the room it left
func (r *Registry) Leave(connID string) (string, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	noteID, ok := r.roomOf[connID]
	if !ok {
		return "", false
	}
	r.removeLocked(noteID, connID)
	return noteID, true
}

func (r *Registry) removeLocked(noteID, connID string) {
	delete(r.roomOf, connID)
	members := r.rooms[noteID]
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, noteID)
	}
}

// Broadcast sends ev to every member of the room except excludeConnID and
// returns how many members accepted it. Sending happens outside the lock.
func (r *Registry) Broadcast(noteID string, ev protocol.Event, excludeConnID string) int {
	r.mutex.RLock()
	targets := make([]Peer, 0, len(r.rooms[noteID]))
	for connID, peer := range r.rooms[noteID] {
		if connID != excludeConnID {
			targets = append(targets, peer)
		}
	}
	r.mutex.RUnlock()

	delivered := 0
	for _, peer := range targets {
		if err := peer.Send(ev); err != nil {
			r.logger.Warn("Failed to deliver chat event", "note_id", noteID, "conn_id", peer.ID(), "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Members returns the connection ids in the room of noteID
func (r *Registry) Members(noteID string) []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return lo.Keys(r.rooms[noteID])
}

// MemberUsers returns the distinct users in the room of noteID
func (r *Registry) MemberUsers(noteID string) []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return lo.Uniq(lo.MapToSlice(r.rooms[noteID], func(_ string, p Peer) string {
		return p.UserID()
	}))
}

// RoomOf returns the room a connection is in
func (r *Registry) RoomOf(connID string) (string, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	noteID, ok := r.roomOf[connID]
	return noteID, ok
}

// RoomCount returns the number of non-empty rooms
func (r *Registry) RoomCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.rooms)
}
