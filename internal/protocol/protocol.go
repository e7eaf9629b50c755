// Package protocol defines the JSON events exchanged over the note chat
// WebSocket. Server and client share these types.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	TypeJoinNoteRoom    = "joinNoteRoom"
	TypeJoinedNoteRoom  = "joinedNoteRoom"
	TypeError           = "error"
	TypeSendChatMessage = "sendChatMessage"
	TypeNewChatMessage  = "newChatMessage"
)

// SystemSender is the reserved sender of room-lifecycle notices.
const SystemSender = "system"

// Event is a single frame on the wire. Which fields are set depends on Type.
type Event struct {
	Type      string    `json:"type"`
	NoteID    string    `json:"noteId,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Message   string    `json:"message,omitempty"`
	Sender    string    `json:"sender,omitempty"`
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// JoinNoteRoom builds a client request to join the chat of noteID.
func JoinNoteRoom(noteID, userID string) Event {
	return Event{Type: TypeJoinNoteRoom, NoteID: noteID, UserID: userID}
}

// SendChatMessage builds a client request to broadcast message.
func SendChatMessage(noteID, message, sender string) Event {
	return Event{Type: TypeSendChatMessage, NoteID: noteID, Message: message, Sender: sender}
}

// JoinedNoteRoom is the success notice sent to the joining connection only.
func JoinedNoteRoom(noteID string) Event {
	return Event{Type: TypeJoinedNoteRoom, Message: fmt.Sprintf("Joined note room %s", noteID)}
}

// Error builds an error event carrying a human readable reason.
func Error(message string) Event {
	return Event{Type: TypeError, Message: message}
}

// Decode parses a frame. Frames without a type are rejected.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return ev, nil
}

// Encode serializes an event for the wire.
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}
