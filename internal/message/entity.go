package message

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"notechat/internal/protocol"
)

// Message is one accepted chat message of a note
type Message struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"noteId"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// FromEvent converts a newChatMessage event to a log entry
func FromEvent(ev protocol.Event) *Message {
	return &Message{
		ID:        ev.ID,
		NoteID:    ev.NoteID,
		Sender:    ev.Sender,
		Message:   ev.Message,
		Timestamp: ev.Timestamp,
	}
}

// MessageDocument represents the MongoDB document structure for chat messages
type MessageDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	MessageID string             `bson:"message_id"`
	NoteID    string             `bson:"note_id"`
	Sender    string             `bson:"sender"`
	Message   string             `bson:"message"`
	Timestamp time.Time          `bson:"timestamp"`
	CreatedAt time.Time          `bson:"created_at"`
}

// ToMessage converts MessageDocument to Message
func (doc *MessageDocument) ToMessage() *Message {
	return &Message{
		ID:        doc.MessageID,
		NoteID:    doc.NoteID,
		Sender:    doc.Sender,
		Message:   doc.Message,
		Timestamp: doc.Timestamp,
	}
}

// FromMessage fills the document from a Message
func (doc *MessageDocument) FromMessage(msg *Message) {
	doc.MessageID = msg.ID
	doc.NoteID = msg.NoteID
	doc.Sender = msg.Sender
	doc.Message = msg.Message
	doc.Timestamp = msg.Timestamp
	doc.CreatedAt = time.Now().UTC()
}
