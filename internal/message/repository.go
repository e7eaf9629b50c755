package message

import "context"

// Log is an append-only store of chat messages
type Log interface {
	Append(ctx context.Context, msg *Message) error
	// History returns up to limit most recent messages of a note, oldest first
	History(ctx context.Context, noteID string, limit int) ([]*Message, error)
}
