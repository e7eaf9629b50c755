package message

import (
	"context"
	"sync"
)

// InMemoryLog keeps the last capacity messages of each note
type InMemoryLog struct {
	capacity int
	notes    map[string][]*Message
	mutex    sync.RWMutex
}

// NewInMemoryLog creates an in-memory message log
func NewInMemoryLog(capacity int) *InMemoryLog {
	return &InMemoryLog{
		capacity: max(capacity, 1),
		notes:    make(map[string][]*Message),
	}
}

func (l *InMemoryLog) Append(_ context.Context, msg *Message) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	copied := *msg
	msgs := append(l.notes[msg.NoteID], &copied)
	if over := len(msgs) - l.capacity; over > 0 {
		msgs = msgs[over:]
	}
	l.notes[msg.NoteID] = msgs
	return nil
}

func (l *InMemoryLog) History(_ context.Context, noteID string, limit int) ([]*Message, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	msgs := l.notes[noteID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]*Message, 0, len(msgs))
	for _, m := range msgs {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}
