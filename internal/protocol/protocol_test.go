package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	req := require.New(t)

	ev, err := Decode([]byte(`{"type":"sendChatMessage","noteId":"n1","message":"hi","sender":"u1"}`))
	req.NoError(err)
	req.Equal(SendChatMessage("n1", "hi", "u1"), ev)

	_, err = Decode([]byte(`{"noteId":"n1"}`))
	req.ErrorContains(err, "missing type")

	_, err = Decode([]byte(`not json`))
	req.Error(err)
}

func TestEncodeOmitsUnsetFields(t *testing.T) {
	req := require.New(t)

	data, err := Encode(JoinedNoteRoom("n1"))
	req.NoError(err)
	req.JSONEq(`{"type":"joinedNoteRoom","message":"Joined note room n1"}`, string(data))

	data, err = Encode(Error("Note not found."))
	req.NoError(err)
	req.JSONEq(`{"type":"error","message":"Note not found."}`, string(data))

	data, err = Encode(Event{
		Type:      TypeNewChatMessage,
		NoteID:    "n1",
		Message:   "hi",
		Sender:    "u1",
		ID:        "01J0",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	req.NoError(err)
	req.JSONEq(`{"type":"newChatMessage","noteId":"n1","message":"hi","sender":"u1","id":"01J0","timestamp":"2024-05-01T12:00:00Z"}`, string(data))
}
