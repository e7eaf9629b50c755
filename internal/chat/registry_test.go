package chat_test

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"notechat/internal/chat"
	"notechat/internal/protocol"
)

func newTestRegistry(maxUsers int) *chat.Registry {
	return chat.NewRegistry(maxUsers, logs.GetLoggerFromLevel(slog.LevelError))
}

func TestRegistry_JoinIsIdempotent(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry(0)
	p := newFakePeer("c1", "u1")

	changed, err := r.Join("n1", p)
	req.NoError(err)
	req.True(changed)

	changed, err = r.Join("n1", p)
	req.NoError(err)
	req.False(changed)
	req.Equal([]string{"c1"}, r.Members("n1"))
}

func TestRegistry_JoinMovesConnection(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry(0)
	p := newFakePeer("c1", "u1")

	_, err := r.Join("n1", p)
	req.NoError(err)
	_, err = r.Join("n2", p)
	req.NoError(err)

	req.Empty(r.Members("n1"))
	req.Equal([]string{"c1"}, r.Members("n2"))
	room, ok := r.RoomOf("c1")
	req.True(ok)
	req.Equal("n2", room)
	req.Equal(1, r.RoomCount(), "the emptied room is dropped")
}

func TestRegistry_LeaveDropsEmptyRooms(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry(0)
	a, b := newFakePeer("c1", "u1"), newFakePeer("c2", "u2")
	_, _ = r.Join("n1", a)
	_, _ = r.Join("n1", b)

	room, ok := r.Leave("c1")
	req.True(ok)
	req.Equal("n1", room)
	req.Equal(1, r.RoomCount())

	_, _ = r.Leave("c2")
	req.Zero(r.RoomCount())

	_, ok = r.Leave("c2")
	req.False(ok, "leaving twice is a no-op")
}

func TestRegistry_BroadcastExcludesSender(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry(0)
	sender, other, outsider := newFakePeer("c1", "u1"), newFakePeer("c2", "u2"), newFakePeer("c3", "u3")
	_, _ = r.Join("n1", sender)
	_, _ = r.Join("n1", other)
	_, _ = r.Join("n2", outsider)

	ev := protocol.Event{Type: protocol.TypeNewChatMessage, NoteID: "n1", Message: "hi", Sender: "u1"}
	req.Equal(1, r.Broadcast("n1", ev, "c1"))

	req.Equal("hi", other.next(t).Message)
	sender.quiet(t)
	outsider.quiet(t)
}

func TestRegistry_BroadcastPreservesOrder(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry(0)
	p := newFakePeer("c2", "u2")
	_, _ = r.Join("n1", p)

	for _, text := range []string{"one", "two", "three"} {
		r.Broadcast("n1", protocol.Event{Type: protocol.TypeNewChatMessage, Message: text}, "c1")
	}
	req.Equal("one", p.next(t).Message)
	req.Equal("two", p.next(t).Message)
	req.Equal("three", p.next(t).Message)
}

func TestRegistry_BroadcastSkipsFailedPeers(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry(0)
	gone, alive := newFakePeer("c1", "u1"), newFakePeer("c2", "u2")
	_, _ = r.Join("n1", gone)
	_, _ = r.Join("n1", alive)
	gone.close()

	req.Equal(1, r.Broadcast("n1", protocol.Event{Type: protocol.TypeNewChatMessage, Message: "x"}, ""))
	req.Equal("x", alive.next(t).Message)
}

func TestRegistry_RoomCapacity(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry(1)
	_, err := r.Join("n1", newFakePeer("c1", "u1"))
	req.NoError(err)

	_, err = r.Join("n1", newFakePeer("c2", "u2"))
	req.ErrorIs(err, chat.ErrForbidden)
	req.EqualError(err, "Chat room is full.")
}

func TestRegistry_MemberUsersAreDistinct(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry(0)
	_, _ = r.Join("n1", newFakePeer("c1", "u1"))
	_, _ = r.Join("n1", newFakePeer("c2", "u1"))
	_, _ = r.Join("n1", newFakePeer("c3", "u2"))

	req.ElementsMatch([]string{"u1", "u2"}, r.MemberUsers("n1"))
	req.Len(r.Members("n1"), 3)
}
