package note

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *InMemoryRepository) {
	repo := NewInMemoryRepository()
	return NewService(repo, logs.GetLoggerFromLevel(slog.LevelError)), repo
}

func TestService_Create(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc, _ := newTestService()

	n, err := svc.Create(ctx, "owner", CreateInput{
		Title:         "  Plan  ",
		Content:       "Ship it",
		Collaborators: []string{"u2", "owner", "u2", ""},
	})
	req.NoError(err)
	req.NotEmpty(n.ID)
	req.Equal("owner", n.OwnerID)
	req.Equal("Plan", n.Title)
	req.Equal([]string{"u2"}, n.CollaboratorIDs)

	_, err = svc.Create(ctx, "owner", CreateInput{Title: "only title"})
	req.ErrorIs(err, ErrInvalid)
	req.ErrorContains(err, "content is required")

	_, err = svc.Create(ctx, "owner", CreateInput{Title: strings.Repeat("t", 101), Content: "c"})
	req.ErrorIs(err, ErrInvalid)
	req.ErrorContains(err, "title exceeds 100")
}

func TestService_AccessRules(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc, _ := newTestService()

	n, err := svc.Create(ctx, "owner", CreateInput{Title: "t", Content: "c", Collaborators: []string{"collab"}})
	req.NoError(err)

	_, err = svc.Get(ctx, "collab", n.ID)
	req.NoError(err)
	_, err = svc.Get(ctx, "stranger", n.ID)
	req.ErrorIs(err, ErrForbidden)
	_, err = svc.Get(ctx, "owner", "missing")
	req.ErrorIs(err, ErrNotFound)

	title := "edited by collaborator"
	updated, err := svc.Update(ctx, "collab", n.ID, UpdateInput{Title: &title})
	req.NoError(err)
	req.Equal(title, updated.Title)
	req.Equal("c", updated.Content)

	collabs := []string{"someone"}
	_, err = svc.Update(ctx, "collab", n.ID, UpdateInput{Collaborators: &collabs})
	req.ErrorIs(err, ErrForbidden, "only the owner manages collaborators")

	_, err = svc.Update(ctx, "stranger", n.ID, UpdateInput{Title: &title})
	req.ErrorIs(err, ErrForbidden)

	req.ErrorIs(svc.Delete(ctx, "collab", n.ID), ErrForbidden)
	req.NoError(svc.Delete(ctx, "owner", n.ID))
	req.ErrorIs(svc.Delete(ctx, "owner", n.ID), ErrNotFound)
}

func TestService_Invite(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc, repo := newTestService()

	n, err := svc.Create(ctx, "owner", CreateInput{Title: "t", Content: "c"})
	req.NoError(err)

	got, err := svc.Invite(ctx, "owner", n.ID, "u2")
	req.NoError(err)
	req.Equal([]string{"u2"}, got.CollaboratorIDs)

	got, err = svc.Invite(ctx, "owner", n.ID, "u2")
	req.NoError(err)
	req.Equal([]string{"u2"}, got.CollaboratorIDs, "invites are idempotent")

	got, err = svc.Invite(ctx, "owner", n.ID, "owner")
	req.NoError(err)
	req.Equal([]string{"u2"}, got.CollaboratorIDs, "the owner is never stored as collaborator")

	_, err = svc.Invite(ctx, "u2", n.ID, "u3")
	req.ErrorIs(err, ErrForbidden)

	_, err = svc.Invite(ctx, "owner", n.ID, " ")
	req.ErrorIs(err, ErrInvalid)

	stored, err := repo.FindByID(ctx, n.ID)
	req.NoError(err)
	req.True(stored.IsCollaborator("u2"))
	req.False(stored.IsCollaborator("u3"))
}

// inviteOnUpdate invites a collaborator right before each update lands,
// as a concurrent owner request would
type inviteOnUpdate struct {
	*InMemoryRepository
	invitee string
}

func (r inviteOnUpdate) Update(ctx context.Context, id string, changes Changes) (*Note, error) {
	if err := r.AddCollaborator(ctx, id, r.invitee); err != nil {
		return nil, err
	}
	return r.InMemoryRepository.Update(ctx, id, changes)
}

func TestService_EditKeepsConcurrentInvite(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewInMemoryRepository()
	svc := NewService(inviteOnUpdate{InMemoryRepository: repo, invitee: "u3"}, logs.GetLoggerFromLevel(slog.LevelError))

	n := &Note{OwnerID: "owner", CollaboratorIDs: []string{"u2"}, Title: "t", Content: "c"}
	req.NoError(repo.Create(ctx, n))

	title := "edited"
	updated, err := svc.Update(ctx, "u2", n.ID, UpdateInput{Title: &title})
	req.NoError(err)
	req.Equal("edited", updated.Title)
	req.Equal([]string{"u2", "u3"}, updated.CollaboratorIDs)

	stored, err := repo.FindByID(ctx, n.ID)
	req.NoError(err)
	req.Equal([]string{"u2", "u3"}, stored.CollaboratorIDs)
}

func TestService_ListNewestFirst(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc, repo := newTestService()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	older, err := svc.Create(ctx, "owner", CreateInput{Title: "older", Content: "c"})
	req.NoError(err)
	shared, err := svc.Create(ctx, "other", CreateInput{Title: "shared", Content: "c", Collaborators: []string{"owner"}})
	req.NoError(err)
	_, err = svc.Create(ctx, "other", CreateInput{Title: "private", Content: "c"})
	req.NoError(err)

	notes, err := svc.List(ctx, "owner")
	req.NoError(err)
	req.Len(notes, 2)
	req.Equal(shared.ID, notes[0].ID)
	req.Equal(older.ID, notes[1].ID)
}

func TestNote_HasAccess(t *testing.T) {
	n := &Note{OwnerID: "owner", CollaboratorIDs: []string{"collab"}}

	require.True(t, n.HasAccess("owner"))
	require.True(t, n.HasAccess("collab"))
	require.False(t, n.HasAccess("stranger"))
	require.False(t, n.HasAccess(""))
}
