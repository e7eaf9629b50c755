package chat

import (
	"context"
	"errors"
	"log/slog"

	"notechat/internal/note"
)

// Authorizer decides whether a user may join the chat room of a note:
// the note must exist and the user must own it or collaborate on it.
type Authorizer struct {
	notes  note.Finder
	logger *slog.Logger
}

// NewAuthorizer creates an authorizer backed by the note store
func NewAuthorizer(notes note.Finder, logger *slog.Logger) *Authorizer {
	return &Authorizer{notes: notes, logger: logger}
}

// Authorize returns nil when userID may join noteID, ErrNotFound or
// ErrForbidden otherwise, and an Internal error when the store fails.
func (a *Authorizer) Authorize(ctx context.Context, noteID, userID string) error {
	n, err := a.notes.FindByID(ctx, noteID)
	switch {
	case errors.Is(err, note.ErrNotFound):
		return ErrNotFound
	case err != nil:
		a.logger.Error("Note lookup failed", "note_id", noteID, "error", err)
		return wrapError(KindInternal, ErrInternal.Message, err)
	case n == nil:
		return ErrNotFound
	case !n.HasAccess(userID):
		return ErrForbidden
	}
	return nil
}

// CanJoin is Authorize reduced to a yes/no answer
func (a *Authorizer) CanJoin(ctx context.Context, noteID, userID string) bool {
	return a.Authorize(ctx, noteID, userID) == nil
}
