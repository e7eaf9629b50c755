//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../mocks/mock_note_repository.go -package=mocks
package note

import "context"

// Finder looks notes up by id. Absent notes yield ErrNotFound.
type Finder interface {
	FindByID(ctx context.Context, id string) (*Note, error)
}

// Changes lists the fields an update writes. Nil fields keep their stored
// value, so concurrent writes to other fields survive.
type Changes struct {
	Title         *string
	Content       *string
	Tags          *[]string
	Collaborators *[]string
}

// Repository defines the note store operations
type Repository interface {
	Finder
	Create(ctx context.Context, n *Note) error
	ListForUser(ctx context.Context, userID string) ([]*Note, error)
	Update(ctx context.Context, id string, changes Changes) (*Note, error)
	Delete(ctx context.Context, id string) error
	AddCollaborator(ctx context.Context, id, userID string) error
}
