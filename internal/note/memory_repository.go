package note

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// InMemoryRepository implements Repository in process memory
type InMemoryRepository struct {
	notes map[string]*Note
	mutex sync.RWMutex
	now   func() time.Time
}

// NewInMemoryRepository creates a new in-memory note repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		notes: make(map[string]*Note),
		now:   time.Now,
	}
}

func (r *InMemoryRepository) FindByID(_ context.Context, id string) (*Note, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	n, ok := r.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n.Clone(), nil
}

func (r *InMemoryRepository) Create(_ context.Context, n *Note) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := r.now()
	n.CreatedAt, n.UpdatedAt = now, now
	r.notes[n.ID] = n.Clone()
	return nil
}

func (r *InMemoryRepository) ListForUser(_ context.Context, userID string) ([]*Note, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	notes := lo.FilterMap(lo.Values(r.notes), func(n *Note, _ int) (*Note, bool) {
		return n.Clone(), n.HasAccess(userID)
	})
	slices.SortFunc(notes, func(a, b *Note) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return notes, nil
}

func (r *InMemoryRepository) Update(_ context.Context, id string, changes Changes) (*Note, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	n, ok := r.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	if changes.Title != nil {
		n.Title = *changes.Title
	}
	if changes.Content != nil {
		n.Content = *changes.Content
	}
	if changes.Tags != nil {
		n.Tags = slices.Clone(*changes.Tags)
	}
	if changes.Collaborators != nil {
		n.CollaboratorIDs = slices.Clone(*changes.Collaborators)
	}
	n.UpdatedAt = r.now()
	return n.Clone(), nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.notes[id]; !ok {
		return ErrNotFound
	}
	delete(r.notes, id)
	return nil
}

func (r *InMemoryRepository) AddCollaborator(_ context.Context, id, userID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	n, ok := r.notes[id]
	if !ok {
		return ErrNotFound
	}
	if !lo.Contains(n.CollaboratorIDs, userID) {
		n.CollaboratorIDs = append(n.CollaboratorIDs, userID)
		n.UpdatedAt = r.now()
	}
	return nil
}
