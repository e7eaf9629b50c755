package note

import (
	"errors"
	"slices"
	"time"

	"github.com/samber/lo"
)

var (
	ErrNotFound  = errors.New("note not found")
	ErrForbidden = errors.New("access to note denied")
)

// Note is a titled document with one owner and a set of collaborators
type Note struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"ownerId"`
	CollaboratorIDs []string  `json:"collaborators"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	Tags            []string  `json:"tags"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// IsOwner reports whether userID owns the note
func (n *Note) IsOwner(userID string) bool {
	return userID != "" && n.OwnerID == userID
}

// IsCollaborator reports whether userID was invited to the note
func (n *Note) IsCollaborator(userID string) bool {
	return userID != "" && lo.Contains(n.CollaboratorIDs, userID)
}

// HasAccess is true for the owner and for collaborators
func (n *Note) HasAccess(userID string) bool {
	return n.IsOwner(userID) || n.IsCollaborator(userID)
}

// Clone returns a deep copy
func (n *Note) Clone() *Note {
	c := *n
	c.CollaboratorIDs = slices.Clone(n.CollaboratorIDs)
	c.Tags = slices.Clone(n.Tags)
	return &c
}

// normalizeCollaborators drops blanks, duplicates and the owner
func normalizeCollaborators(ownerID string, ids []string) []string {
	ids = lo.Uniq(lo.Compact(ids))
	return lo.Without(ids, ownerID)
}
