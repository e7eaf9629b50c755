package note

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// ErrInvalid wraps input validation failures
var ErrInvalid = errors.New("invalid note input")

// CreateInput is the payload of a note creation
type CreateInput struct {
	Title         string   `json:"title" validate:"required,max=100"`
	Content       string   `json:"content" validate:"required,max=1000"`
	Tags          []string `json:"tags" validate:"max=20,dive,required,max=50"`
	Collaborators []string `json:"collaborators" validate:"max=100"`
}

// UpdateInput changes only the fields that are set
type UpdateInput struct {
	Title         *string   `json:"title" validate:"omitempty,max=100"`
	Content       *string   `json:"content" validate:"omitempty,max=1000"`
	Tags          *[]string `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
	Collaborators *[]string `json:"collaborators" validate:"omitempty,max=100"`
}

// Service applies ownership rules on top of a Repository
type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService creates a new note service
func NewService(repo Repository, logger *slog.Logger) *Service {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		return name
	})
	return &Service{repo: repo, validate: validate, logger: logger}
}

// Create stores a new note owned by userID
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*Note, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if err := s.check(in); err != nil {
		return nil, err
	}

	n := &Note{
		OwnerID:         userID,
		CollaboratorIDs: normalizeCollaborators(userID, in.Collaborators),
		Title:           in.Title,
		Content:         in.Content,
		Tags:            lo.Uniq(in.Tags),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	s.logger.Info("Note created", "note_id", n.ID, "owner_id", userID)
	return n, nil
}

// List returns the notes userID owns or collaborates on, newest first
func (s *Service) List(ctx context.Context, userID string) ([]*Note, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Get returns a note the user has access to
func (s *Service) Get(ctx context.Context, userID, id string) (*Note, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !n.HasAccess(userID) {
		return nil, ErrForbidden
	}
	return n, nil
}

// Update edits a note. Owner and collaborators may edit, only the owner
// may change the collaborator list.
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*Note, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	n, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.Collaborators != nil && !n.IsOwner(userID) {
		return nil, ErrForbidden
	}

	var changes Changes
	if title := trimmed(in.Title); title != "" {
		changes.Title = &title
	}
	if content := trimmed(in.Content); content != "" {
		changes.Content = &content
	}
	if in.Tags != nil {
		changes.Tags = lo.ToPtr(lo.Uniq(*in.Tags))
	}
	if in.Collaborators != nil {
		changes.Collaborators = lo.ToPtr(normalizeCollaborators(n.OwnerID, *in.Collaborators))
	}

	return s.repo.Update(ctx, id, changes)
}

// Delete removes a note. Only the owner may delete.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !n.IsOwner(userID) {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Note deleted", "note_id", id, "owner_id", userID)
	return nil
}

// Invite adds a collaborator. Only the owner may invite; inviting the owner
// or an existing collaborator changes nothing.
func (s *Service) Invite(ctx context.Context, userID, id, inviteeID string) (*Note, error) {
	inviteeID = strings.TrimSpace(inviteeID)
	if inviteeID == "" {
		return nil, fmt.Errorf("%w: collaboratorId is required", ErrInvalid)
	}

	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !n.IsOwner(userID) {
		return nil, ErrForbidden
	}
	if n.HasAccess(inviteeID) {
		return n, nil
	}

	if err := s.repo.AddCollaborator(ctx, id, inviteeID); err != nil {
		return nil, err
	}

	s.logger.Info("Collaborator invited", "note_id", id, "collaborator_id", inviteeID)
	return s.repo.FindByID(ctx, id)
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	reasons := lo.Map(fieldErrs, func(fe validator.FieldError, _ int) string {
		if fe.Tag() == "max" {
			return fmt.Sprintf("%s exceeds %s", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s is %s", fe.Field(), fe.Tag())
	})
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(reasons, ", "))
}
