package note

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"notechat/internal/identity"
	"notechat/internal/message"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// MessageHistory reads the chat log of a note
type MessageHistory interface {
	History(ctx context.Context, noteID string, limit int) ([]*message.Message, error)
}

// Handler serves the notes REST API
type Handler struct {
	service *Service
	history MessageHistory
	logger  *slog.Logger
}

// NewHandler creates a notes handler. history may be nil when the message log is off.
func NewHandler(service *Service, history MessageHistory, logger *slog.Logger) *Handler {
	return &Handler{service: service, history: history, logger: logger}
}

// Register mounts the routes on mux behind the auth middleware
func (h *Handler) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("POST /notes", auth(http.HandlerFunc(h.create)))
	mux.Handle("GET /notes", auth(http.HandlerFunc(h.list)))
	mux.Handle("GET /notes/{id}", auth(http.HandlerFunc(h.get)))
	mux.Handle("PUT /notes/{id}", auth(http.HandlerFunc(h.update)))
	mux.Handle("DELETE /notes/{id}", auth(http.HandlerFunc(h.delete)))
	mux.Handle("POST /notes/{id}/invite", auth(http.HandlerFunc(h.invite)))
	mux.Handle("GET /notes/{id}/messages", auth(http.HandlerFunc(h.messages)))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserFrom(r.Context())

	var in CreateInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	n, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserFrom(r.Context())

	notes, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserFrom(r.Context())

	n, err := h.service.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserFrom(r.Context())

	var in UpdateInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	n, err := h.service.Update(r.Context(), userID, r.PathValue("id"), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserFrom(r.Context())

	if err := h.service.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Note deleted successfully"})
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserFrom(r.Context())

	var body struct {
		CollaboratorID string `json:"collaboratorId"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	n, err := h.service.Invite(r.Context(), userID, r.PathValue("id"), body.CollaboratorID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Collaborator invited successfully", "note": n})
}

func (h *Handler) messages(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "Message log is disabled")
		return
	}
	userID, _ := identity.UserFrom(r.Context())
	noteID := r.PathValue("id")

	if _, err := h.service.Get(r.Context(), userID, noteID); err != nil {
		h.fail(w, err)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	msgs, err := h.history.History(r.Context(), noteID, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "Note not found")
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Note request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

func decodeBody(r *http.Request, target any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
