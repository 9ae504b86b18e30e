package connection

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/buddyspace/buddyspace-api/internal/domain/user"
	"github.com/buddyspace/buddyspace-api/internal/middleware"
	"github.com/buddyspace/buddyspace-api/internal/pkg/errorhandler"
	"github.com/buddyspace/buddyspace-api/internal/pkg/response"
)

// Handler handles connection HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates connection handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Request handles POST /connections/{username}/request
func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Request)
}

// Accept handles POST /connections/{username}/accept
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Accept)
}

// Reject handles POST /connections/{username}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Reject)
}

// Block handles POST /connections/{username}/block
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Block)
}

// Unblock handles POST /connections/{username}/unblock
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Unblock)
}

// ListRequests handles GET /connections/requests
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListIncomingRequests)
}

// ListBlocked handles GET /connections/blocked
func (h *Handler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListBlocked)
}

// ListAccepted handles GET /connections/accepted
func (h *Handler) ListAccepted(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListAccepted)
}

// ListSuggestions handles GET /connections/suggestions
func (h *Handler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListSuggestions)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor, target string) (*InfoResponse, error)) {
	actor := middleware.GetUsername(r.Context())
	target := chi.URLParam(r, "username")

	info, err := op(r.Context(), actor, target)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUserNotFound):
			response.NotFound(w, "User not found")
		case errors.Is(err, ErrConnectionNotFound):
			response.NotFound(w, "No connection found for this pair")
		case errors.Is(err, ErrSelfConnection):
			response.BadRequest(w, "Cannot create a connection with yourself")
		case errors.Is(err, ErrNotParticipant):
			response.Forbidden(w, "Not a participant of this connection")
		default:
			errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "CONNECTION_UPDATE_FAILED", "Failed to update connection", err)
		}
		return
	}

	response.OK(w, info)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor string, page, size int) ([]*InfoResponse, error)) {
	actor := middleware.GetUsername(r.Context())
	page := parseIntParam(r, "page", 1)
	size := parseIntParam(r, "size", 10)

	items, err := op(r.Context(), actor, page, size)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "CONNECTION_LIST_FAILED", "Failed to list connections", err)
		return
	}

	response.WithMeta(w, items, response.Meta{Page: page, Size: size, Count: len(items)})
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
