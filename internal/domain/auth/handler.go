package auth

import (
	"errors"
	"net/http"

	"github.com/buddyspace/buddyspace-api/internal/domain/user"
	"github.com/buddyspace/buddyspace-api/internal/pkg/response"
	"github.com/buddyspace/buddyspace-api/internal/pkg/validator"
)

// Handler handles auth HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates auth handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if fieldErrors := validator.Validate(&req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	tokens, err := h.service.Register(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUsernameExists):
			response.Conflict(w, "Username already taken")
		case errors.Is(err, user.ErrEmailExists):
			response.Conflict(w, "Email already registered")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, tokens)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if fieldErrors := validator.Validate(&req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	tokens, err := h.service.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Unauthorized(w, "Invalid email or password")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, tokens)
}

// Refresh handles POST /auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if fieldErrors := validator.Validate(&req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefresh) {
			response.Unauthorized(w, "Invalid refresh token")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, tokens)
}
