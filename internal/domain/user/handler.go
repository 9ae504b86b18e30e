package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/buddyspace/buddyspace-api/internal/middleware"
	"github.com/buddyspace/buddyspace-api/internal/pkg/errorhandler"
	"github.com/buddyspace/buddyspace-api/internal/pkg/imaging"
	"github.com/buddyspace/buddyspace-api/internal/pkg/response"
	"github.com/buddyspace/buddyspace-api/internal/pkg/validator"
)

// Handler handles user profile HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates user handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Get handles GET /users/{username}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	u, err := h.service.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, InfoFromEntity(u))
}

// GetMe handles GET /users/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, InfoFromEntity(u))
}

// UpdateMe handles PATCH /users/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if fieldErrors := validator.Validate(&req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "PROFILE_UPDATE_FAILED", "Failed to update profile", err)
		return
	}

	response.OK(w, InfoFromEntity(u))
}

// UploadAvatar handles POST /users/me/avatar (multipart form, field "avatar")
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(imaging.MaxFileSize); err != nil {
		response.BadRequest(w, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		response.BadRequest(w, "Missing avatar file")
		return
	}
	defer file.Close()

	if header.Size > imaging.MaxFileSize {
		response.BadRequest(w, "File too large (max 10MB)")
		return
	}

	url, err := h.service.UploadAvatar(r.Context(), middleware.GetUserID(r.Context()), header.Filename, file)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.BadRequest(w, err.Error())
		return
	}

	response.OK(w, map[string]string{"avatar_url": url})
}

// Search handles GET /users?q=&page=&size=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	page := parseIntParam(r, "page", 1)
	size := parseIntParam(r, "size", 20)

	users, err := h.service.Search(r.Context(), query, page, size)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "USER_SEARCH_FAILED", "Failed to search users", err)
		return
	}

	response.WithMeta(w, users, response.Meta{Page: page, Size: size, Count: len(users)})
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
