package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the user router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.Search)
		r.Get("/me", h.GetMe)
		r.Patch("/me", h.UpdateMe)
		r.Post("/me/avatar", h.UploadAvatar)
	})

	r.Get("/{username}", h.Get)

	return r
}
