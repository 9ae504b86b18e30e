package connection

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the connections router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// All routes act on behalf of the authenticated user
	r.Use(authMiddleware)

	// Role-aware listings
	r.Get("/requests", h.ListRequests)
	r.Get("/blocked", h.ListBlocked)
	r.Get("/accepted", h.ListAccepted)
	r.Get("/suggestions", h.ListSuggestions)

	// State transitions against a named counterpart
	r.Post("/{username}/request", h.Request)
	r.Post("/{username}/accept", h.Accept)
	r.Post("/{username}/reject", h.Reject)
	r.Post("/{username}/block", h.Block)
	r.Post("/{username}/unblock", h.Unblock)

	return r
}
