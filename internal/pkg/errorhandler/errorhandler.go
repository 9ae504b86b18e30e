package errorhandler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/buddyspace/buddyspace-api/internal/middleware"
	"github.com/buddyspace/buddyspace-api/internal/pkg/response"
)

// HandleError logs an error with request context and sends a formatted
// error response to the client.
func HandleError(ctx context.Context, w http.ResponseWriter, status int, code, message string, err error) {
	event := log.Error().
		Str("request_id", middleware.GetRequestID(ctx)).
		Str("error_code", code).
		Int("status_code", status)

	if err != nil {
		event.Err(err)
	}

	event.Msg("Request error")

	response.Error(w, status, code, message)
}

// LogDatabaseError logs database errors with context
func LogDatabaseError(ctx context.Context, operation string, err error) {
	log.Error().
		Str("request_id", middleware.GetRequestID(ctx)).
		Str("operation", operation).
		Err(err).
		Msg("Database error")
}
