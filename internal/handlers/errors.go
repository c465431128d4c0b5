package handlers

import (
	"errors"
	"net/http"

	"github.com/luckynumbers/api/internal/models"
	pkghttp "github.com/luckynumbers/api/pkg/http"
)

// writeServiceError maps a sentinel error from the service layer to the
// envelope response. Unrecognized errors collapse to a generic 500 so
// internal detail never leaks to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, badRequestMessage(err))
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Invalid credentials")
	case errors.Is(err, models.ErrForbidden), errors.Is(err, models.ErrResultLocked):
		pkghttp.WriteForbidden(w, "This result is locked and cannot be modified")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteBadRequest(w, "Resource already exists")
	case errors.Is(err, models.ErrRateLimitExceeded):
		pkghttp.WriteTooManyRequests(w, "Too many requests. Please try again later.")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// badRequestMessage surfaces the wrapped detail of a bad-request error when
// present, since those messages are written for the client.
func badRequestMessage(err error) string {
	if msg := err.Error(); msg != models.ErrBadRequest.Error() {
		return msg
	}
	return "Invalid request"
}
