// Package respond writes JSON bodies and maps workflow errors onto HTTP statuses.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/carepulse/internal/compliance"
	"github.com/wolfman30/carepulse/internal/store"
	"github.com/wolfman30/carepulse/internal/validation"
	"github.com/wolfman30/carepulse/pkg/logging"
)

// ErrBadRequest marks malformed requests (bad JSON, missing parts).
var ErrBadRequest = errors.New("bad request")

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// JSON writes payload with the given status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// Status maps err onto an HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, validation.ErrInvalid), errors.Is(err, validation.ErrActionNotAllowed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, validation.ErrUnknownAction), errors.Is(err, validation.ErrMissingReference),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as an ErrorBody. Server-side failures are logged and
// their detail is not echoed to the client.
func Error(w http.ResponseWriter, logger *logging.Logger, err error) {
	status := Status(err)
	body := ErrorBody{Error: err.Error()}
	if fields, ok := validation.FieldErrors(err); ok {
		body.Error = "validation failed"
		body.Fields = fields
	}
	if status >= http.StatusInternalServerError {
		if logger == nil {
			logger = logging.Default()
		}
		logger.Error("request failed", "error", compliance.ScrubPII(err.Error()), "status", status)
		body.Error = http.StatusText(status)
	}
	JSON(w, status, body)
}
