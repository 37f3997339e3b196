// Package httpapi wires the domain services to chi routes: middleware
// chain, request/response mapping, and the streaming and static-asset
// handlers.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dustbooks/dust-server/internal/apperr"
	"github.com/dustbooks/dust-server/internal/logger"
)

// decodeJSON decodes the request body into v, returning a validation error
// on malformed JSON.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("malformed request body")
	}
	return nil
}

// errorEnvelope is the stable response shape: {"error": <kind>, "message": <human>}
// on failure, bare data on success.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil && log != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

func writeOK(w http.ResponseWriter, data any, log *logger.Logger) {
	writeJSON(w, http.StatusOK, data, log)
}

func writeCreated(w http.ResponseWriter, data any, log *logger.Logger) {
	writeJSON(w, http.StatusCreated, data, log)
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps a domain error to its stable wire representation. When
// devErrors is true, the wrapped cause is appended to the message; this is
// only ever enabled outside production (spec.md §7).
func writeError(w http.ResponseWriter, err error, log *logger.Logger, devErrors bool) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		msg := appErr.Message
		if devErrors && errors.Unwrap(appErr) != nil {
			msg = appErr.Error()
		}
		writeJSON(w, appErr.HTTPStatus(), errorEnvelope{Error: string(appErr.Code), Message: msg}, log)
		return
	}

	if log != nil {
		log.WithError(err).Error("unhandled error")
	}
	writeJSON(w, http.StatusInternalServerError, errorEnvelope{Error: string(apperr.CodeInternal), Message: "internal server error"}, log)
}
