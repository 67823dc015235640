package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"taskflow/internal/auth"
	"taskflow/internal/task"
	"taskflow/internal/user"
)

var errInvalidJSON = errors.New("invalid JSON")

// badRequest marks an error whose message is safe to return as a 400.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

// writeError maps domain errors onto status codes. Anything unrecognised
// is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, action string, err error) {
	var br badRequest
	switch {
	case errors.As(err, &br),
		errors.Is(err, errInvalidJSON),
		errors.Is(err, user.ErrInvalidRole),
		errors.Is(err, user.ErrInvalidIdentity),
		errors.Is(err, task.ErrTitleRequired),
		errors.Is(err, task.ErrAssigneeRequired),
		errors.Is(err, task.ErrInvalidAssignee),
		errors.Is(err, task.ErrMessageRequired):
		auth.WriteJSONError(w, http.StatusBadRequest, err.Error(), auth.TypeInvalidRequest)
	case errors.Is(err, user.ErrForbidden):
		auth.WriteForbidden(w)
	case errors.Is(err, task.ErrNotFound), errors.Is(err, user.ErrNotFound):
		auth.WriteJSONError(w, http.StatusNotFound, err.Error(), auth.TypeNotFound)
	default:
		log.Printf("failed to %s: %v", action, err)
		auth.WriteInternalError(w)
	}
}

// decodeBody decodes a JSON request body. An empty body decodes as {}.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errInvalidJSON
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode JSON response: %v", err)
	}
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
