// Package auth provides bearer-token extraction and the JSON error
// envelope shared by every TaskFlow endpoint.
package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
)

// Sentinel errors for token extraction failures.
// These can be used for debugging/logging but should NOT be exposed in responses.
var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthScheme = errors.New("invalid authorization scheme: expected Bearer")
	ErrEmptyToken        = errors.New("empty bearer token")
)

// Error types carried in the envelope's "type" field.
const (
	TypeAuthentication = "authentication_error"
	TypePermission     = "permission_error"
	TypeInvalidRequest = "invalid_request_error"
	TypeNotFound       = "not_found_error"
	TypeServer         = "server_error"
)

// ExtractBearerToken extracts the token from an "Authorization: Bearer <token>" header.
// Does not log anything.
func ExtractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return "", ErrInvalidAuthScheme
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// APIError is the JSON error envelope.
type APIError struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error message and type.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// WriteJSONError writes {"error": {"message": "<message>", "type": "<errorType>"}}.
func WriteJSONError(w http.ResponseWriter, status int, message, errorType string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIError{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
		},
	}); err != nil {
		log.Printf("failed to write JSON error response: %v", err)
	}
}

// WriteUnauthorized writes a 401 for a missing, malformed or unverifiable token.
func WriteUnauthorized(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusUnauthorized, "unauthorized", TypeAuthentication)
}

// WriteForbidden writes a 403 for a verified caller lacking the required role.
func WriteForbidden(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusForbidden, "forbidden", TypePermission)
}

// WriteInternalError writes a 500 without leaking details.
func WriteInternalError(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusInternalServerError, "internal error", TypeServer)
}
