package handler

import (
	"net/http"

	"taskflow/internal/middleware"
	"taskflow/internal/user"
)

// UsersHandler serves profile registration and the employee directory.
type UsersHandler struct {
	manager *user.Manager
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(manager *user.Manager) *UsersHandler {
	return &UsersHandler{manager: manager}
}

type upsertUserRequest struct {
	Role  string  `json:"role"`
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// Upsert handles POST /api/users
func (h *UsersHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, "register user", user.ErrInvalidIdentity)
		return
	}

	var req upsertUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "register user", err)
		return
	}

	if _, err := h.manager.UpsertSelf(r.Context(), identity, req.Role, req.Name, req.Phone); err != nil {
		writeError(w, "register user", err)
		return
	}

	writeOK(w)
}

// ListEmployees handles GET /api/users
func (h *UsersHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.manager.ListEmployees(r.Context())
	if err != nil {
		writeError(w, "list employees", err)
		return
	}
	if employees == nil {
		employees = []*user.User{}
	}
	writeJSON(w, http.StatusOK, employees)
}

// Me handles GET /api/users/me
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.GetProfile(r.Context())
	if !ok {
		writeError(w, "get profile", user.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
