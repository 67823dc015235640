package handler

import (
	"net/http"
	"strings"
	"time"

	"taskflow/internal/middleware"
	"taskflow/internal/task"
	"taskflow/internal/user"

	"github.com/google/uuid"
)

// TasksHandler serves task CRUD and the per-task update log.
type TasksHandler struct {
	manager *task.Manager
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(manager *task.Manager) *TasksHandler {
	return &TasksHandler{manager: manager}
}

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	AssignedTo  string  `json:"assignedTo"`
	DueDate     *string `json:"dueDate"`
}

// Create handles POST /api/tasks
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	profile, _ := middleware.GetProfile(r.Context())
	if profile == nil {
		writeError(w, "create task", user.ErrForbidden)
		return
	}

	var req createTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "create task", err)
		return
	}

	var due *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		d, err := parseDueDate(*req.DueDate)
		if err != nil {
			writeError(w, "create task", err)
			return
		}
		due = &d
	}

	t, err := h.manager.Create(r.Context(), task.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		AssignedBy:  profile.ID,
		DueDate:     due,
	})
	if err != nil {
		writeError(w, "create task", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": t.ID.String()})
}

// List handles GET /api/tasks
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	profile, _ := middleware.GetProfile(r.Context())

	tasks, err := h.manager.List(r.Context(), profile)
	if err != nil {
		writeError(w, "list tasks", err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// patchTaskRequest keeps dueDate tri-state: absent, null, or a string.
type patchTaskRequest struct {
	Status      *string            `json:"status"`
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	DueDate     task.Field[string] `json:"dueDate"`
}

// Patch handles PATCH /api/tasks/{id}
func (h *TasksHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(r)
	if !ok {
		writeError(w, "update task", task.ErrNotFound)
		return
	}

	var req patchTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "update task", err)
		return
	}

	patch := task.Patch{
		Status:      req.Status,
		Title:       req.Title,
		Description: req.Description,
	}
	switch {
	case req.DueDate.State == task.FieldNull,
		req.DueDate.State == task.FieldValue && req.DueDate.Value == "":
		patch.DueDate = task.NullField[time.Time]()
	case req.DueDate.State == task.FieldValue:
		d, err := parseDueDate(req.DueDate.Value)
		if err != nil {
			writeError(w, "update task", err)
			return
		}
		patch.DueDate = task.SetField(d)
	}

	if _, err := h.manager.Patch(r.Context(), id, patch); err != nil {
		writeError(w, "update task", err)
		return
	}

	writeOK(w)
}

type appendUpdateRequest struct {
	Message string  `json:"message"`
	Status  *string `json:"status"`
}

// AppendUpdate handles POST /api/tasks/{id}/updates
func (h *TasksHandler) AppendUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(r)
	if !ok {
		writeError(w, "append task update", task.ErrNotFound)
		return
	}

	identity, _ := middleware.GetIdentity(r.Context())

	var req appendUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "append task update", err)
		return
	}

	if _, err := h.manager.AppendUpdate(r.Context(), id, identity.UserID, req.Message, req.Status); err != nil {
		writeError(w, "append task update", err)
		return
	}

	writeOK(w)
}

// ListUpdates handles GET /api/tasks/{id}/updates
func (h *TasksHandler) ListUpdates(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskID(r)
	if !ok {
		writeError(w, "list task updates", task.ErrNotFound)
		return
	}

	updates, err := h.manager.ListUpdates(r.Context(), id)
	if err != nil {
		writeError(w, "list task updates", err)
		return
	}

	writeJSON(w, http.StatusOK, updates)
}

// parseTaskID reports false for IDs that cannot name a stored task.
func parseTaskID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// parseDueDate accepts an RFC 3339 timestamp or a YYYY-MM-DD date (UTC midnight).
func parseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, badRequest{msg: "dueDate must be RFC 3339 or YYYY-MM-DD"}
}
