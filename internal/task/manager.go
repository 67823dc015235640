package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskflow/internal/user"

	"github.com/google/uuid"
)

// Domain errors returned by the Manager.
var (
	ErrNotFound         = errors.New("task not found")
	ErrTitleRequired    = errors.New("title required")
	ErrAssigneeRequired = errors.New("assignedTo required")
	ErrInvalidAssignee  = errors.New("assignedTo must reference an existing employee")
	ErrMessageRequired  = errors.New("message required")
)

// Directory resolves user profiles; satisfied by *user.Manager.
type Directory interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

// Manager handles business logic for tasks and their update logs.
// It coordinates operations and translates store errors to domain errors.
type Manager struct {
	store Store
	users Directory
}

// NewManager creates a new task manager.
func NewManager(store Store, users Directory) *Manager {
	return &Manager{store: store, users: users}
}

// Create validates the input and stores a new pending task.
// The assignee must be a registered employee.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	assignedTo := strings.TrimSpace(in.AssignedTo)
	if assignedTo == "" {
		return nil, ErrAssigneeRequired
	}

	assignee, err := m.users.Get(ctx, assignedTo)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidAssignee
		}
		return nil, fmt.Errorf("failed to resolve assignee: %w", err)
	}
	if assignee.Role != user.RoleEmployee {
		return nil, ErrInvalidAssignee
	}

	t := &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: in.Description,
		AssignedTo:  assignedTo,
		AssignedBy:  in.AssignedBy,
		Status:      StatusPending,
		DueDate:     in.DueDate,
	}

	if err := m.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return t, nil
}

// Get retrieves a task by ID.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	t, err := m.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// List returns the tasks visible to viewer, newest first.
// Employees see only their own tasks; managers see all.
func (m *Manager) List(ctx context.Context, viewer *user.User) ([]*Task, error) {
	if viewer == nil {
		return nil, user.ErrForbidden
	}

	var (
		tasks []*Task
		err   error
	)
	switch viewer.Role {
	case user.RoleEmployee:
		tasks, err = m.store.ListByAssignee(ctx, viewer.ID)
	case user.RoleManager:
		tasks, err = m.store.List(ctx)
	default:
		return nil, user.ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	if tasks == nil {
		tasks = []*Task{}
	}
	return tasks, nil
}

// ListByAssignee returns every task assigned to userID.
func (m *Manager) ListByAssignee(ctx context.Context, userID string) ([]*Task, error) {
	tasks, err := m.store.ListByAssignee(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for %s: %w", userID, err)
	}
	return tasks, nil
}

// Patch applies a partial edit. Empty strings for status, title and
// description count as not provided. updated_at always advances.
// No role restriction applies here.
func (m *Manager) Patch(ctx context.Context, id uuid.UUID, p Patch) (*Task, error) {
	p.Status = nonEmpty(p.Status)
	p.Title = nonEmpty(p.Title)
	p.Description = nonEmpty(p.Description)

	t, err := m.store.Patch(ctx, id, p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return t, nil
}

// AppendUpdate records a status update and refreshes the task's
// last-activity marker. A non-empty status also becomes the task status.
func (m *Manager) AppendUpdate(ctx context.Context, taskID uuid.UUID, authorID, message string, status *string) (*Update, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrMessageRequired
	}

	u := &Update{
		ID:       uuid.New(),
		TaskID:   taskID,
		AuthorID: authorID,
		Message:  message,
		Status:   nonEmpty(status),
	}

	if _, err := m.store.AppendUpdate(ctx, u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to append task update: %w", err)
	}

	return u, nil
}

// ListUpdates returns a task's update log, oldest first.
func (m *Manager) ListUpdates(ctx context.Context, taskID uuid.UUID) ([]*Update, error) {
	if _, err := m.Get(ctx, taskID); err != nil {
		return nil, err
	}

	updates, err := m.store.ListUpdates(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task updates: %w", err)
	}
	if updates == nil {
		updates = []*Update{}
	}
	return updates, nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
