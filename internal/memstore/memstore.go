// Package memstore provides in-memory implementations of the user and task
// store contracts. It backs STORE_BACKEND=memory and the package tests.
package memstore

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"taskflow/internal/task"
	"taskflow/internal/user"

	"github.com/google/uuid"
)

// Clock returns the "server" time used for every assigned timestamp.
type Clock func() time.Time

// Users is an in-memory user.Store.
type Users struct {
	mu    sync.RWMutex
	now   Clock
	users map[string]*user.User
}

// NewUsers creates an empty user store. A nil clock uses time.Now.
func NewUsers(now Clock) *Users {
	if now == nil {
		now = time.Now
	}
	return &Users{now: now, users: make(map[string]*user.User)}
}

// Upsert creates or overwrites a profile, keeping its original created_at.
func (s *Users) Upsert(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	u.CreatedAt = now
	if existing, ok := s.users[u.ID]; ok {
		u.CreatedAt = existing.CreatedAt
	}
	u.UpdatedAt = now

	stored := *u
	s.users[u.ID] = &stored
	return nil
}

// GetByID returns sql.ErrNoRows for unknown IDs.
func (s *Users) GetByID(_ context.Context, id string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *u
	return &out, nil
}

// ListByRole returns profiles with the given role in ID order.
func (s *Users) ListByRole(_ context.Context, role user.Role) ([]*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*user.User
	for _, u := range s.users {
		if u.Role == role {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Tasks is an in-memory task.Store.
//
// AppendUpdate is two separate writes (log append, then task merge), the
// same shape as a document store without multi-document transactions.
type Tasks struct {
	mu      sync.RWMutex
	now     Clock
	tasks   map[uuid.UUID]*task.Task
	order   []uuid.UUID
	updates map[uuid.UUID][]*task.Update
}

// NewTasks creates an empty task store. A nil clock uses time.Now.
func NewTasks(now Clock) *Tasks {
	if now == nil {
		now = time.Now
	}
	return &Tasks{
		now:     now,
		tasks:   make(map[uuid.UUID]*task.Task),
		updates: make(map[uuid.UUID][]*task.Update),
	}
}

func (s *Tasks) Create(_ context.Context, t *task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.LastEmployeeUpdateAt = nil

	s.tasks[t.ID] = copyTask(t)
	s.order = append(s.order, t.ID)
	return nil
}

func (s *Tasks) GetByID(_ context.Context, id uuid.UUID) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return copyTask(t), nil
}

func (s *Tasks) List(_ context.Context) ([]*task.Task, error) {
	return s.filter(func(*task.Task) bool { return true }), nil
}

func (s *Tasks) ListByAssignee(_ context.Context, userID string) ([]*task.Task, error) {
	return s.filter(func(t *task.Task) bool { return t.AssignedTo == userID }), nil
}

func (s *Tasks) Patch(_ context.Context, id uuid.UUID, p task.Patch) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}

	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	switch p.DueDate.State {
	case task.FieldNull:
		t.DueDate = nil
	case task.FieldValue:
		t.DueDate = p.DueDate.Ptr()
	}
	t.UpdatedAt = s.now()

	return copyTask(t), nil
}

func (s *Tasks) AppendUpdate(_ context.Context, u *task.Update) (*task.Task, error) {
	now, err := s.appendLog(u)
	if err != nil {
		return nil, err
	}
	return s.mergeUpdate(u, now)
}

// appendLog is the first write: the update record itself.
func (s *Tasks) appendLog(u *task.Update) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[u.TaskID]; !ok {
		return time.Time{}, sql.ErrNoRows
	}

	now := s.now()
	u.CreatedAt = now
	stored := *u
	s.updates[u.TaskID] = append(s.updates[u.TaskID], &stored)
	return now, nil
}

// mergeUpdate is the second write: activity marker, updated_at and status.
func (s *Tasks) mergeUpdate(u *task.Update, now time.Time) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[u.TaskID]
	if !ok {
		return nil, sql.ErrNoRows
	}

	if t.LastEmployeeUpdateAt == nil || now.After(*t.LastEmployeeUpdateAt) {
		ts := now
		t.LastEmployeeUpdateAt = &ts
	}
	t.UpdatedAt = now
	if u.Status != nil {
		t.Status = *u.Status
	}
	return copyTask(t), nil
}

func (s *Tasks) ListUpdates(_ context.Context, taskID uuid.UUID) ([]*task.Update, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*task.Update, 0, len(s.updates[taskID]))
	for _, u := range s.updates[taskID] {
		c := *u
		out = append(out, &c)
	}
	return out, nil
}

// filter returns matching tasks newest first; ties keep the later insert first.
func (s *Tasks) filter(keep func(*task.Task) bool) []*task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*task.Task
	for i := len(s.order) - 1; i >= 0; i-- {
		t := s.tasks[s.order[i]]
		if keep(t) {
			out = append(out, copyTask(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func copyTask(t *task.Task) *task.Task {
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.LastEmployeeUpdateAt != nil {
		l := *t.LastEmployeeUpdateAt
		c.LastEmployeeUpdateAt = &l
	}
	return &c
}

var (
	_ user.Store = (*Users)(nil)
	_ task.Store = (*Tasks)(nil)
)
