package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Domain errors
var (
	ErrNotFound        = errors.New("user not found")
	ErrInvalidRole     = errors.New("role must be manager|employee")
	ErrInvalidIdentity = errors.New("identity has no user ID")
	ErrForbidden       = errors.New("forbidden")
)

// Manager is the user directory: profile registration and lookups.
type Manager struct {
	store Store
}

// NewManager creates a new user manager.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// UpsertSelf creates or merges the caller's own profile.
// The email always comes from the verified identity, never from caller input.
// An invalid role fails before anything is persisted.
func (m *Manager) UpsertSelf(ctx context.Context, identity Identity, role string, name, phone *string) (*User, error) {
	parsed, err := ParseRole(role)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(identity.UserID) == "" {
		return nil, ErrInvalidIdentity
	}

	email := identity.Email
	u := &User{
		ID:    identity.UserID,
		Name:  optionalString(name),
		Phone: optionalString(phone),
		Role:  parsed,
		Email: optionalString(&email),
	}

	if err := m.store.Upsert(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return u, nil
}

// Get retrieves a profile by identity subject.
func (m *Manager) Get(ctx context.Context, id string) (*User, error) {
	u, err := m.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ListEmployees returns every employee profile. Order is unspecified.
func (m *Manager) ListEmployees(ctx context.Context) ([]*User, error) {
	users, err := m.store.ListByRole(ctx, RoleEmployee)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return users, nil
}

// ListReachableEmployees returns the employees that have a phone number.
func (m *Manager) ListReachableEmployees(ctx context.Context) ([]*User, error) {
	employees, err := m.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	reachable := make([]*User, 0, len(employees))
	for _, u := range employees {
		if u.HasPhone() {
			reachable = append(reachable, u)
		}
	}
	return reachable, nil
}

// Authorize reports whether u may perform an operation that requires role.
// A nil profile (caller never registered) is always forbidden.
func Authorize(u *User, required Role) error {
	if u == nil || u.Role != required {
		return ErrForbidden
	}
	return nil
}
