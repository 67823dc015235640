package user

import (
	"strings"
	"time"
)

// Role is the single capability a profile carries.
type Role string

const (
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// ParseRole validates a caller-supplied role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleManager, RoleEmployee:
		return Role(s), nil
	}
	return "", ErrInvalidRole
}

// User is a self-registered profile keyed by the identity provider's subject.
// Name, Phone and Email are nullable.
type User struct {
	ID        string    `json:"id"`
	Name      *string   `json:"name"`
	Phone     *string   `json:"phone"`
	Role      Role      `json:"role"`
	Email     *string   `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasPhone reports whether the user can receive SMS reminders.
func (u *User) HasPhone() bool {
	return u.Phone != nil && strings.TrimSpace(*u.Phone) != ""
}

// Identity is the verified caller as reported by the identity provider.
type Identity struct {
	UserID string
	Email  string
}

// optionalString trims s and maps blank values to nil.
func optionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
