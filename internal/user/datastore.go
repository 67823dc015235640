package user

import (
	"context"
	"database/sql"
)

// Store is the persistence contract for user profiles.
// Implementations return sql.ErrNoRows when a profile does not exist.
type Store interface {
	Upsert(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	ListByRole(ctx context.Context, role Role) ([]*User, error)
}

// Datastore handles PostgreSQL operations for users.
// It performs only database operations and returns raw errors.
type Datastore struct {
	db *sql.DB
}

// NewDatastore creates a new user datastore.
func NewDatastore(db *sql.DB) *Datastore {
	return &Datastore{db: db}
}

// Upsert creates the profile or overwrites its mutable fields.
// created_at survives the merge; both timestamps are assigned by the database.
func (ds *Datastore) Upsert(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, name, phone, role, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (id)
		DO UPDATE SET name = EXCLUDED.name, phone = EXCLUDED.phone, role = EXCLUDED.role,
			email = EXCLUDED.email, updated_at = NOW()
		RETURNING created_at, updated_at`

	return ds.db.QueryRowContext(ctx, query,
		u.ID, u.Name, u.Phone, string(u.Role), u.Email,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
}

// GetByID retrieves a profile by identity subject.
// Returns sql.ErrNoRows if not found.
func (ds *Datastore) GetByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, name, phone, role, email, created_at, updated_at
		FROM users WHERE id = $1`

	return scanUser(ds.db.QueryRowContext(ctx, query, id))
}

// ListByRole retrieves every profile with the given role.
func (ds *Datastore) ListByRole(ctx context.Context, role Role) ([]*User, error) {
	query := `
		SELECT id, name, phone, role, email, created_at, updated_at
		FROM users WHERE role = $1
		ORDER BY id`

	rows, err := ds.db.QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u                  User
		role               string
		name, phone, email sql.NullString
	)
	if err := row.Scan(&u.ID, &name, &phone, &role, &email, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = Role(role)
	u.Name = fromNullString(name)
	u.Phone = fromNullString(phone)
	u.Email = fromNullString(email)
	return &u, nil
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
