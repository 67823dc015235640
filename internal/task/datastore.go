package task

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Store is the persistence contract for tasks and their update logs.
// Implementations return sql.ErrNoRows when a task does not exist and
// assign CreatedAt/UpdatedAt themselves.
type Store interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	List(ctx context.Context) ([]*Task, error)
	ListByAssignee(ctx context.Context, userID string) ([]*Task, error)
	Patch(ctx context.Context, id uuid.UUID, p Patch) (*Task, error)
	AppendUpdate(ctx context.Context, u *Update) (*Task, error)
	ListUpdates(ctx context.Context, taskID uuid.UUID) ([]*Update, error)
}

const taskColumns = `id, title, description, assigned_to, assigned_by, status,
	created_at, updated_at, due_date, last_employee_update_at`

// Datastore handles PostgreSQL operations for tasks.
// It performs only database operations and returns raw errors.
// Business logic and error translation belong in the Manager.
type Datastore struct {
	db *sql.DB
}

// NewDatastore creates a new task datastore.
func NewDatastore(db *sql.DB) *Datastore {
	return &Datastore{db: db}
}

// Create inserts a task. Timestamps are assigned by the database.
func (ds *Datastore) Create(ctx context.Context, t *Task) error {
	query := `
		INSERT INTO tasks (id, title, description, assigned_to, assigned_by, status,
			created_at, updated_at, due_date, last_employee_update_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW(), $7, NULL)
		RETURNING created_at, updated_at`

	return ds.db.QueryRowContext(ctx, query,
		t.ID, t.Title, t.Description, t.AssignedTo, t.AssignedBy, t.Status, t.DueDate,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// GetByID retrieves a task by its ID.
// Returns sql.ErrNoRows if not found.
func (ds *Datastore) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(ds.db.QueryRowContext(ctx, query, id))
}

// List retrieves every task, newest first.
func (ds *Datastore) List(ctx context.Context) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC`
	return ds.queryTasks(ctx, query)
}

// ListByAssignee retrieves the tasks assigned to one user, newest first.
func (ds *Datastore) ListByAssignee(ctx context.Context, userID string) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assigned_to = $1 ORDER BY created_at DESC`
	return ds.queryTasks(ctx, query, userID)
}

// Patch applies the provided fields and always refreshes updated_at.
// Returns sql.ErrNoRows if the task does not exist.
func (ds *Datastore) Patch(ctx context.Context, id uuid.UUID, p Patch) (*Task, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	switch p.DueDate.State {
	case FieldNull:
		sets = append(sets, "due_date = NULL")
	case FieldValue:
		add("due_date", p.DueDate.Value)
	}

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + taskColumns
	return scanTask(ds.db.QueryRowContext(ctx, query, args...))
}

// AppendUpdate writes the update log entry and merges it into the parent
// task in one transaction. The task row is locked first so a concurrent
// patch is ordered before or after the whole append.
// Returns sql.ErrNoRows if the task does not exist.
func (ds *Datastore) AppendUpdate(ctx context.Context, u *Update) (*Task, error) {
	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var locked uuid.UUID
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM tasks WHERE id = $1 FOR UPDATE`, u.TaskID,
	).Scan(&locked); err != nil {
		return nil, err
	}

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO task_updates (id, task_id, author_id, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at`,
		u.ID, u.TaskID, u.AuthorID, u.Message, u.Status,
	).Scan(&u.CreatedAt); err != nil {
		return nil, err
	}

	// GREATEST ignores NULL, so a first update simply sets the column.
	t, err := scanTask(tx.QueryRowContext(ctx, `
		UPDATE tasks
		SET last_employee_update_at = GREATEST(last_employee_update_at, NOW()),
			updated_at = NOW(),
			status = COALESCE($2, status)
		WHERE id = $1
		RETURNING `+taskColumns,
		u.TaskID, u.Status,
	))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return t, nil
}

// ListUpdates retrieves a task's update log, oldest first.
func (ds *Datastore) ListUpdates(ctx context.Context, taskID uuid.UUID) ([]*Update, error) {
	query := `
		SELECT id, task_id, author_id, message, status, created_at
		FROM task_updates
		WHERE task_id = $1
		ORDER BY created_at ASC`

	rows, err := ds.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var updates []*Update
	for rows.Next() {
		var (
			u      Update
			status sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.TaskID, &u.AuthorID, &u.Message, &status, &u.CreatedAt); err != nil {
			return nil, err
		}
		if status.Valid {
			s := status.String
			u.Status = &s
		}
		updates = append(updates, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return updates, nil
}

func (ds *Datastore) queryTasks(ctx context.Context, query string, args ...any) ([]*Task, error) {
	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var (
		t                   Task
		dueDate, lastUpdate sql.NullTime
	)
	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.AssignedTo, &t.AssignedBy, &t.Status,
		&t.CreatedAt, &t.UpdatedAt, &dueDate, &lastUpdate,
	); err != nil {
		return nil, err
	}
	if dueDate.Valid {
		d := dueDate.Time
		t.DueDate = &d
	}
	if lastUpdate.Valid {
		l := lastUpdate.Time
		t.LastEmployeeUpdateAt = &l
	}
	return &t, nil
}
