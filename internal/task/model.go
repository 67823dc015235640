package task

import (
	"time"

	"github.com/google/uuid"
)

// StatusPending is the status every task is created with.
// Any other status string is accepted as-is from patches and updates.
const StatusPending = "pending"

// Task is a unit of work a manager assigns to one employee.
// JSON names match the mobile client's field names.
type Task struct {
	ID                   uuid.UUID  `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	AssignedTo           string     `json:"assignedTo"`
	AssignedBy           string     `json:"assignedBy"`
	Status               string     `json:"status"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	DueDate              *time.Time `json:"dueDate"`
	LastEmployeeUpdateAt *time.Time `json:"lastEmployeeUpdateAt"`
}

// UpdatedSince reports whether the task received a status update at or after start.
func (t *Task) UpdatedSince(start time.Time) bool {
	return t.LastEmployeeUpdateAt != nil && !t.LastEmployeeUpdateAt.Before(start)
}

// Update is one append-only entry in a task's update log.
type Update struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"taskId"`
	AuthorID  string    `json:"by"`
	Message   string    `json:"message"`
	Status    *string   `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateInput holds input for creating a task.
type CreateInput struct {
	Title       string
	Description string
	AssignedTo  string
	AssignedBy  string
	DueDate     *time.Time
}

// Patch is a partial task edit. Nil pointers leave the column untouched;
// DueDate distinguishes "not provided" from "clear".
type Patch struct {
	Status      *string
	Title       *string
	Description *string
	DueDate     Field[time.Time]
}
