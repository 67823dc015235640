// Package reminder finds employees who have not posted a status update
// today and texts each of them a reminder.
package reminder

import (
	"context"
	"fmt"
	"time"

	"taskflow/internal/task"
	"taskflow/internal/user"

	"golang.org/x/sync/errgroup"
)

// EmployeeSource lists employees that can receive an SMS.
type EmployeeSource interface {
	ListReachableEmployees(ctx context.Context) ([]*user.User, error)
}

// TaskSource lists the tasks assigned to one user.
type TaskSource interface {
	ListByAssignee(ctx context.Context, userID string) ([]*task.Task, error)
}

// Recipient is a delinquent employee with a phone number.
type Recipient struct {
	UserID string `json:"userId"`
	Phone  string `json:"phone"`
}

// StartOfDay returns local midnight of now's calendar day in loc.
func StartOfDay(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// IsDelinquent reports whether none of tasks received an update at or
// after start. An employee with no tasks is delinquent.
func IsDelinquent(tasks []*task.Task, start time.Time) bool {
	for _, t := range tasks {
		if t.UpdatedSince(start) {
			return false
		}
	}
	return true
}

// Scanner computes the delinquent set.
type Scanner struct {
	employees   EmployeeSource
	tasks       TaskSource
	loc         *time.Location
	concurrency int
}

// NewScanner creates a scanner evaluating days in loc.
// Task lookups run concurrently, at most concurrency at a time.
func NewScanner(employees EmployeeSource, tasks TaskSource, loc *time.Location, concurrency int) *Scanner {
	if loc == nil {
		loc = time.UTC
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scanner{employees: employees, tasks: tasks, loc: loc, concurrency: concurrency}
}

// Location returns the timezone the scanner evaluates days in.
func (s *Scanner) Location() *time.Location {
	return s.loc
}

// Scan returns the reachable employees with no update today, in employee
// order. Any lookup error aborts the scan and no recipients are returned.
func (s *Scanner) Scan(ctx context.Context, now time.Time) ([]Recipient, error) {
	start := StartOfDay(now, s.loc)

	employees, err := s.employees.ListReachableEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	delinquent := make([]bool, len(employees))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, e := range employees {
		g.Go(func() error {
			tasks, err := s.tasks.ListByAssignee(gctx, e.ID)
			if err != nil {
				return fmt.Errorf("failed to list tasks for %s: %w", e.ID, err)
			}
			delinquent[i] = IsDelinquent(tasks, start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	recipients := []Recipient{}
	for i, e := range employees {
		if delinquent[i] && e.HasPhone() {
			recipients = append(recipients, Recipient{UserID: e.ID, Phone: *e.Phone})
		}
	}
	return recipients, nil
}
