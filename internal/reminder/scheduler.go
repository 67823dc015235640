package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner is the unit of work the scheduler triggers.
type Runner interface {
	Run(ctx context.Context) (*Report, error)
}

// Scheduler triggers a Runner once a day at a fixed local hour.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string
	loc    *time.Location
}

// NewScheduler creates a scheduler firing daily at hour:00 in loc.
// A trigger that fires while the previous run is still going is skipped.
func NewScheduler(runner Runner, hour int, loc *time.Location) (*Scheduler, error) {
	if hour < 0 || hour > 23 {
		return nil, fmt.Errorf("invalid reminder hour %d: must be 0-23", hour)
	}
	if loc == nil {
		loc = time.UTC
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	s := &Scheduler{
		cron:   c,
		runner: runner,
		spec:   fmt.Sprintf("0 %d * * *", hour),
		loc:    loc,
	}

	if _, err := c.AddFunc(s.spec, s.trigger); err != nil {
		return nil, fmt.Errorf("failed to schedule reminders: %w", err)
	}
	return s, nil
}

// Spec returns the cron expression in use.
func (s *Scheduler) Spec() string {
	return s.spec
}

// Next returns the next trigger time in the scheduler's location.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now().In(s.loc))
}

// Start begins scheduling in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running trigger to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// trigger errors are only logged.
func (s *Scheduler) trigger() {
	if _, err := s.runner.Run(context.Background()); err != nil {
		log.Printf("scheduled reminder run failed: %v", err)
	}
}
