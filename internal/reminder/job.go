package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"
)

// Report summarizes one reminder run.
type Report struct {
	StartOfDay time.Time  `json:"startOfDay"`
	Recipients int        `json:"recipients"`
	Sent       int        `json:"sent"`
	Failed     int        `json:"failed"`
	Delivered  []Delivery `json:"delivered"`
	Failures   []Failure  `json:"failures"`
}

// DefaultRunTimeout bounds a single run when none is configured.
const DefaultRunTimeout = 5 * time.Minute

const runKey = "daily-reminders"

// Job runs a scan followed by a dispatch. Concurrent calls to Run share
// the run already in flight.
type Job struct {
	scanner    *Scanner
	dispatcher *Dispatcher
	now        func() time.Time
	timeout    time.Duration
	group      singleflight.Group
}

// JobOption configures a Job.
type JobOption func(*Job)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) JobOption {
	return func(j *Job) { j.now = now }
}

// WithRunTimeout bounds each run.
func WithRunTimeout(d time.Duration) JobOption {
	return func(j *Job) {
		if d > 0 {
			j.timeout = d
		}
	}
}

// NewJob creates a reminder job.
func NewJob(scanner *Scanner, dispatcher *Dispatcher, opts ...JobOption) *Job {
	j := &Job{
		scanner:    scanner,
		dispatcher: dispatcher,
		now:        time.Now,
		timeout:    DefaultRunTimeout,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run scans and dispatches once. A caller that arrives while a run is in
// flight receives that run's report. Cancelling ctx stops the wait but not
// the shared run, which is bounded by the run timeout instead.
func (j *Job) Run(ctx context.Context) (*Report, error) {
	ch := j.group.DoChan(runKey, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.timeout)
		defer cancel()
		return j.run(runCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Report), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Preview returns today's recipients without sending anything.
func (j *Job) Preview(ctx context.Context) ([]Recipient, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	return j.scanner.Scan(ctx, j.now())
}

func (j *Job) run(ctx context.Context) (*Report, error) {
	now := j.now()
	recipients, err := j.scanner.Scan(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("reminder scan failed: %w", err)
	}

	report := j.dispatcher.Dispatch(ctx, recipients)
	report.StartOfDay = StartOfDay(now, j.scanner.Location())

	log.Printf("reminder run complete: recipients=%d sent=%d failed=%d", report.Recipients, report.Sent, report.Failed)
	return &report, nil
}
