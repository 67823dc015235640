package reminder

import (
	"context"
	"log"
	"sync"

	"taskflow/internal/sms"

	"golang.org/x/sync/errgroup"
)

// Message is the body of every reminder SMS.
const Message = "Reminder: Please submit your daily task updates in TaskFlow."

// Failure records one recipient the transport rejected.
type Failure struct {
	UserID string `json:"userId"`
	Error  string `json:"error"`
}

// Delivery records one accepted message.
type Delivery struct {
	UserID string `json:"userId"`
	SID    string `json:"sid"`
}

// Dispatcher sends one reminder per recipient.
type Dispatcher struct {
	sender      sms.Sender
	concurrency int
}

// NewDispatcher creates a dispatcher sending at most concurrency
// messages at a time.
func NewDispatcher(sender sms.Sender, concurrency int) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{sender: sender, concurrency: concurrency}
}

// Dispatch attempts every recipient before returning. A failed send is
// logged and recorded; it never stops the remaining sends.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []Recipient) Report {
	var (
		mu     sync.Mutex
		report = Report{
			Recipients: len(recipients),
			Delivered:  []Delivery{},
			Failures:   []Failure{},
		}
	)

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, r := range recipients {
		g.Go(func() error {
			sid, err := d.sender.Send(ctx, r.Phone, Message)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("failed to send reminder to %s: %v", r.UserID, err)
				report.Failures = append(report.Failures, Failure{UserID: r.UserID, Error: err.Error()})
				return nil
			}
			report.Delivered = append(report.Delivered, Delivery{UserID: r.UserID, SID: sid})
			return nil
		})
	}
	_ = g.Wait()

	report.Sent = len(report.Delivered)
	report.Failed = len(report.Failures)
	return report
}
