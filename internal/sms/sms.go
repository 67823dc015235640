package sms

import (
	"context"
	"errors"
)

// Sender delivers a single text message.
type Sender interface {
	// Name returns the transport identifier (e.g., "twilio", "log")
	Name() string

	// Send delivers body to the E.164 number to and returns the
	// transport's message ID.
	Send(ctx context.Context, to, body string) (string, error)
}

// Common errors
var (
	ErrSenderNotFound  = errors.New("sms sender not found")
	ErrMissingNumber   = errors.New("destination number required")
	ErrDeliveryFailed  = errors.New("sms delivery failed")
	ErrInvalidResponse = errors.New("invalid sms provider response")
)
