package sms

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
)

const LogName = "log"

// Log writes messages to the process log instead of delivering them.
// Used for local development and the in-memory backend.
type Log struct{}

// NewLog creates a log sender.
func NewLog() *Log {
	return &Log{}
}

func (l *Log) Name() string {
	return LogName
}

func (l *Log) Send(_ context.Context, to, body string) (string, error) {
	if strings.TrimSpace(to) == "" {
		return "", ErrMissingNumber
	}
	sid := "LOG" + strings.ReplaceAll(uuid.NewString(), "-", "")
	log.Printf("[sms] to=%s sid=%s body=%q", to, sid, body)
	return sid, nil
}
