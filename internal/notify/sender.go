package notify

import (
	"context"
	"log"
)

// Sender is the outbound delivery contract. SMS/email providers live
// behind it; delivery failures are the caller's to log, never to
// propagate into the mutation that triggered the notification.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// LogSender writes notifications to the process log. It stands in for a
// real provider in development and tests.
type LogSender struct{}

func (LogSender) Send(_ context.Context, recipient, subject, body string) error {
	log.Printf("notify %s: %s: %s", recipient, subject, body)
	return nil
}
