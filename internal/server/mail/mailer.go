// Package mail sends account emails over SMTP. Sending runs asynchronously
// through Dispatch, and callers await the result.
package mail

import "context"

// Message is a plain-text email to a single recipient. An empty From uses
// the mailer's configured sender.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer delivers a message or reports why it could not.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
