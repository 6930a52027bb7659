package email

import (
	"context"
)

// Message is one outgoing email with HTML and plain-text bodies.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers messages through an external transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
