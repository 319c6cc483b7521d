// Package push wraps the external push-notification provider behind a
// narrow interface. The core never interprets provider responses beyond
// success or failure per token.
package push

import "context"

// Notification is one push request for a single device token.
type Notification struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Provider delivers a notification to one device token.
type Provider interface {
	Send(ctx context.Context, n Notification) error
}
