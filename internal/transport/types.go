// Package transport delivers formatted notification text to chat channels.
package transport

import "context"

// Sender posts one plain-text message to a destination.
//
// Enabled reports whether a destination is configured at all; callers skip
// formatting and sending when it is false. Send makes a single attempt.
type Sender interface {
	Enabled() bool
	Send(ctx context.Context, text string) error
}

// Named is implemented by senders that report a channel name for history
// and logs ("webhook", "telegram").
type Named interface {
	Channel() string
}

// ChannelOf returns the channel name of s, or "unknown".
func ChannelOf(s Sender) string {
	if n, ok := s.(Named); ok {
		return n.Channel()
	}
	return "unknown"
}
