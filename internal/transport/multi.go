package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Multi fans a message out to every enabled child sender.
type Multi []Sender

func (m Multi) Enabled() bool {
	for _, s := range m {
		if s != nil && s.Enabled() {
			return true
		}
	}
	return false
}

// Send tries every enabled child and joins their failures.
func (m Multi) Send(ctx context.Context, text string) error {
	var errs []error
	for _, s := range m {
		if s == nil || !s.Enabled() {
			continue
		}
		if err := s.Send(ctx, text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ChannelOf(s), err))
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Channel() string {
	names := make([]string, 0, len(m))
	for _, s := range m {
		if s != nil && s.Enabled() {
			names = append(names, ChannelOf(s))
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}
