package notify

import (
	"context"
	"time"

	"pewwatch/internal/eventbus"
	kit "pewwatch/internal/transport"
	logx "pewwatch/pkg/logx"
)

const (
	DefaultQuietWindow = 2500 * time.Millisecond
	DefaultSendTimeout = 10 * time.Second
)

// Config controls notification timing.
type Config struct {
	// QuietWindow is how long the coalescer waits after the last recovery
	// before flushing the batch.
	QuietWindow time.Duration
	SendTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.QuietWindow <= 0 {
		c.QuietWindow = DefaultQuietWindow
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	return c
}

// SentEvent is the eventbus payload for notify.sent and notify.failed.
type SentEvent struct {
	Kind      string   `json:"kind"`
	Endpoints []string `json:"endpoints"`
	Channel   string   `json:"channel"`
	Error     string   `json:"error,omitempty"`
}

// outlet is the single send path shared by the dispatcher and coalescer.
// Transport errors are logged and published, never returned.
type outlet struct {
	sender  kit.Sender
	log     logx.Logger
	bus     eventbus.Bus
	timeout time.Duration
}

func newOutlet(cfg Config, sender kit.Sender, log logx.Logger, bus eventbus.Bus) *outlet {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	return &outlet{sender: sender, log: log, bus: bus, timeout: cfg.withDefaults().SendTimeout}
}

func (o *outlet) enabled() bool {
	return o.sender != nil && o.sender.Enabled()
}

func (o *outlet) send(kind string, names []string, text string) {
	if !o.enabled() {
		o.log.Debug("no notification destination configured", logx.String("kind", kind))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	ev := SentEvent{Kind: kind, Endpoints: names, Channel: kit.ChannelOf(o.sender)}
	if err := o.sender.Send(ctx, text); err != nil {
		o.log.Error("unable to send notification",
			logx.Err(err), logx.String("kind", kind), logx.Strings("endpoints", names))
		ev.Error = err.Error()
		o.bus.Publish(eventbus.Event{Type: eventbus.NotifyFailed, Data: ev})
		return
	}
	o.log.Debug("notification sent", logx.String("kind", kind), logx.Strings("endpoints", names))
	o.bus.Publish(eventbus.Event{Type: eventbus.NotifySent, Data: ev})
}
