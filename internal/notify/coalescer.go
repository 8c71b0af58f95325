package notify

import (
	"sync"
	"time"

	"pewwatch/internal/endpoint"
	"pewwatch/internal/eventbus"
	kit "pewwatch/internal/transport"
	logx "pewwatch/pkg/logx"
)

// Coalescer batches recoveries that arrive within one quiet window of each
// other into a single message.
//
// Every Enqueue schedules its own one-shot timer and bumps outstanding.
// Each timer decrements outstanding when it fires; only the firing that
// brings it to zero flushes. Timers are never cancelled: the count alone
// decides which firing is the last one.
type Coalescer struct {
	mu          sync.Mutex
	pending     []endpoint.Endpoint
	outstanding int

	window    time.Duration
	out       *outlet
	afterFunc func(time.Duration, func())
}

func NewCoalescer(cfg Config, sender kit.Sender, log logx.Logger, bus eventbus.Bus) *Coalescer {
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "notify.coalescer"))
	return &Coalescer{
		window: cfg.withDefaults().QuietWindow,
		out:    newOutlet(cfg, sender, log, bus),
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// Window returns the quiet window.
func (c *Coalescer) Window() time.Duration { return c.window }

// Enqueue adds ep to the pending batch and schedules a flush check.
func (c *Coalescer) Enqueue(ep endpoint.Endpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, ep)
	c.afterFunc(c.window, c.onTimerFired)
	c.outstanding++
}

func (c *Coalescer) onTimerFired() {
	c.mu.Lock()
	c.outstanding--
	if c.outstanding > 0 {
		c.mu.Unlock()
		return
	}
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	c.flush(batch)
}

// Drain flushes whatever is pending now. Outstanding timers still fire
// later and find an empty batch.
func (c *Coalescer) Drain() {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	c.flush(batch)
}

// Pending returns the number of endpoints waiting to be flushed.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Coalescer) flush(batch []endpoint.Endpoint) {
	if len(batch) == 0 {
		return
	}
	names := make([]string, len(batch))
	for i, ep := range batch {
		names[i] = ep.Name
	}
	c.out.bus.Publish(eventbus.Event{Type: eventbus.NotifyCoalesced, Data: names})
	if !c.out.enabled() {
		return
	}
	c.out.send("up", names, FormatUpBatch(batch))
}
