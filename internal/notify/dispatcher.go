package notify

import (
	"time"

	"pewwatch/internal/endpoint"
	"pewwatch/internal/eventbus"
	kit "pewwatch/internal/transport"
	logx "pewwatch/pkg/logx"
)

// Dispatcher formats endpoint events and sends them. All methods are
// fire-and-forget and safe for concurrent use.
type Dispatcher struct {
	out *outlet
	up  *Coalescer
	now func() time.Time
}

// NewDispatcher routes recoveries without a known down time to up.
func NewDispatcher(cfg Config, sender kit.Sender, up *Coalescer, log logx.Logger, bus eventbus.Bus) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	if up == nil {
		up = NewCoalescer(cfg, sender, log, bus)
	}
	return &Dispatcher{
		out: newOutlet(cfg, sender, log.With(logx.String("comp", "notify.dispatcher")), bus),
		up:  up,
		now: time.Now,
	}
}

// Coalescer returns the recovery batcher.
func (d *Dispatcher) Coalescer() *Coalescer { return d.up }

// Dispatch routes ev to the matching Notify method.
func (d *Dispatcher) Dispatch(ep endpoint.Endpoint, ev Event) {
	switch e := ev.(type) {
	case LifecycleEvent:
		d.NotifyLifecycle(ep, e.Kind)
	case DownEvent:
		d.NotifyDown(ep, e.AsOf, e.Reason)
	case UpEvent:
		d.NotifyUp(ep, e.DownSince)
	case CheckResultEvent:
		d.NotifyCheckResult(ep, e.Result)
	case nil:
	default:
		d.out.log.Warn("unhandled notify event", logx.String("endpoint", ep.Name))
	}
}

func (d *Dispatcher) NotifyLifecycle(ep endpoint.Endpoint, kind Lifecycle) {
	if !d.out.enabled() {
		return
	}
	text := FormatLifecycle(ep, kind)
	if text == "" {
		return
	}
	d.out.send(kind.String(), []string{ep.Name}, text)
}

// NotifyCheckResult ignores individual check results.
func (d *Dispatcher) NotifyCheckResult(ep endpoint.Endpoint, result CheckResult) {}

// NotifyDown reports ep as down. downAsOf is when the outage started.
func (d *Dispatcher) NotifyDown(ep endpoint.Endpoint, downAsOf time.Time, reason error) {
	if !d.out.enabled() {
		return
	}
	d.out.send("down", []string{ep.Name}, FormatDown(ep, reason))
}

// NotifyUp reports recovery. With a known downAsOf the message includes the
// outage length and is sent now; otherwise ep joins the coalesced batch.
func (d *Dispatcher) NotifyUp(ep endpoint.Endpoint, downAsOf *time.Time) {
	if downAsOf == nil {
		d.up.Enqueue(ep)
		return
	}
	if !d.out.enabled() {
		return
	}
	d.out.send("up", []string{ep.Name}, FormatUpAfter(ep, d.now().Sub(*downAsOf)))
}
