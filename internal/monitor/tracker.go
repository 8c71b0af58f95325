package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"pewwatch/internal/endpoint"
	"pewwatch/internal/eventbus"
	"pewwatch/internal/notify"
	"pewwatch/internal/storage"
	logx "pewwatch/pkg/logx"
)

// Notifier receives endpoint events. *notify.Dispatcher implements it.
type Notifier interface {
	Dispatch(ep endpoint.Endpoint, ev notify.Event)
}

// StateChange is the eventbus payload for endpoint.up and endpoint.down.
type StateChange struct {
	Name      string     `json:"name"`
	DownSince *time.Time `json:"down_since,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

type health struct {
	known     bool
	up        bool
	downSince *time.Time
	firstFail time.Time
	failures  int
	checkedAt time.Time
}

// Tracker turns check results into up/down transitions.
type Tracker struct {
	mu     sync.Mutex
	states map[string]*health

	downAfter int
	notifier  Notifier
	store     storage.Store
	bus       eventbus.Bus
	log       logx.Logger
}

func NewTracker(downAfter int, n Notifier, store storage.Store, bus eventbus.Bus, log logx.Logger) *Tracker {
	if downAfter <= 0 {
		downAfter = 1
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Tracker{
		states:    map[string]*health{},
		downAfter: downAfter,
		notifier:  n,
		store:     store,
		bus:       bus,
		log:       log.With(logx.String("comp", "monitor.tracker")),
	}
}

// SetDownAfter changes the failure threshold for subsequent checks.
func (t *Tracker) SetDownAfter(n int) {
	if n <= 0 {
		n = 1
	}
	t.mu.Lock()
	t.downAfter = n
	t.mu.Unlock()
}

// Restore loads persisted states so outage lengths survive a restart.
func (t *Tracker) Restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	list, err := t.store.ListEndpointStates(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, st := range list {
		h := &health{known: true, up: st.Up, downSince: st.DownSince, failures: st.Failures, checkedAt: st.CheckedAt}
		if !st.Up && st.DownSince == nil {
			h.known = false
		}
		t.states[st.Name] = h
	}
	return nil
}

type transition int

const (
	noChange transition = iota
	wentUp
	wentDown
)

// Observe records one check result and notifies on transitions.
func (t *Tracker) Observe(ctx context.Context, res notify.CheckResult) {
	ep := res.Endpoint
	if t.notifier != nil {
		t.notifier.Dispatch(ep, notify.CheckResultEvent{Result: res})
	}

	at := res.At
	if at.IsZero() {
		at = time.Now()
	}

	t.mu.Lock()
	h := t.states[ep.Name]
	if h == nil {
		h = &health{}
		t.states[ep.Name] = h
	}
	h.checkedAt = at

	var (
		tr        = noChange
		downSince *time.Time
		dirty     bool
	)
	if res.Success() {
		if !h.known || !h.up {
			tr = wentUp
			downSince = h.downSince
			dirty = true
		}
		if h.failures > 0 {
			dirty = true
		}
		h.known, h.up, h.downSince, h.failures, h.firstFail = true, true, nil, 0, time.Time{}
	} else {
		if h.failures == 0 {
			h.firstFail = at
		}
		h.failures++
		dirty = true
		if h.failures >= t.downAfter && (!h.known || h.up) {
			since := h.firstFail
			h.known, h.up, h.downSince = true, false, &since
			tr = wentDown
			downSince = &since
		}
	}
	st := h.snapshot(ep.Name)
	t.mu.Unlock()

	if dirty {
		t.persist(ctx, st)
	}

	switch tr {
	case wentUp:
		t.log.Info("endpoint up", logx.String("endpoint", ep.Name), logx.Int("status", res.Status))
		t.bus.Publish(eventbus.Event{Type: eventbus.EndpointUp, Data: StateChange{Name: ep.Name, DownSince: downSince}})
		if t.notifier != nil {
			t.notifier.Dispatch(ep, notify.UpEvent{DownSince: downSince})
		}
	case wentDown:
		t.log.Warn("endpoint down", logx.String("endpoint", ep.Name), logx.Err(res.Err))
		t.bus.Publish(eventbus.Event{Type: eventbus.EndpointDown, Data: StateChange{Name: ep.Name, DownSince: downSince, Reason: errString(res.Err)}})
		if t.notifier != nil {
			t.notifier.Dispatch(ep, notify.DownEvent{AsOf: *downSince, Reason: res.Err})
		}
	}
}

// Forget drops all state for name.
func (t *Tracker) Forget(ctx context.Context, name string) {
	t.mu.Lock()
	delete(t.states, name)
	t.mu.Unlock()
	if t.store == nil {
		return
	}
	if err := t.store.DeleteEndpointState(ctx, name); err != nil {
		t.log.Warn("delete endpoint state failed", logx.String("endpoint", name), logx.Err(err))
	}
}

// Snapshot returns the tracked states sorted by name.
func (t *Tracker) Snapshot() []storage.EndpointState {
	t.mu.Lock()
	out := make([]storage.EndpointState, 0, len(t.states))
	for name, h := range t.states {
		out = append(out, h.snapshot(name))
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (h *health) snapshot(name string) storage.EndpointState {
	st := storage.EndpointState{Name: name, Up: h.known && h.up, Failures: h.failures, CheckedAt: h.checkedAt}
	if h.downSince != nil {
		ds := *h.downSince
		st.DownSince = &ds
	}
	return st
}

func (t *Tracker) persist(ctx context.Context, st storage.EndpointState) {
	if t.store == nil {
		return
	}
	if err := t.store.PutEndpointState(ctx, st); err != nil && !errors.Is(err, context.Canceled) {
		t.log.Warn("persist endpoint state failed", logx.String("endpoint", st.Name), logx.Err(err))
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
