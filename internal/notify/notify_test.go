package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"pewwatch/internal/endpoint"
)

type sentMsg struct {
	at   time.Time
	text string
}

type recSender struct {
	enabled bool
	err     error

	mu   sync.Mutex
	msgs []sentMsg
}

func newRecSender() *recSender { return &recSender{enabled: true} }

func (r *recSender) Enabled() bool   { return r.enabled }
func (r *recSender) Channel() string { return "test" }
func (r *recSender) Send(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sentMsg{at: time.Now(), text: text})
	return r.err
}

func (r *recSender) sent() []sentMsg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMsg(nil), r.msgs...)
}

func (r *recSender) texts() []string {
	var out []string
	for _, m := range r.sent() {
		out = append(out, m.text)
	}
	return out
}

// manualTimers captures scheduled callbacks so tests decide when they fire.
type manualTimers struct {
	mu  sync.Mutex
	fns []func()
}

func (m *manualTimers) afterFunc(_ time.Duration, f func()) {
	m.mu.Lock()
	m.fns = append(m.fns, f)
	m.mu.Unlock()
}

func (m *manualTimers) fire(i int) {
	m.mu.Lock()
	f := m.fns[i]
	m.mu.Unlock()
	f()
}

func ep(name string) endpoint.Endpoint {
	return endpoint.Endpoint{Name: name, Location: "https://" + name + ".example.com", Enabled: true}
}

type detailErr struct{ msg, details string }

func (e *detailErr) Error() string   { return e.msg }
func (e *detailErr) Details() string { return e.details }

var errBoom = errors.New("boom")
