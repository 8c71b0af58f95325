package notify

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pewwatch/internal/eventbus"
	logx "pewwatch/pkg/logx"
)

func newTestDispatcher(s *recSender) (*Dispatcher, *manualTimers) {
	c, mt := newManualCoalescer(s)
	return NewDispatcher(Config{}, s, c, logx.Nop(), nil), mt
}

func TestNotifyUpWithDownTimeSendsImmediately(t *testing.T) {
	t.Parallel()
	s := newRecSender()
	d, mt := newTestDispatcher(s)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	since := now.Add(-5 * time.Minute)
	d.NotifyUp(ep("api"), &since)

	require.Len(t, s.sent(), 1)
	assert.Equal(t, "The endpoint `api` is up after being down for 5 minutes. Hooray!", s.texts()[0])
	assert.Zero(t, d.Coalescer().Pending())
	assert.Empty(t, mt.fns, "must not schedule a coalescer timer")
}

func TestNotifyUpWithoutDownTimeIsCoalesced(t *testing.T) {
	t.Parallel()
	s := newRecSender()
	d, mt := newTestDispatcher(s)

	d.NotifyUp(ep("a"), nil)
	d.NotifyUp(ep("b"), nil)
	assert.Empty(t, s.sent())
	assert.Equal(t, 2, d.Coalescer().Pending())

	mt.fire(0)
	mt.fire(1)
	assert.Equal(t, []string{"The following endpoints are up: `a`, `b`. Hooray!"}, s.texts())
}

func TestNotifyDownPunctuation(t *testing.T) {
	t.Parallel()
	s := newRecSender()
	d, _ := newTestDispatcher(s)

	d.NotifyDown(ep("db"), time.Now(), errors.New("disk full"))
	d.NotifyDown(ep("db"), time.Now(), errors.New("disk full!"))

	texts := s.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "The endpoint `db` is down: disk full.", texts[0])
	assert.Equal(t, "The endpoint `db` is down: disk full!", texts[1])
}

func TestNotifyCheckResultNeverSends(t *testing.T) {
	t.Parallel()
	s := newRecSender()
	d, _ := newTestDispatcher(s)
	d.NotifyCheckResult(ep("a"), CheckResult{Err: errBoom})
	d.NotifyCheckResult(ep("a"), CheckResult{Status: 200})
	assert.Empty(t, s.sent())
}

func TestDisabledSenderSendsAndLogsNothing(t *testing.T) {
	t.Parallel()
	s := &recSender{}
	var buf bytes.Buffer
	c := NewCoalescer(Config{}, s, logx.Nop(), nil)
	d := NewDispatcher(Config{}, s, c, logx.NewWriter(&buf, "info"), nil)

	d.NotifyLifecycle(ep("a"), Added)
	d.NotifyDown(ep("a"), time.Now(), errBoom)
	since := time.Now().Add(-time.Minute)
	d.NotifyUp(ep("a"), &since)

	assert.Empty(t, s.sent())
	assert.Empty(t, buf.String())
}

func TestTransportFailureIsLoggedAndPublished(t *testing.T) {
	t.Parallel()
	s := newRecSender()
	s.err = errors.New("webhook: status 500")
	var buf bytes.Buffer
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(2)
	defer unsub()

	d := NewDispatcher(Config{}, s, nil, logx.NewWriter(&buf, "info"), bus)
	d.NotifyLifecycle(ep("api"), Removed)

	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"err":"webhook: status 500"`)
	assert.Contains(t, buf.String(), `"kind":"removed"`)

	e := <-ch
	assert.Equal(t, eventbus.NotifyFailed, e.Type)
}

func TestDispatchRoutesEvents(t *testing.T) {
	t.Parallel()
	s := newRecSender()
	d, mt := newTestDispatcher(s)
	now := time.Now()
	d.now = func() time.Time { return now }
	since := now.Add(-2 * time.Hour)

	d.Dispatch(ep("a"), LifecycleEvent{Kind: Disabled})
	d.Dispatch(ep("a"), DownEvent{AsOf: now, Reason: errBoom})
	d.Dispatch(ep("a"), UpEvent{DownSince: &since})
	d.Dispatch(ep("a"), CheckResultEvent{})
	d.Dispatch(ep("b"), UpEvent{})
	d.Dispatch(ep("c"), nil)

	assert.Equal(t, []string{
		"The endpoint `a` has been disabled.",
		"The endpoint `a` is down: boom.",
		"The endpoint `a` is up after being down for 2 hours. Hooray!",
	}, s.texts())

	mt.fire(0)
	assert.Equal(t, "The endpoint `b` is up. Hooray!", s.texts()[3])
}
