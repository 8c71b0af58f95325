package notify

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pewwatch/internal/eventbus"
	logx "pewwatch/pkg/logx"
)

func newManualCoalescer(s *recSender) (*Coalescer, *manualTimers) {
	c := NewCoalescer(Config{}, s, logx.Nop(), nil)
	mt := &manualTimers{}
	c.afterFunc = mt.afterFunc
	return c, mt
}

func TestCoalescerDefaultWindow(t *testing.T) {
	t.Parallel()
	c := NewCoalescer(Config{}, newRecSender(), logx.Nop(), nil)
	assert.Equal(t, 2500*time.Millisecond, c.Window())
}

func TestCoalescerBurstFlushesOnceAfterLastArrival(t *testing.T) {
	t.Parallel()
	const window = 120 * time.Millisecond
	s := newRecSender()
	c := NewCoalescer(Config{QuietWindow: window}, s, logx.Nop(), nil)

	c.Enqueue(ep("a"))
	time.Sleep(40 * time.Millisecond)
	c.Enqueue(ep("b"))
	time.Sleep(40 * time.Millisecond)
	last := time.Now()
	c.Enqueue(ep("c"))
	require.Equal(t, 3, c.Pending())

	require.Eventually(t, func() bool { return len(s.sent()) == 1 }, 2*time.Second, 5*time.Millisecond)
	msg := s.sent()[0]
	assert.Equal(t, "The following endpoints are up: `a`, `b`, `c`. Hooray!", msg.text)
	assert.GreaterOrEqual(t, msg.at.Sub(last), window)

	// No further flush once every timer has fired.
	time.Sleep(2 * window)
	assert.Len(t, s.sent(), 1)
	assert.Zero(t, c.Pending())
}

func TestCoalescerSeparateBurstsDoNotMix(t *testing.T) {
	t.Parallel()
	const window = 60 * time.Millisecond
	s := newRecSender()
	c := NewCoalescer(Config{QuietWindow: window}, s, logx.Nop(), nil)

	c.Enqueue(ep("a"))
	c.Enqueue(ep("b"))
	require.Eventually(t, func() bool { return len(s.sent()) == 1 }, 2*time.Second, 5*time.Millisecond)

	time.Sleep(window)
	c.Enqueue(ep("c"))
	require.Eventually(t, func() bool { return len(s.sent()) == 2 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{
		"The following endpoints are up: `a`, `b`. Hooray!",
		"The endpoint `c` is up. Hooray!",
	}, s.texts())
}

func TestCoalescerOnlyLastTimerFlushes(t *testing.T) {
	t.Parallel()
	s := newRecSender()
	c, mt := newManualCoalescer(s)

	c.Enqueue(ep("a"))
	c.Enqueue(ep("b"))
	c.Enqueue(ep("c"))

	mt.fire(0)
	mt.fire(1)
	assert.Empty(t, s.sent(), "stale timers must not flush")
	assert.Equal(t, 3, c.Pending())

	mt.fire(2)
	assert.Equal(t, []string{"The following endpoints are up: `a`, `b`, `c`. Hooray!"}, s.texts())
}

func TestCoalescerEmptySnapshotIsNoop(t *testing.T) {
	t.Parallel()
	s := newRecSender()
	c, mt := newManualCoalescer(s)

	c.Enqueue(ep("a"))
	c.Drain()
	require.Equal(t, []string{"The endpoint `a` is up. Hooray!"}, s.texts())

	// The timer scheduled by Enqueue still fires and sees nothing pending.
	mt.fire(0)
	assert.Len(t, s.sent(), 1)

	// Counting continues to work for the next burst.
	c.Enqueue(ep("b"))
	mt.fire(1)
	assert.Equal(t, "The endpoint `b` is up. Hooray!", s.texts()[1])
}

func TestCoalescerDisabledSenderSendsNothing(t *testing.T) {
	t.Parallel()
	s := &recSender{}
	c, mt := newManualCoalescer(s)

	c.Enqueue(ep("a"))
	mt.fire(0)
	assert.Empty(t, s.sent())
	assert.Zero(t, c.Pending())
}

func TestCoalescerPublishesCoalescedAndFailed(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	s := newRecSender()
	s.err = errBoom
	c := NewCoalescer(Config{}, s, logx.Nop(), bus)
	mt := &manualTimers{}
	c.afterFunc = mt.afterFunc

	c.Enqueue(ep("a"))
	c.Enqueue(ep("b"))
	mt.fire(0)
	mt.fire(1)

	e := <-ch
	require.Equal(t, eventbus.NotifyCoalesced, e.Type)
	assert.Equal(t, []string{"a", "b"}, e.Data)

	e = <-ch
	require.Equal(t, eventbus.NotifyFailed, e.Type)
	sent, ok := e.Data.(SentEvent)
	require.True(t, ok)
	assert.Equal(t, "boom", sent.Error)
	assert.Equal(t, []string{"a", "b"}, sent.Endpoints)
}

func TestCoalescerConcurrentEnqueueFlushesOnce(t *testing.T) {
	t.Parallel()
	const (
		k      = 200
		window = 150 * time.Millisecond
	)
	s := newRecSender()
	c := NewCoalescer(Config{QuietWindow: window}, s, logx.Nop(), nil)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			c.Enqueue(ep(fmt.Sprintf("e%d", i)))
		}(i)
	}
	close(start)
	wg.Wait()

	require.Eventually(t, func() bool { return len(s.sent()) == 1 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(2 * window)
	require.Len(t, s.sent(), 1)
	assert.Zero(t, c.Pending())

	text := s.sent()[0].text
	assert.True(t, strings.HasPrefix(text, "The following endpoints are up: "))
	for i := 0; i < k; i++ {
		assert.Contains(t, text, fmt.Sprintf("`e%d`", i))
	}
}

func TestCoalescerConcurrentTimersFlushOnce(t *testing.T) {
	t.Parallel()
	const k = 200
	s := newRecSender()
	c, mt := newManualCoalescer(s)

	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Enqueue(ep(fmt.Sprintf("e%d", i)))
		}(i)
	}
	wg.Wait()
	require.Equal(t, k, c.Pending())

	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mt.fire(i)
		}(i)
	}
	wg.Wait()

	require.Len(t, s.sent(), 1)
	assert.Zero(t, c.Pending())
	assert.Equal(t, k, strings.Count(s.sent()[0].text, "`")/2)
}
