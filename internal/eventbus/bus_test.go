package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFanout(t *testing.T) {
	t.Parallel()
	b := New()
	a, unsubA := b.Subscribe(1)
	c, unsubC := b.Subscribe(1)
	defer unsubA()
	defer unsubC()

	b.Publish(Event{Type: EndpointDown, Data: "api"})

	ea := <-a
	ec := <-c
	assert.Equal(t, EndpointDown, ea.Type)
	assert.Equal(t, "api", ec.Data)
	assert.False(t, ea.Time.IsZero(), "publish stamps time")
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: NotifySent})
	b.Publish(Event{Type: NotifyFailed}) // dropped, must not block

	e := <-ch
	require.Equal(t, NotifySent, e.Type)
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %q", e.Type)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(0)
	unsub()
	unsub() // idempotent

	_, ok := <-ch
	assert.False(t, ok)
	b.Publish(Event{Type: ConfigReloaded}) // no panic after unsubscribe
}

func TestNopBus(t *testing.T) {
	t.Parallel()
	b := Nop()
	b.Publish(Event{Type: EndpointUp})
	ch, unsub := b.Subscribe(4)
	defer unsub()
	_, ok := <-ch
	assert.False(t, ok)
}
