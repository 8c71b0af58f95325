package transport

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pewwatch/internal/storage"
	logx "pewwatch/pkg/logx"
)

// HistoryStore is the subset of storage.Store the recorder writes to.
type HistoryStore interface {
	AppendNotification(ctx context.Context, n storage.Notification) error
}

// Recorder appends every attempted message to the notification history.
// A nil store makes it a pass-through.
type Recorder struct {
	next  Sender
	store HistoryStore
	log   logx.Logger
	now   func() time.Time
}

func NewRecorder(next Sender, store HistoryStore, log logx.Logger) *Recorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Recorder{next: next, store: store, log: log.With(logx.String("comp", "transport.recorder")), now: time.Now}
}

func (r *Recorder) Enabled() bool { return r.next != nil && r.next.Enabled() }

func (r *Recorder) Channel() string { return ChannelOf(r.next) }

func (r *Recorder) Send(ctx context.Context, text string) error {
	err := r.next.Send(ctx, text)
	if r.store == nil {
		return err
	}
	n := storage.Notification{
		ID:      uuid.NewString(),
		At:      r.now(),
		Channel: ChannelOf(r.next),
		Text:    text,
	}
	if err != nil {
		n.Error = err.Error()
	}
	// Record even when the send deadline has already passed.
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if herr := r.store.AppendNotification(hctx, n); herr != nil {
		r.log.Warn("history append failed", logx.Err(herr), logx.String("id", n.ID))
	}
	return err
}
