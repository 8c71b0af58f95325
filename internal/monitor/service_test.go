package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pewwatch/internal/endpoint"
	"pewwatch/internal/notify"
	"pewwatch/internal/task/scheduler"
	logx "pewwatch/pkg/logx"
)

type fakeScheduler struct {
	mu   sync.Mutex
	jobs map[string]scheduler.Job
	spec map[string]string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: map[string]scheduler.Job{}, spec: map[string]string{}}
}

func (f *fakeScheduler) AddSchedule(name, schedule string, _ time.Duration, job scheduler.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[name] = job
	f.spec[name] = schedule
	return name, nil
}

func (f *fakeScheduler) Remove(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.jobs[name]
	delete(f.jobs, name)
	delete(f.spec, name)
	return ok
}

func (f *fakeScheduler) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for n := range f.jobs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func TestDiff(t *testing.T) {
	t.Parallel()
	prev := []endpoint.Endpoint{
		{Name: "gone", Location: "https://gone", Enabled: true},
		{Name: "flip-on", Location: "https://a"},
		{Name: "flip-off", Location: "https://b", Enabled: true},
		{Name: "moved", Location: "https://old", Enabled: true},
		{Name: "same", Location: "https://same", Enabled: true},
	}
	next := []endpoint.Endpoint{
		{Name: "flip-on", Location: "https://a2", Enabled: true},
		{Name: "flip-off", Location: "https://b"},
		{Name: "moved", Location: "https://new", Enabled: true},
		{Name: "same", Location: "https://same", Enabled: true},
		{Name: "new", Location: "https://new", Enabled: true},
	}
	got := Diff(prev, next)
	var kinds []string
	for _, c := range got {
		kinds = append(kinds, c.Endpoint.Name+":"+c.Kind.String())
	}
	assert.Equal(t, []string{
		"gone:removed",
		"flip-on:enabled",
		"flip-off:disabled",
		"moved:reconfigured",
		"new:added",
	}, kinds)
	assert.Empty(t, Diff(next, next))
}

func TestServiceApplyReconciles(t *testing.T) {
	t.Parallel()
	n := &fakeNotifier{}
	sched := newFakeScheduler()
	tr := NewTracker(1, n, nil, nil, logx.Nop())
	svc := NewService(Config{Schedule: "30s"}, tr, n, sched, logx.Nop())
	ctx := context.Background()

	initial := []endpoint.Endpoint{
		{Name: "api", Location: "https://api.example.com", Enabled: true},
		{Name: "web", Location: "https://web.example.com", Enabled: true},
		{Name: "off", Location: "https://off.example.com"},
	}
	require.NoError(t, svc.Apply(ctx, initial))
	assert.Empty(t, n.snapshot(), "initial apply is silent")
	assert.Equal(t, []string{"endpoint:api", "endpoint:web"}, sched.names())
	assert.Equal(t, "30s", sched.spec["endpoint:api"])

	next := []endpoint.Endpoint{
		{Name: "api", Location: "https://api.example.com/v2", Enabled: true},
		{Name: "off", Location: "https://off.example.com", Enabled: true},
		{Name: "db", Location: "https://db.example.com", Enabled: true},
	}
	require.NoError(t, svc.Apply(ctx, next))
	assert.Equal(t, []string{"endpoint:api", "endpoint:db", "endpoint:off"}, sched.names())

	var got []string
	for _, c := range n.snapshot() {
		got = append(got, c.name+":"+c.lifecycle.String())
	}
	assert.Equal(t, []string{"web:removed", "api:reconfigured", "off:enabled", "db:added"}, got)

	svc.ApplyConfig(ctx, Config{Schedule: "2m"})
	assert.Equal(t, "2m", sched.spec["endpoint:db"])
}

func TestServiceApplyRejectsInvalid(t *testing.T) {
	t.Parallel()
	svc := NewService(Config{}, nil, nil, newFakeScheduler(), logx.Nop())
	err := svc.Apply(context.Background(), []endpoint.Endpoint{
		{Name: "a", Location: "https://a"},
		{Name: "a", Location: "https://b"},
	})
	require.Error(t, err)
	assert.Empty(t, svc.Endpoints())
}

func TestScheduledJobChecksEndpoint(t *testing.T) {
	t.Parallel()
	healthy := true
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ok := healthy
		mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	n := &fakeNotifier{}
	sched := newFakeScheduler()
	svc := NewService(Config{}, NewTracker(1, n, nil, nil, logx.Nop()), n, sched, logx.Nop())
	ctx := context.Background()
	require.NoError(t, svc.Apply(ctx, []endpoint.Endpoint{{Name: "api", Location: srv.URL, Enabled: true}}))

	job := sched.jobs["endpoint:api"]
	require.NoError(t, job(ctx))
	mu.Lock()
	healthy = false
	mu.Unlock()
	require.NoError(t, job(ctx))

	calls := n.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "up", calls[0].kind)
	assert.Equal(t, "down", calls[1].kind)
	assert.Equal(t, "Unexpected status code 502.", calls[1].reason.Error())

	res, err := svc.CheckNow(ctx, "api")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, res.Status)
	_, err = svc.CheckNow(ctx, "missing")
	assert.Error(t, err)
}

var _ Notifier = (*notify.Dispatcher)(nil)
