package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"pewwatch/internal/endpoint"
	"pewwatch/internal/notify"
	"pewwatch/internal/task/scheduler"
	logx "pewwatch/pkg/logx"
)

const (
	defaultSchedule = "1m"
	schedulePrefix  = "endpoint:"
)

// Config holds the monitor settings that can change on reload.
type Config struct {
	Schedule     string
	CheckTimeout time.Duration
	DownAfter    int
	UserAgent    string
}

func (c Config) schedule() string {
	if s := strings.TrimSpace(c.Schedule); s != "" {
		return s
	}
	return defaultSchedule
}

func (c Config) checkTimeout() time.Duration {
	if c.CheckTimeout > 0 {
		return c.CheckTimeout
	}
	return defaultCheckTimeout
}

// Scheduler is the subset of *scheduler.Service the monitor uses.
type Scheduler interface {
	AddSchedule(name, schedule string, timeout time.Duration, job scheduler.Job) (string, error)
	Remove(name string) bool
}

// Service owns the endpoint set and keeps one schedule per enabled endpoint.
type Service struct {
	mu        sync.Mutex
	cfg       Config
	endpoints []endpoint.Endpoint
	applied   bool
	checker   *Checker

	tracker  *Tracker
	notifier Notifier
	sched    Scheduler
	log      logx.Logger
}

func NewService(cfg Config, tracker *Tracker, n Notifier, sched Scheduler, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:      cfg,
		checker:  NewChecker(CheckerConfig{Timeout: cfg.checkTimeout(), UserAgent: cfg.UserAgent}),
		tracker:  tracker,
		notifier: n,
		sched:    sched,
		log:      log.With(logx.String("comp", "monitor")),
	}
}

// ScheduleName returns the scheduler name used for an endpoint.
func ScheduleName(name string) string { return schedulePrefix + name }

// Apply replaces the endpoint set. Every call after the first one emits a
// lifecycle notification for each added, removed, enabled, disabled or
// reconfigured endpoint.
func (s *Service) Apply(ctx context.Context, eps []endpoint.Endpoint) error {
	if err := endpoint.ValidateAll(eps); err != nil {
		return err
	}
	next := append([]endpoint.Endpoint(nil), eps...)

	s.mu.Lock()
	var changes []Change
	if s.applied {
		changes = Diff(s.endpoints, next)
	}
	first := !s.applied
	prev := s.endpoints
	s.endpoints = next
	s.applied = true
	cfg := s.cfg
	s.mu.Unlock()

	var errs []string
	if first {
		for _, ep := range next {
			if err := s.syncSchedule(ctx, cfg, ep); err != nil {
				errs = append(errs, err.Error())
			}
		}
	} else {
		touched := map[string]bool{}
		for _, ch := range changes {
			touched[ch.Endpoint.Name] = true
			if ch.Kind == notify.Removed {
				s.unschedule(ctx, ch.Endpoint.Name)
				continue
			}
			if err := s.syncSchedule(ctx, cfg, ch.Endpoint); err != nil {
				errs = append(errs, err.Error())
			}
		}
		s.log.Debug("endpoints reconciled", logx.Int("before", len(prev)), logx.Int("after", len(next)), logx.Int("changes", len(touched)))
	}

	for _, ch := range changes {
		s.log.Info("endpoint "+ch.Kind.String(), logx.String("endpoint", ch.Endpoint.Name))
		if s.notifier != nil {
			s.notifier.Dispatch(ch.Endpoint, notify.LifecycleEvent{Kind: ch.Kind})
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("monitor: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ApplyConfig updates schedule, timeout, threshold and user agent. A changed
// schedule or timeout re-registers every enabled endpoint.
func (s *Service) ApplyConfig(ctx context.Context, cfg Config) {
	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	if old.checkTimeout() != cfg.checkTimeout() || old.UserAgent != cfg.UserAgent {
		s.checker = NewChecker(CheckerConfig{Timeout: cfg.checkTimeout(), UserAgent: cfg.UserAgent})
	}
	eps := append([]endpoint.Endpoint(nil), s.endpoints...)
	s.mu.Unlock()

	if s.tracker != nil {
		s.tracker.SetDownAfter(cfg.DownAfter)
	}
	if old.schedule() == cfg.schedule() && old.checkTimeout() == cfg.checkTimeout() {
		return
	}
	for _, ep := range eps {
		if err := s.syncSchedule(ctx, cfg, ep); err != nil {
			s.log.Warn("reschedule failed", logx.String("endpoint", ep.Name), logx.Err(err))
		}
	}
}

func (s *Service) syncSchedule(ctx context.Context, cfg Config, ep endpoint.Endpoint) error {
	if !ep.Enabled {
		s.unschedule(ctx, ep.Name)
		return nil
	}
	if s.sched == nil {
		return nil
	}
	name := ep.Name
	// Leave headroom past the HTTP timeout for body reads and persistence.
	timeout := cfg.checkTimeout() + 5*time.Second
	_, err := s.sched.AddSchedule(ScheduleName(name), cfg.schedule(), timeout, func(ctx context.Context) error {
		s.runCheck(ctx, name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("endpoint %q: %w", name, err)
	}
	return nil
}

func (s *Service) unschedule(ctx context.Context, name string) {
	if s.sched != nil {
		s.sched.Remove(ScheduleName(name))
	}
	if s.tracker != nil {
		s.tracker.Forget(ctx, name)
	}
}

func (s *Service) lookup(name string) (endpoint.Endpoint, *Checker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ep := range s.endpoints {
		if ep.Name == name {
			return ep, s.checker, true
		}
	}
	return endpoint.Endpoint{}, nil, false
}

func (s *Service) runCheck(ctx context.Context, name string) {
	ep, checker, ok := s.lookup(name)
	if !ok || !ep.Enabled {
		return
	}
	res := checker.Check(ctx, ep)
	if ctx.Err() != nil && res.Err != nil {
		// Shutdown or job timeout; the result says nothing about the endpoint.
		return
	}
	s.log.Trace("checked", logx.String("endpoint", name), logx.Int("status", res.Status), logx.Duration("took", res.Took), logx.Err(res.Err))
	if s.tracker != nil {
		s.tracker.Observe(ctx, res)
	}
}

// CheckNow checks one configured endpoint immediately and records the result.
func (s *Service) CheckNow(ctx context.Context, name string) (notify.CheckResult, error) {
	ep, checker, ok := s.lookup(name)
	if !ok {
		return notify.CheckResult{}, fmt.Errorf("unknown endpoint %q", name)
	}
	res := checker.Check(ctx, ep)
	if s.tracker != nil && ep.Enabled {
		s.tracker.Observe(ctx, res)
	}
	return res, nil
}

// Endpoints returns a copy of the current endpoint set.
func (s *Service) Endpoints() []endpoint.Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]endpoint.Endpoint(nil), s.endpoints...)
}
