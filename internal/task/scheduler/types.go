package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "pewwatch/pkg/logx"
)

var ErrNameRequired = errors.New("schedule name required")

// Config controls the scheduler.
type Config struct {
	Workers        int           // max concurrent jobs; 0 means 4
	DefaultTimeout time.Duration // used when a schedule has no timeout; 0 means 30s
	Timezone       string        // IANA TZ, e.g. "Asia/Jakarta"
}

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

type runState struct {
	running atomic.Bool
	runs    atomic.Uint64
	skipped atomic.Uint64
	fails   atomic.Uint64
	lastErr atomic.Value // string
}

type scheduleDef struct {
	name          string
	spec          string // cron spec or @every
	timeout       time.Duration
	job           Job
	entryID       cron.EntryID
	startupSpread time.Duration // initial random delay for @every schedules
	state         *runState
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	sem     chan struct{}
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type ScheduleInfo struct {
	Name          string
	Spec          string
	Timeout       time.Duration
	StartupSpread time.Duration
	Next          time.Time
	Prev          time.Time
	Running       bool
	Runs          uint64
	Skipped       uint64
	Failures      uint64
	LastError     string
}

type Snapshot struct {
	Running   bool
	Timezone  string
	Workers   int
	InFlight  int
	Schedules []ScheduleInfo
}
