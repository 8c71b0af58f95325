package notify

import (
	"time"

	"pewwatch/internal/endpoint"
)

// Lifecycle is an administrative change to an endpoint.
type Lifecycle int

const (
	Added Lifecycle = iota + 1
	Removed
	Enabled
	Disabled
	Reconfigured
)

func (k Lifecycle) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Enabled:
		return "enabled"
	case Disabled:
		return "disabled"
	case Reconfigured:
		return "reconfigured"
	default:
		return "unknown"
	}
}

// Event is one of LifecycleEvent, DownEvent, UpEvent or CheckResultEvent.
type Event interface {
	isEvent()
}

type LifecycleEvent struct {
	Kind Lifecycle
}

type DownEvent struct {
	AsOf   time.Time
	Reason error
}

// UpEvent carries the time the endpoint went down, if known.
type UpEvent struct {
	DownSince *time.Time
}

// CheckResultEvent reports a single completed check.
type CheckResultEvent struct {
	Result CheckResult
}

func (LifecycleEvent) isEvent()   {}
func (DownEvent) isEvent()        {}
func (UpEvent) isEvent()          {}
func (CheckResultEvent) isEvent() {}

// CheckResult is the outcome of one endpoint check.
type CheckResult struct {
	Endpoint endpoint.Endpoint
	At       time.Time
	Took     time.Duration
	Status   int
	Err      error
}

func (r CheckResult) Success() bool { return r.Err == nil }
