package monitor

import (
	"pewwatch/internal/endpoint"
	"pewwatch/internal/notify"
)

// Change is a lifecycle transition found by Diff.
type Change struct {
	Endpoint endpoint.Endpoint
	Kind     notify.Lifecycle
}

// Diff compares two endpoint sets by name. Removals come first in prev
// order, then additions and modifications in next order. An enabled flip
// wins over a reconfiguration of the same endpoint.
func Diff(prev, next []endpoint.Endpoint) []Change {
	old := make(map[string]endpoint.Endpoint, len(prev))
	for _, ep := range prev {
		old[ep.Name] = ep
	}
	cur := make(map[string]struct{}, len(next))
	for _, ep := range next {
		cur[ep.Name] = struct{}{}
	}

	var out []Change
	for _, ep := range prev {
		if _, ok := cur[ep.Name]; !ok {
			out = append(out, Change{Endpoint: ep, Kind: notify.Removed})
		}
	}
	for _, ep := range next {
		was, ok := old[ep.Name]
		switch {
		case !ok:
			out = append(out, Change{Endpoint: ep, Kind: notify.Added})
		case was.Enabled != ep.Enabled && ep.Enabled:
			out = append(out, Change{Endpoint: ep, Kind: notify.Enabled})
		case was.Enabled != ep.Enabled:
			out = append(out, Change{Endpoint: ep, Kind: notify.Disabled})
		case !was.SameCheck(ep):
			out = append(out, Change{Endpoint: ep, Kind: notify.Reconfigured})
		}
	}
	return out
}
