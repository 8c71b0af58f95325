package notify

import (
	"errors"
	"strings"
	"time"

	"pewwatch/internal/endpoint"
)

// FormatName strips backticks from name and wraps the result in backticks.
func FormatName(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "") + "`"
}

// FormatLifecycle returns the message for an administrative change.
// Unknown kinds produce an empty string.
func FormatLifecycle(ep endpoint.Endpoint, kind Lifecycle) string {
	name := FormatName(ep.Name)
	switch kind {
	case Added:
		return "The endpoint " + name + " has been added and will be checked shortly."
	case Removed:
		return "The endpoint " + name + " has been removed."
	case Enabled:
		return "The endpoint " + name + " has been enabled and will be checked shortly."
	case Disabled:
		return "The endpoint " + name + " has been disabled."
	case Reconfigured:
		return "The endpoint " + name + " has been reconfigured and will be checked shortly."
	default:
		return ""
	}
}

// Detailer is implemented by errors that carry a multi-line diagnostic,
// such as a TLS certificate dump.
type Detailer interface {
	Details() string
}

// FormatReason renders err as a sentence. A nil or blank error yields "".
func FormatReason(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return ""
	}
	if !strings.HasSuffix(msg, ".") && !strings.HasSuffix(msg, "!") && !strings.HasSuffix(msg, "?") {
		msg += "."
	}
	var d Detailer
	if errors.As(err, &d) {
		msg += "\n Details: ```\n" + d.Details() + "```"
	}
	return msg
}

func FormatDown(ep endpoint.Endpoint, reason error) string {
	return "The endpoint " + FormatName(ep.Name) + " is down: " + FormatReason(reason)
}

// FormatUpAfter reports recovery after a known down time of length downFor.
func FormatUpAfter(ep endpoint.Endpoint, downFor time.Duration) string {
	return "The endpoint " + FormatName(ep.Name) + " is up after being down for " + Humanize(downFor) + ". Hooray!"
}

// FormatUpBatch reports recovery of endpoints with no known down time.
// An empty batch yields "".
func FormatUpBatch(eps []endpoint.Endpoint) string {
	switch len(eps) {
	case 0:
		return ""
	case 1:
		return "The endpoint " + FormatName(eps[0].Name) + " is up. Hooray!"
	}
	names := make([]string, len(eps))
	for i, ep := range eps {
		names[i] = FormatName(ep.Name)
	}
	return "The following endpoints are up: " + strings.Join(names, ", ") + ". Hooray!"
}
