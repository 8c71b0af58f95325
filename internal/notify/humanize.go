package notify

import (
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

var durationMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Second, Format: "less than a second", DivBy: time.Second},
	{D: 2 * time.Second, Format: "1 second", DivBy: time.Second},
	{D: time.Minute, Format: "%d seconds", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "1 minute", DivBy: time.Minute},
	{D: time.Hour, Format: "%d minutes", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "1 hour", DivBy: time.Hour},
	{D: day, Format: "%d hours", DivBy: time.Hour},
	{D: 2 * day, Format: "1 day", DivBy: day},
	{D: week, Format: "%d days", DivBy: day},
	{D: 2 * week, Format: "1 week", DivBy: week},
	{D: month, Format: "%d weeks", DivBy: week},
	{D: 2 * month, Format: "1 month", DivBy: month},
	{D: year, Format: "%d months", DivBy: month},
	{D: 2 * year, Format: "1 year", DivBy: year},
	{D: math.MaxInt64, Format: "%d years", DivBy: year},
}

// Humanize renders d using its largest whole unit, e.g. "5 minutes".
// Negative durations are treated as their absolute value.
func Humanize(d time.Duration) string {
	base := time.Unix(0, 0)
	return humanize.CustomRelTime(base, base.Add(d), "", "", durationMagnitudes)
}
