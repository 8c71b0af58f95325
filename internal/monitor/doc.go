// Package monitor checks endpoints on their schedules and reports state
// transitions to a Notifier.
package monitor
