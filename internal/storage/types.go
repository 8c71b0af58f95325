package storage

import (
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrNotFound = errors.New("not found")
)

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// EndpointState is the last known health of one endpoint.
// DownSince is nil while the endpoint is up.
type EndpointState struct {
	Name      string     `json:"name"`
	Up        bool       `json:"up"`
	DownSince *time.Time `json:"down_since,omitempty"`
	Failures  int        `json:"failures,omitempty"`
	CheckedAt time.Time  `json:"checked_at"`
}

// Notification records one outbound message attempt.
type Notification struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Channel string    `json:"channel"`
	Text    string    `json:"text"`
	Error   string    `json:"error,omitempty"`
}
