// Package storage persists endpoint state and notification history.
//
// Two drivers are available:
//   - file: JSON snapshot for endpoint states, JSON Lines for history
//   - sqlite: a single SQLite database (modernc.org/sqlite, WAL)
//
// Pending recovery batches are never persisted.
package storage
