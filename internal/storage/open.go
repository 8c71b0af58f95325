package storage

import (
	"context"
	"errors"
	"strings"

	logx "pewwatch/pkg/logx"
)

// Store is the persistence API used by the monitor and transports.
type Store interface {
	PutEndpointState(ctx context.Context, st EndpointState) error
	// GetEndpointState returns ErrNotFound when nothing is stored for name.
	GetEndpointState(ctx context.Context, name string) (EndpointState, error)
	DeleteEndpointState(ctx context.Context, name string) error
	ListEndpointStates(ctx context.Context) ([]EndpointState, error)

	AppendNotification(ctx context.Context, n Notification) error
	// RecentNotifications returns up to limit entries, newest first.
	RecentNotifications(ctx context.Context, limit int) ([]Notification, error)

	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "storage"), logx.String("driver", driver))

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
