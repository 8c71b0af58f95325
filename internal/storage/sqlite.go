package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	logx "pewwatch/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// historyKeep bounds the notification table; older rows are pruned.
const historyKeep = 5000

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	opCount    atomic.Uint64
	pruneEvery uint64
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, pruneEvery: 200}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) PutEndpointState(ctx context.Context, st EndpointState) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	st.Name = strings.TrimSpace(st.Name)
	if st.Name == "" {
		return errors.New("endpoint state: name is required")
	}
	if st.CheckedAt.IsZero() {
		st.CheckedAt = time.Now()
	}
	var downSince any
	if st.DownSince != nil {
		downSince = st.DownSince.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO endpoint_state(name, up, down_since, failures, checked_at) VALUES(?,?,?,?,?)
		 ON CONFLICT(name) DO UPDATE SET up=excluded.up, down_since=excluded.down_since,
		   failures=excluded.failures, checked_at=excluded.checked_at`,
		st.Name, boolInt(st.Up), downSince, st.Failures, st.CheckedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) GetEndpointState(ctx context.Context, name string) (EndpointState, error) {
	if s == nil || s.db == nil {
		return EndpointState{}, ErrDisabled
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT name, up, down_since, failures, checked_at FROM endpoint_state WHERE name = ?`,
		strings.TrimSpace(name))
	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return EndpointState{}, ErrNotFound
	}
	return st, err
}

func (s *sqliteStore) DeleteEndpointState(ctx context.Context, name string) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM endpoint_state WHERE name = ?`, strings.TrimSpace(name))
	return err
}

func (s *sqliteStore) ListEndpointStates(ctx context.Context) ([]EndpointState, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, up, down_since, failures, checked_at FROM endpoint_state ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EndpointState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *sqliteStore) AppendNotification(ctx context.Context, n Notification) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if n.At.IsZero() {
		n.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification(id, at, channel, text, err) VALUES(?,?,?,?,?)`,
		n.ID, n.At.UTC().Format(time.RFC3339Nano), n.Channel, n.Text, nullStr(n.Error),
	)
	if err == nil && s.opCount.Add(1)%s.pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		if perr := s.pruneHistory(pctx); perr != nil {
			s.log.Debug("history prune failed", logx.Err(perr))
		}
		cancel()
	}
	return err
}

func (s *sqliteStore) RecentNotifications(ctx context.Context, limit int) ([]Notification, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, channel, text, err FROM notification ORDER BY seq DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		var (
			n      Notification
			at     string
			errStr sql.NullString
		)
		if err := rows.Scan(&n.ID, &at, &n.Channel, &n.Text, &errStr); err != nil {
			return nil, err
		}
		n.At, _ = time.Parse(time.RFC3339Nano, at)
		n.Error = errStr.String
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *sqliteStore) pruneHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM notification WHERE seq <= (SELECT MAX(seq) FROM notification) - ?`, historyKeep)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(r rowScanner) (EndpointState, error) {
	var (
		st        EndpointState
		up        int
		downSince sql.NullString
		checkedAt string
	)
	if err := r.Scan(&st.Name, &up, &downSince, &st.Failures, &checkedAt); err != nil {
		return EndpointState{}, err
	}
	st.Up = up != 0
	if downSince.Valid {
		if t, err := time.Parse(time.RFC3339Nano, downSince.String); err == nil {
			st.DownSince = &t
		}
	}
	st.CheckedAt, _ = time.Parse(time.RFC3339Nano, checkedAt)
	return st, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
