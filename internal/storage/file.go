package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	logx "pewwatch/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.states.json    (snapshot, rewritten on every change)
//   - <prefix>.history.jsonl  (append-only JSON Lines)
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	statesPath  string
	states      map[string]EndpointState
	historyPath string
	historyFile *os.File
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	statesPath := prefix + ".states.json"
	historyPath := prefix + ".history.jsonl"

	states := map[string]EndpointState{}
	if err := loadStates(statesPath, states); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("state snapshot unreadable; starting empty", logx.Err(err))
	}

	hf, err := os.OpenFile(historyPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:         log,
		statesPath:  statesPath,
		states:      states,
		historyPath: historyPath,
		historyFile: hf,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.historyFile == nil {
		return nil
	}
	err := s.historyFile.Close()
	s.historyFile = nil
	return err
}

func (s *fileStore) PutEndpointState(ctx context.Context, st EndpointState) error {
	_ = ctx
	st.Name = strings.TrimSpace(st.Name)
	if st.Name == "" {
		return errors.New("endpoint state: name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.historyFile == nil {
		return ErrDisabled
	}
	s.states[st.Name] = st
	return s.snapshotLocked()
}

func (s *fileStore) GetEndpointState(ctx context.Context, name string) (EndpointState, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[strings.TrimSpace(name)]
	if !ok {
		return EndpointState{}, ErrNotFound
	}
	return st, nil
}

func (s *fileStore) DeleteEndpointState(ctx context.Context, name string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.historyFile == nil {
		return ErrDisabled
	}
	name = strings.TrimSpace(name)
	if _, ok := s.states[name]; !ok {
		return nil
	}
	delete(s.states, name)
	return s.snapshotLocked()
}

func (s *fileStore) ListEndpointStates(ctx context.Context) ([]EndpointState, error) {
	_ = ctx
	s.mu.Lock()
	out := make([]EndpointState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fileStore) AppendNotification(ctx context.Context, n Notification) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.historyFile == nil {
		return errors.New("history file closed")
	}
	return json.NewEncoder(s.historyFile).Encode(n)
}

func (s *fileStore) RecentNotifications(ctx context.Context, limit int) ([]Notification, error) {
	_ = ctx
	limit = clampLimit(limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.historyPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Keep a ring of the last `limit` lines.
	ring := make([]Notification, 0, limit)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var n Notification
		if err := json.Unmarshal(sc.Bytes(), &n); err != nil {
			continue
		}
		if len(ring) == limit {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, n)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
		ring[i], ring[j] = ring[j], ring[i]
	}
	return ring, nil
}

func (s *fileStore) snapshotLocked() error {
	tmp := s.statesPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.states); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.statesPath)
}

func loadStates(path string, out map[string]EndpointState) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]EndpointState
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}
