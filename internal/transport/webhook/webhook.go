// Package webhook posts notifications to a Slack-compatible incoming webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second
	defaultRate    = 1
	defaultBurst   = 20
	bodyExcerpt    = 200
)

type Config struct {
	URL        string
	RatePerSec int
	// Burst is how many messages may go out back to back before RatePerSec
	// pacing applies. Defaults to max(20, RatePerSec).
	Burst   int
	Timeout time.Duration
}

// Sender posts {"text": ...} payloads. It is safe for concurrent use and
// its config can be swapped at runtime with Apply.
type Sender struct {
	mu      sync.RWMutex
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

func New(cfg Config) *Sender {
	s := &Sender{}
	s.Apply(cfg)
	return s
}

// Apply replaces URL, timeout and pacing.
func (s *Sender) Apply(cfg Config) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	r := cfg.RatePerSec
	if r <= 0 {
		r = defaultRate
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = max(defaultBurst, r)
	}
	s.mu.Lock()
	s.url = strings.TrimSpace(cfg.URL)
	s.client = &http.Client{Timeout: timeout}
	s.limiter = rate.NewLimiter(rate.Limit(r), burst)
	s.mu.Unlock()
}

func (s *Sender) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url != ""
}

func (s *Sender) Channel() string { return "webhook" }

type payload struct {
	Text string `json:"text"`
}

func (s *Sender) Send(ctx context.Context, text string) error {
	s.mu.RLock()
	url, client, limiter := s.url, s.client, s.limiter
	s.mu.RUnlock()
	if url == "" {
		return nil
	}

	// Past the burst, a message that cannot get a token before ctx expires
	// fails here and is logged by the caller as a failed send.
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("webhook: rate wait: %w", err)
	}

	body, err := json.Marshal(payload{Text: text})
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, bodyExcerpt))
		msg := strings.TrimSpace(string(b))
		if msg == "" {
			return fmt.Errorf("webhook: status %d", resp.StatusCode)
		}
		return fmt.Errorf("webhook: status %d: %s", resp.StatusCode, msg)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return nil
}
