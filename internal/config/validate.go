package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"pewwatch/internal/endpoint"
	"pewwatch/internal/task/scheduler"
	logx "pewwatch/pkg/logx"
)

// Validate checks everything that can be checked without opening resources.
// All problems are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if lv := strings.TrimSpace(cfg.Logging.Level); lv != "" {
		if _, ok := logx.ParseLevel(lv); !ok {
			add(fmt.Errorf("logging.level: unknown level %q", lv))
		}
	}

	_, err := ParseDurationField("notify.quiet_window", cfg.Notify.QuietWindow)
	add(err)
	_, err = ParseDurationField("notify.send_timeout", cfg.Notify.SendTimeout)
	add(err)

	if raw := strings.TrimSpace(cfg.Slack.WebhookURL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			// the URL itself is a secret
			add(errors.New("slack.webhook_url: must be an http:// or https:// URL"))
		}
	}
	if cfg.Slack.RatePerSec < 0 {
		add(errors.New("slack.rate_per_sec: must be >= 0"))
	}
	if cfg.Slack.Burst < 0 {
		add(errors.New("slack.burst: must be >= 0"))
	}
	_, err = ParseDurationField("slack.timeout", cfg.Slack.Timeout)
	add(err)

	if cfg.Telegram.ThreadID < 0 {
		add(errors.New("telegram.thread_id: must be >= 0"))
	}
	if u := strings.TrimSpace(cfg.Telegram.APIURL); u != "" {
		if pu, err := url.Parse(u); err != nil || (pu.Scheme != "http" && pu.Scheme != "https") || pu.Host == "" {
			add(errors.New("telegram.api_url: must be an http(s) URL"))
		}
	}

	if s := strings.TrimSpace(cfg.Monitor.Schedule); s != "" {
		if _, err := scheduler.ParseSchedule(s); err != nil {
			add(fmt.Errorf("monitor.schedule: %w", err))
		}
	}
	_, err = ParseDurationField("monitor.check_timeout", cfg.Monitor.CheckTimeout)
	add(err)
	if cfg.Monitor.DownAfter < 0 {
		add(errors.New("monitor.down_after: must be >= 0"))
	}
	if cfg.Monitor.Workers < 0 {
		add(errors.New("monitor.workers: must be >= 0"))
	}
	if tz := strings.TrimSpace(cfg.Monitor.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			add(fmt.Errorf("monitor.timezone: %w", err))
		}
	}

	if addr := strings.TrimSpace(cfg.HTTP.Addr); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			add(fmt.Errorf("http.addr: %w", err))
		}
	}

	if sc := cfg.Storage; sc != nil {
		switch d := strings.ToLower(strings.TrimSpace(sc.Driver)); d {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(sc.Path) == "" {
				add(fmt.Errorf("storage.path is required when storage.driver=%s", d))
			}
		default:
			add(fmt.Errorf("storage.driver: unknown driver %q", sc.Driver))
		}
		_, err = ParseDurationField("storage.busy_timeout", sc.BusyTimeout)
		add(err)
	}

	add(endpoint.ValidateAll(cfg.Endpoints))
	return errors.Join(errs...)
}
