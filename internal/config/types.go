package config

import (
	"pewwatch/internal/endpoint"
)

// Config is the on-disk configuration (JSON or YAML).
//
// Durations are Go duration strings (e.g. "500ms", "10s", "1m") or bare
// integers in milliseconds.
type Config struct {
	Logging   LoggingConfig       `json:"logging"`
	Notify    NotifyConfig        `json:"notify"`
	Slack     SlackConfig         `json:"slack"`
	Telegram  TelegramConfig      `json:"telegram"`
	Monitor   MonitorConfig       `json:"monitor"`
	HTTP      HTTPConfig          `json:"http"`
	Storage   *StorageConfig      `json:"storage,omitempty"`
	Endpoints []endpoint.Endpoint `json:"endpoints"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// NotifyConfig controls message timing.
//
// QuietWindow is read once at startup; changing it requires a restart.
type NotifyConfig struct {
	QuietWindow string `json:"quiet_window,omitempty"` // default "2500ms"
	SendTimeout string `json:"send_timeout,omitempty"` // default "10s"
}

// SlackConfig is a Slack-compatible incoming webhook. A blank URL disables it.
type SlackConfig struct {
	WebhookURL string `json:"webhook_url"` // secret; never logged
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	Burst      int    `json:"burst,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
}

// TelegramConfig sends the same messages to a Telegram chat. A blank token
// or zero chat_id disables it.
type TelegramConfig struct {
	Token    string `json:"token"` // secret; never logged
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
	APIURL   string `json:"api_url,omitempty"` // self-hosted Bot API server
}

type MonitorConfig struct {
	Schedule     string `json:"schedule,omitempty"`      // default "1m"
	CheckTimeout string `json:"check_timeout,omitempty"` // default "15s"
	DownAfter    int    `json:"down_after,omitempty"`    // consecutive failures; default 1
	Workers      int    `json:"workers,omitempty"`       // concurrent checks; default 4
	Timezone     string `json:"timezone,omitempty"`      // IANA TZ for cron schedules
	UserAgent    string `json:"user_agent,omitempty"`
}

// HTTPConfig is the optional status server (/healthz, /status, pprof).
type HTTPConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default "127.0.0.1:8089"
	Token         string `json:"token,omitempty"` // secret; never logged
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./pewwatch.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}
