package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pewwatch/internal/config"
	"pewwatch/internal/monitor"
	"pewwatch/internal/notify"
	"pewwatch/internal/observability/status"
	"pewwatch/internal/storage"
	"pewwatch/internal/task/scheduler"
	"pewwatch/internal/transport/telegram"
	"pewwatch/internal/transport/webhook"
	logx "pewwatch/pkg/logx"
)

// Version is stamped at build time with -ldflags "-X pewwatch/internal/app.Version=...".
var Version = "dev"

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapNotifyConfig(cfg *config.Config) (notify.Config, error) {
	qw, err := config.ParseDurationOrDefault("notify.quiet_window", cfg.Notify.QuietWindow, notify.DefaultQuietWindow)
	if err != nil {
		return notify.Config{}, err
	}
	st, err := config.ParseDurationOrDefault("notify.send_timeout", cfg.Notify.SendTimeout, notify.DefaultSendTimeout)
	if err != nil {
		return notify.Config{}, err
	}
	return notify.Config{QuietWindow: qw, SendTimeout: st}, nil
}

func mapWebhookConfig(cfg *config.Config) (webhook.Config, error) {
	timeout, err := config.ParseDurationField("slack.timeout", cfg.Slack.Timeout)
	if err != nil {
		return webhook.Config{}, err
	}
	return webhook.Config{
		URL:        cfg.Slack.WebhookURL,
		RatePerSec: cfg.Slack.RatePerSec,
		Burst:      cfg.Slack.Burst,
		Timeout:    timeout,
	}, nil
}

func mapTelegramConfig(cfg *config.Config) telegram.Config {
	return telegram.Config{
		Token:    cfg.Telegram.Token,
		ChatID:   cfg.Telegram.ChatID,
		ThreadID: cfg.Telegram.ThreadID,
		APIURL:   cfg.Telegram.APIURL,
	}
}

func mapMonitorConfig(cfg *config.Config) (monitor.Config, error) {
	timeout, err := config.ParseDurationField("monitor.check_timeout", cfg.Monitor.CheckTimeout)
	if err != nil {
		return monitor.Config{}, err
	}
	ua := strings.TrimSpace(cfg.Monitor.UserAgent)
	if ua == "" {
		ua = "pewwatch/" + Version
	}
	return monitor.Config{
		Schedule:     cfg.Monitor.Schedule,
		CheckTimeout: timeout,
		DownAfter:    cfg.Monitor.DownAfter,
		UserAgent:    ua,
	}, nil
}

func mapStatusConfig(cfg *config.Config) status.Config {
	return status.Config{
		Enabled:       cfg.HTTP.Enabled,
		Addr:          cfg.HTTP.Addr,
		Token:         cfg.HTTP.Token,
		AllowInsecure: cfg.HTTP.AllowInsecure,
		Pprof:         cfg.HTTP.Pprof,
	}
}

func mapSchedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Workers:  cfg.Monitor.Workers,
		Timezone: strings.TrimSpace(cfg.Monitor.Timezone),
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=file")
		}
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 5*time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

// ValidateConfig runs the structural checks plus every runtime mapping.
func ValidateConfig(cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return err
	}
	var errs []error
	if _, err := mapNotifyConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, err := mapWebhookConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, err := mapMonitorConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := mapStorageConfig(cfg); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
