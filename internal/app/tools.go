package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pewwatch/internal/config"
	"pewwatch/internal/monitor"
	"pewwatch/internal/notify"
	"pewwatch/internal/storage"
	"pewwatch/internal/transport"
	"pewwatch/internal/transport/telegram"
	"pewwatch/internal/transport/webhook"
	logx "pewwatch/pkg/logx"
)

// One-shot helpers used by CLI subcommands. None of them start the daemon.

// LoadConfig parses and validates the config file at path.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.NewConfigManager(path).Parse()
	if err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CheckEndpoint checks the named endpoint once. Nothing is notified or stored.
func CheckEndpoint(ctx context.Context, cfg *config.Config, name string) (notify.CheckResult, error) {
	mcfg, err := mapMonitorConfig(cfg)
	if err != nil {
		return notify.CheckResult{}, err
	}
	for _, ep := range cfg.Endpoints {
		if ep.Name == name {
			c := monitor.NewChecker(monitor.CheckerConfig{Timeout: mcfg.CheckTimeout, UserAgent: mcfg.UserAgent})
			return c.Check(ctx, ep), nil
		}
	}
	return notify.CheckResult{}, fmt.Errorf("unknown endpoint %q", name)
}

// History returns the newest n recorded notifications.
func History(ctx context.Context, cfg *config.Config, n int) ([]storage.Notification, error) {
	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, storage.ErrDisabled
	}
	st, err := storage.Open(sc, logx.Nop())
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.RecentNotifications(ctx, n)
}

// SendTest sends text through every configured transport and records it.
// It returns the channel it used.
func SendTest(ctx context.Context, cfg *config.Config, text string) (string, error) {
	whCfg, err := mapWebhookConfig(cfg)
	if err != nil {
		return "", err
	}
	tg, err := telegram.New(mapTelegramConfig(cfg))
	if err != nil {
		return "", err
	}
	multi := transport.Multi{webhook.New(whCfg), tg}
	if !multi.Enabled() {
		return "", errors.New("no transport configured (set slack.webhook_url or telegram.token + chat_id)")
	}
	if tg.Enabled() {
		if err := tg.Check(); err != nil {
			return tg.Channel(), fmt.Errorf("telegram token check: %w", err)
		}
	}

	var history transport.HistoryStore
	if sc, enabled, err := mapStorageConfig(cfg); err == nil && enabled {
		if st, err := storage.Open(sc, logx.Nop()); err == nil {
			defer st.Close()
			history = st
		}
	}

	ncfg, err := mapNotifyConfig(cfg)
	if err != nil {
		return "", err
	}
	sctx, cancel := context.WithTimeout(ctx, ncfg.SendTimeout)
	defer cancel()
	sender := transport.NewRecorder(multi, history, logx.Nop())
	if err := sender.Send(sctx, strings.TrimSpace(text)); err != nil {
		return multi.Channel(), err
	}
	return multi.Channel(), nil
}
