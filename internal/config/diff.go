package config

import (
	"reflect"
	"sort"
	"strings"

	logx "pewwatch/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections and
// (2) safe structured attrs for logging. Webhook URLs and bot tokens are
// never included; only whether they are set.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 20)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if oldCfg.Notify != newCfg.Notify {
		changed = append(changed, "notify")
		attrs = append(attrs,
			logx.String("notify.quiet_window", strings.TrimSpace(newCfg.Notify.QuietWindow)),
			logx.String("notify.send_timeout", strings.TrimSpace(newCfg.Notify.SendTimeout)),
		)
	}

	if oldCfg.Slack != newCfg.Slack {
		changed = append(changed, "slack")
		attrs = append(attrs,
			logx.Bool("slack.webhook_set", strings.TrimSpace(newCfg.Slack.WebhookURL) != ""),
			logx.Int("slack.rate_per_sec", newCfg.Slack.RatePerSec),
			logx.Int("slack.burst", newCfg.Slack.Burst),
			logx.String("slack.timeout", strings.TrimSpace(newCfg.Slack.Timeout)),
		)
	}

	if oldCfg.Telegram != newCfg.Telegram {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_set", strings.TrimSpace(newCfg.Telegram.Token) != ""),
			logx.Bool("telegram.chat_set", newCfg.Telegram.ChatID != 0),
			logx.Int("telegram.thread_id", newCfg.Telegram.ThreadID),
		)
	}

	if oldCfg.Monitor != newCfg.Monitor {
		changed = append(changed, "monitor")
		attrs = append(attrs,
			logx.String("monitor.schedule", strings.TrimSpace(newCfg.Monitor.Schedule)),
			logx.String("monitor.check_timeout", strings.TrimSpace(newCfg.Monitor.CheckTimeout)),
			logx.Int("monitor.down_after", newCfg.Monitor.DownAfter),
			logx.Int("monitor.workers", newCfg.Monitor.Workers),
			logx.String("monitor.timezone", strings.TrimSpace(newCfg.Monitor.Timezone)),
		)
	}

	if oldCfg.HTTP != newCfg.HTTP {
		changed = append(changed, "http")
		attrs = append(attrs,
			logx.Bool("http.enabled", newCfg.HTTP.Enabled),
			logx.String("http.addr", strings.TrimSpace(newCfg.HTTP.Addr)),
			logx.Bool("http.token_set", strings.TrimSpace(newCfg.HTTP.Token) != ""),
			logx.Bool("http.pprof", newCfg.HTTP.Pprof),
		)
	}

	// Storage (nil means disabled)
	var oS, nS StorageConfig
	if oldCfg.Storage != nil {
		oS = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		nS = *newCfg.Storage
	}
	if strings.TrimSpace(oS.Driver) != strings.TrimSpace(nS.Driver) ||
		strings.TrimSpace(oS.Path) != strings.TrimSpace(nS.Path) ||
		strings.TrimSpace(oS.BusyTimeout) != strings.TrimSpace(nS.BusyTimeout) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(nS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(nS.Path) != ""),
			logx.String("storage.busy_timeout", strings.TrimSpace(nS.BusyTimeout)),
		)
	}

	// Endpoints (counts only; the monitor logs per-endpoint changes)
	if !reflect.DeepEqual(oldCfg.Endpoints, newCfg.Endpoints) {
		changed = append(changed, "endpoints")
		enabled := 0
		for _, ep := range newCfg.Endpoints {
			if ep.Enabled {
				enabled++
			}
		}
		attrs = append(attrs,
			logx.Int("endpoints.count", len(newCfg.Endpoints)),
			logx.Int("endpoints.enabled", enabled),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

// RestartRequired lists changed sections that only take effect on restart.
func RestartRequired(oldCfg, newCfg *Config) []string {
	if oldCfg == nil || newCfg == nil {
		return nil
	}
	var out []string
	if strings.TrimSpace(oldCfg.Notify.QuietWindow) != strings.TrimSpace(newCfg.Notify.QuietWindow) {
		out = append(out, "notify.quiet_window")
	}
	if strings.TrimSpace(oldCfg.Notify.SendTimeout) != strings.TrimSpace(newCfg.Notify.SendTimeout) {
		out = append(out, "notify.send_timeout")
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		out = append(out, "storage")
	}
	return out
}
