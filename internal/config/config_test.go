package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pewwatch/internal/endpoint"
)

const sampleYAML = `
logging:
  level: debug
  console: true
notify:
  quiet_window: 2500ms
slack:
  webhook_url: https://hooks.example.com/T000/B000
monitor:
  schedule: 30s
  down_after: 2
endpoints:
  - name: api
    location: https://api.example.com/health
    enabled: true
    status_codes: "200,204"
  - name: web
    location: https://www.example.com
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(writeFile(t, "pewwatch.yaml", sampleYAML))
	cfg, err := m.Parse()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "2500ms", cfg.Notify.QuietWindow)
	assert.Equal(t, 2, cfg.Monitor.DownAfter)
	require.Len(t, cfg.Endpoints, 2)
	assert.True(t, cfg.Endpoints[0].Enabled)
	assert.False(t, cfg.Endpoints[1].Enabled)
	assert.Equal(t, "200,204", cfg.Endpoints[0].StatusCodes)
	require.NoError(t, Validate(cfg))
}

func TestParseJSONStrict(t *testing.T) {
	t.Parallel()

	_, err := NewConfigManager(writeFile(t, "c.json", `{"monitor":{"schedule":"1m"},"bogus":1}`)).Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")

	_, err = NewConfigManager(writeFile(t, "c.json", `{"monitor":{}}{"monitor":{}}`)).Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing data")

	_, err = NewConfigManager(writeFile(t, "c.json", `{"monitor":{}} 42`)).Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing data")

	_, err = NewConfigManager(writeFile(t, "c.json", `{"monitor":{}} }`)).Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing data")

	_, err = NewConfigManager(writeFile(t, "c.json", "{\"monitor\":{}}\n\n")).Parse()
	require.NoError(t, err)

	_, err = NewConfigManager(writeFile(t, "c.yml", "endpoints:\n  - name: a\n    color: red\n")).Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yaml config")
}

func TestValidateReportsEveryProblem(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Logging: LoggingConfig{Level: "loud"},
		Notify:  NotifyConfig{QuietWindow: "soon"},
		Slack:   SlackConfig{WebhookURL: "ftp://secret-token@hooks"},
		Monitor: MonitorConfig{Schedule: "every:-1s", Timezone: "Mars/Olympus", DownAfter: -1},
		HTTP:    HTTPConfig{Addr: "nope"},
		Storage: &StorageConfig{Driver: "sqlite"},
		Endpoints: []endpoint.Endpoint{
			{Name: "a", Location: "https://a.example.com"},
			{Name: "a", Location: "https://b.example.com"},
		},
	}
	err := Validate(cfg)
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"logging.level",
		"notify.quiet_window",
		"slack.webhook_url",
		"monitor.schedule",
		"monitor.timezone",
		"monitor.down_after",
		"http.addr",
		"storage.path is required",
		"duplicate name",
	} {
		assert.Contains(t, msg, want)
	}
	assert.NotContains(t, msg, "secret-token")
}

func TestSummarizeConfigChangeHidesSecrets(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{Slack: SlackConfig{WebhookURL: "https://hooks.example.com/one"}}
	newCfg := &Config{
		Slack:     SlackConfig{WebhookURL: "https://hooks.example.com/two"},
		Telegram:  TelegramConfig{Token: "123:abc", ChatID: 42},
		Endpoints: []endpoint.Endpoint{{Name: "api", Location: "https://x", Enabled: true}},
	}

	changed, attrs := SummarizeConfigChange(oldCfg, newCfg)
	assert.Equal(t, []string{"endpoints", "slack", "telegram"}, changed)
	assert.NotEmpty(t, attrs)

	changed, _ = SummarizeConfigChange(newCfg, newCfg)
	assert.Empty(t, changed)
}

func TestRestartRequired(t *testing.T) {
	t.Parallel()
	a := &Config{Notify: NotifyConfig{QuietWindow: "2500ms"}}
	b := &Config{Notify: NotifyConfig{QuietWindow: "5s"}, Storage: &StorageConfig{Driver: "file", Path: "x"}}
	assert.Equal(t, []string{"notify.quiet_window", "storage"}, RestartRequired(a, b))
	assert.Empty(t, RestartRequired(a, a))
}

func TestWatchPublishesChanges(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "pewwatch.json", `{"monitor":{"schedule":"1m"}}`)
	m := NewConfigManager(path)
	_, err := m.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := m.Subscribe(1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"monitor":{"schedule":"30s"}}`), 0o600))

	select {
	case cfg := <-sub:
		assert.Equal(t, "30s", cfg.Monitor.Schedule)
		assert.Equal(t, "30s", m.Get().Monitor.Schedule)
	case <-time.After(5 * time.Second):
		t.Fatal("no config published")
	}

	cancel()
	<-done
	m.Unsubscribe(sub)
}

func TestWatchRejectsInvalid(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "pewwatch.json", `{"monitor":{"schedule":"1m"}}`)
	m := NewConfigManager(path)
	_, err := m.Load()
	require.NoError(t, err)
	m.SetValidator(func(_ context.Context, cfg *Config) error { return Validate(cfg) })

	sub := m.Subscribe(1)
	m.reload(context.Background()) // unchanged content is skipped
	require.NoError(t, os.WriteFile(path, []byte(`{"monitor":{"timezone":"Nowhere/Land"}}`), 0o600))
	m.reload(context.Background())

	select {
	case cfg := <-sub:
		t.Fatalf("unexpected publish: %+v", cfg)
	default:
	}
	assert.True(t, strings.EqualFold(m.Get().Monitor.Schedule, "1m"))
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationField("notify.quiet_window", "2500")
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, d)

	d, err = ParseDurationField("notify.quiet_window", " 1m30s ")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = ParseDurationField("notify.quiet_window", "")
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = ParseDurationField("notify.quiet_window", "-5")
	require.Error(t, err)
	_, err = ParseDurationField("notify.quiet_window", "soon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify.quiet_window")

	d, err = ParseDurationOrDefault("notify.send_timeout", "0", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, d)
}

func TestParseYAMLDocuments(t *testing.T) {
	t.Parallel()
	_, err := NewConfigManager(writeFile(t, "c.yaml", "monitor:\n  schedule: 1m\n---\nmonitor:\n  schedule: 5m\n")).Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing data")

	cfg, err := NewConfigManager(writeFile(t, "c.yaml", "")).Parse()
	require.NoError(t, err)
	assert.Empty(t, cfg.Endpoints)
}
