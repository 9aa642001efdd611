package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	logx "planner/pkg/logx"
)

const sampleYAML = `
ui:
  adapter: console
logging:
  level: debug
  console: true
reminder:
  timezone: UTC
notifier:
  workers: 1
  retry_max: 2
  retry_base: 200ms
agenda:
  enabled: true
  schedule: "0 8 * * *"
  targets:
    - channel: console
http:
  enabled: true
  addr: 127.0.0.1:8085
storage:
  driver: file
  path: ./data/audit.jsonl
`

func TestDecodeYAMLAndJSON(t *testing.T) {
	t.Parallel()

	cfg, err := Decode("planner.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Notifier.RetryMax != 2 || len(cfg.Agenda.Targets) != 1 {
		t.Fatalf("decoded = %+v", cfg)
	}
	if !cfg.Notifier.IsEnabled() {
		t.Fatal("notifier should default to enabled")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}

	js, err := Decode("planner.json", []byte(`{"reminder":{"timezone":"Europe/Berlin"},"notifier":{"enabled":false}}`))
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if js.Reminder.Timezone != "Europe/Berlin" || js.Notifier.IsEnabled() {
		t.Fatalf("decoded = %+v", js)
	}
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name, file, body string
	}{
		{"unknown yaml key", "c.yaml", "logging:\n  levle: info\n"},
		{"unknown json key", "c.json", `{"extra": 1}`},
		{"trailing data", "c.json", `{} {}`},
		{"wrong type", "c.yaml", "notifier:\n  workers: many\n"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Decode(tc.file, []byte(tc.body)); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestDecodeEmptyYAML(t *testing.T) {
	t.Parallel()
	cfg, err := Decode("empty.yaml", nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("an empty config should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"bad adapter", func(c *Config) { c.UI.Adapter = "gtk" }, "ui.adapter"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad timezone", func(c *Config) { c.Reminder.Timezone = "Mars/Olympus" }, "reminder.timezone"},
		{"bad duration", func(c *Config) { c.Notifier.RetryBase = "soon" }, "notifier.retry_base"},
		{"negative workers", func(c *Config) { c.Notifier.Workers = -1 }, "notifier.workers"},
		{"agenda without schedule", func(c *Config) { c.Agenda = AgendaConfig{Enabled: true} }, "agenda.schedule"},
		{"agenda bad cron", func(c *Config) { c.Agenda.Enabled = true; c.Agenda.Schedule = "every day" }, "agenda.schedule"},
		{"agenda bad target", func(c *Config) { c.Agenda.Targets = []TargetConfig{{Channel: "fax"}} }, "channel"},
		{"http public no token", func(c *Config) { c.HTTP = HTTPConfig{Enabled: true, Addr: "0.0.0.0:8085"} }, "http.addr"},
		{"http public with token", func(c *Config) { c.HTTP = HTTPConfig{Enabled: true, Addr: "0.0.0.0:8085", Token: "s3cret"} }, ""},
		{"storage without path", func(c *Config) { c.Storage = StorageConfig{Driver: "file"} }, "storage.path"},
		{"storage bad driver", func(c *Config) { c.Storage.Driver = "mongo" }, "storage.driver"},
		{"telegram without token", func(c *Config) { c.UI.Adapter = "telegram" }, "telegram.token"},
		{"telegram ok", func(c *Config) {
			c.UI.Adapter = "telegram"
			c.Telegram = TelegramConfig{Token: "t", OwnerUserIDs: []int64{42}}
		}, ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := Decode("planner.yaml", []byte(sampleYAML))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			tc.mutate(cfg)
			err = Validate(cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	oldCfg, _ := Decode("a.yaml", []byte(sampleYAML))
	newCfg, _ := Decode("a.yaml", []byte(sampleYAML))

	changed, _, restart := SummarizeConfigChange(oldCfg, newCfg)
	if len(changed) != 0 || len(restart) != 0 {
		t.Fatalf("identical configs: changed=%v restart=%v", changed, restart)
	}

	newCfg.Logging.Level = "info"
	newCfg.Storage.Path = "./other.jsonl"
	newCfg.HTTP.Token = "secret"
	changed, attrs, restart := SummarizeConfigChange(oldCfg, newCfg)
	want := []string{"http", "logging", "storage"}
	if strings.Join(changed, ",") != strings.Join(want, ",") {
		t.Fatalf("changed = %v, want %v", changed, want)
	}
	if len(restart) != 1 || restart[0] != "storage" {
		t.Fatalf("restart = %v, want [storage]", restart)
	}

	var buf strings.Builder
	log := logx.NewWriter(&buf, "debug")
	log.Info("reload", attrs...)
	if strings.Contains(buf.String(), "secret") {
		t.Fatalf("summary leaked the token: %s", buf.String())
	}
}

func TestManagerWatchPublishesValidReloads(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.yaml")
	write := func(s string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(s), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write("logging:\n  level: info\n")

	m := NewManager(path)
	m.debounce = 20 * time.Millisecond
	if _, err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	// An invalid file is rejected and never published.
	write("logging:\n  level: loud\n")
	select {
	case cfg := <-sub:
		t.Fatalf("invalid config published: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}

	write("logging:\n  level: debug\n")
	select {
	case cfg := <-sub:
		if cfg.Logging.Level != "debug" {
			t.Fatalf("published level = %q", cfg.Logging.Level)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("valid reload was not published")
	}
	if got := m.Get().Logging.Level; got != "debug" {
		t.Fatalf("committed level = %q", got)
	}
}

func TestExampleConfigIsValid(t *testing.T) {
	t.Parallel()
	m := NewManager(filepath.Join("..", "..", "planner.example.yaml"))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	if !cfg.Notifier.IsEnabled() || cfg.Storage.Driver != "file" {
		t.Fatalf("example = %+v", cfg)
	}
}
