package config

import (
	"reflect"
	"sort"
	"strings"

	logx "planner/pkg/logx"
)

// restartOnly lists sections that are read once at startup.
var restartOnly = map[string]bool{
	"ui":       true,
	"reminder": true,
	"storage":  true,
	"telegram": true,
}

// SummarizeConfigChange returns (1) a sorted list of changed sections,
// (2) safe structured attrs for logging (never includes tokens), and (3) the
// changed sections that only take effect after a restart.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 16)

	if strings.TrimSpace(oldCfg.UI.Adapter) != strings.TrimSpace(newCfg.UI.Adapter) {
		changed = append(changed, "ui")
		attrs = append(attrs, logx.String("ui.adapter", newCfg.UI.Adapter))
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if strings.TrimSpace(oldCfg.Reminder.Timezone) != strings.TrimSpace(newCfg.Reminder.Timezone) {
		changed = append(changed, "reminder")
		attrs = append(attrs, logx.String("reminder.timezone", newCfg.Reminder.Timezone))
	}

	if !reflect.DeepEqual(oldCfg.Notifier, newCfg.Notifier) {
		n := newCfg.Notifier
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Bool("notifier.enabled", n.IsEnabled()),
			logx.Int("notifier.workers", n.Workers),
			logx.Int("notifier.queue_size", n.QueueSize),
			logx.Int("notifier.rate_per_sec", n.RatePerSec),
			logx.Int("notifier.retry_max", n.RetryMax),
		)
	}

	if !reflect.DeepEqual(oldCfg.Agenda, newCfg.Agenda) {
		a := newCfg.Agenda
		changed = append(changed, "agenda")
		attrs = append(attrs,
			logx.Bool("agenda.enabled", a.Enabled),
			logx.String("agenda.schedule", a.Schedule),
			logx.String("agenda.timezone", a.Timezone),
			logx.Int("agenda.targets", len(a.Targets)),
		)
	}

	// Token presence only.
	oh, nh := oldCfg.HTTP, newCfg.HTTP
	if oh.Enabled != nh.Enabled ||
		strings.TrimSpace(oh.Addr) != strings.TrimSpace(nh.Addr) ||
		oh.AllowInsecure != nh.AllowInsecure ||
		oh.ReadTimeout != nh.ReadTimeout || oh.WriteTimeout != nh.WriteTimeout ||
		oh.Token != nh.Token {
		changed = append(changed, "http")
		attrs = append(attrs,
			logx.Bool("http.enabled", nh.Enabled),
			logx.String("http.addr", strings.TrimSpace(nh.Addr)),
			logx.Bool("http.token_set", strings.TrimSpace(nh.Token) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.Bool("storage.path_set", strings.TrimSpace(newCfg.Storage.Path) != ""),
		)
	}

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.Token != nt.Token || ot.PollTimeout != nt.PollTimeout || !reflect.DeepEqual(ot.OwnerUserIDs, nt.OwnerUserIDs) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.poll_timeout", nt.PollTimeout),
			logx.Int("telegram.owner_count", len(nt.OwnerUserIDs)),
		)
	}

	sort.Strings(changed)
	var restart []string
	for _, s := range changed {
		if restartOnly[s] {
			restart = append(restart, s)
		}
	}
	return changed, attrs, restart
}
