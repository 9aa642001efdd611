package app

import (
	"strings"
	"time"

	"planner/internal/agenda"
	"planner/internal/config"
	"planner/internal/httpapi"
	"planner/internal/notifier"
	"planner/internal/storage"
	"planner/internal/transport"
	"planner/internal/transport/console"
	"planner/internal/transport/telegram"
	logx "planner/pkg/logx"
)

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func notifierConfig(cfg *config.Config) (notifier.Config, error) {
	n := cfg.Notifier
	base, err := config.ParseDurationField("notifier.retry_base", n.RetryBase)
	if err != nil {
		return notifier.Config{}, err
	}
	maxDelay, err := config.ParseDurationField("notifier.retry_max_delay", n.RetryMaxDelay)
	if err != nil {
		return notifier.Config{}, err
	}
	sendTimeout, err := config.ParseDurationField("notifier.send_timeout", n.SendTimeout)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		Enabled:       n.IsEnabled(),
		Workers:       n.Workers,
		QueueSize:     n.QueueSize,
		RatePerSec:    n.RatePerSec,
		RetryMax:      n.RetryMax,
		RetryBase:     base,
		RetryMaxDelay: maxDelay,
		SendTimeout:   sendTimeout,
		HistorySize:   n.HistorySize,
	}, nil
}

func storageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(sc.Driver)),
		Path:        strings.TrimSpace(sc.Path),
		BusyTimeout: busy,
	}, nil
}

func telegramConfig(cfg *config.Config) (telegram.Config, error) {
	poll, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:        cfg.Telegram.Token,
		OwnerUserIDs: append([]int64(nil), cfg.Telegram.OwnerUserIDs...),
		PollTimeout:  poll,
	}, nil
}

func httpConfig(cfg *config.Config) (httpapi.Config, error) {
	h := cfg.HTTP
	rt, err := config.ParseDurationField("http.read_timeout", h.ReadTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	wt, err := config.ParseDurationField("http.write_timeout", h.WriteTimeout)
	if err != nil {
		return httpapi.Config{}, err
	}
	return httpapi.Config{
		Enabled:       h.Enabled,
		Addr:          strings.TrimSpace(h.Addr),
		Token:         h.Token,
		AllowInsecure: h.AllowInsecure,
		ReadTimeout:   rt,
		WriteTimeout:  wt,
	}, nil
}

// agendaConfig resolves the digest targets for the running UI. Targets on
// another channel are returned in skipped since the only display is ui.
// Without configured targets the digest goes to the console, or to every
// telegram owner's private chat.
func agendaConfig(cfg *config.Config, ui string, fallback *time.Location) (ac agenda.Config, skipped []transport.Target, err error) {
	a := cfg.Agenda
	loc := fallback
	if strings.TrimSpace(a.Timezone) != "" {
		loc, err = config.LoadLocation("agenda.timezone", a.Timezone)
		if err != nil {
			return agenda.Config{}, nil, err
		}
	}

	var targets []transport.Target
	for _, t := range a.Targets {
		to := transport.Target{Channel: t.Channel, ChatID: t.ChatID}
		if to.Channel != ui {
			skipped = append(skipped, to)
			continue
		}
		targets = append(targets, to)
	}
	if len(a.Targets) == 0 {
		switch ui {
		case console.Channel:
			targets = []transport.Target{console.Target}
		case telegram.Channel:
			for _, id := range cfg.Telegram.OwnerUserIDs {
				targets = append(targets, transport.Target{Channel: telegram.Channel, ChatID: id})
			}
		}
	}

	return agenda.Config{
		Enabled:  a.Enabled,
		Schedule: strings.TrimSpace(a.Schedule),
		Location: loc,
		Targets:  targets,
	}, skipped, nil
}

// uiName picks the adapter: the override wins, then the file, then console.
func uiName(override string, cfg *config.Config) string {
	if s := strings.ToLower(strings.TrimSpace(override)); s != "" {
		return s
	}
	if s := strings.ToLower(strings.TrimSpace(cfg.UI.Adapter)); s != "" {
		return s
	}
	return console.Channel
}
