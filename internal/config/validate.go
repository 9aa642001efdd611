package config

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"strings"
	"sync"

	logx "planner/pkg/logx"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report config keys, not Go field names.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks cfg as a whole: struct tags first, then the cross-field and
// parse checks tags cannot express. All problems are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	var errs []error
	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q check", trimRoot(fe.Namespace()), fe.Tag()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if lvl := strings.TrimSpace(cfg.Logging.Level); lvl != "" {
		if _, ok := logx.ParseLevel(lvl); !ok {
			errs = append(errs, fmt.Errorf("logging.level: unknown level %q", lvl))
		}
	}
	if _, err := LoadLocation("reminder.timezone", cfg.Reminder.Timezone); err != nil {
		errs = append(errs, err)
	}

	for path, raw := range map[string]string{
		"notifier.retry_base":      cfg.Notifier.RetryBase,
		"notifier.retry_max_delay": cfg.Notifier.RetryMaxDelay,
		"notifier.send_timeout":    cfg.Notifier.SendTimeout,
		"http.read_timeout":        cfg.HTTP.ReadTimeout,
		"http.write_timeout":       cfg.HTTP.WriteTimeout,
		"storage.busy_timeout":     cfg.Storage.BusyTimeout,
		"telegram.poll_timeout":    cfg.Telegram.PollTimeout,
	} {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}

	if cfg.Agenda.Enabled {
		if _, err := cron.ParseStandard(strings.TrimSpace(cfg.Agenda.Schedule)); err != nil {
			errs = append(errs, fmt.Errorf("agenda.schedule: %w", err))
		}
		if _, err := LoadLocation("agenda.timezone", cfg.Agenda.Timezone); err != nil {
			errs = append(errs, err)
		}
	}

	if cfg.HTTP.Enabled {
		if err := validateHTTPAddr(cfg.HTTP); err != nil {
			errs = append(errs, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			errs = append(errs, errors.New("storage.path: required for driver "+cfg.Storage.Driver))
		}
	}

	if cfg.UI.Adapter == "telegram" {
		errs = append(errs, ValidateTelegram(cfg.Telegram)...)
	}

	return errors.Join(errs...)
}

// ValidateTelegram is also used when --ui telegram overrides the file.
func ValidateTelegram(tg TelegramConfig) []error {
	var errs []error
	if strings.TrimSpace(tg.Token) == "" {
		errs = append(errs, errors.New("telegram.token: required for the telegram ui"))
	}
	if len(tg.OwnerUserIDs) == 0 {
		errs = append(errs, errors.New("telegram.owner_user_ids: at least one owner is required"))
	}
	return errs
}

func validateHTTPAddr(h HTTPConfig) error {
	host, _, err := net.SplitHostPort(strings.TrimSpace(h.Addr))
	if err != nil {
		return fmt.Errorf("http.addr: %w", err)
	}
	if IsLoopbackHost(host) || h.AllowInsecure || strings.TrimSpace(h.Token) != "" {
		return nil
	}
	return errors.New("http.addr: non-loopback bind requires http.token or http.allow_insecure")
}

// IsLoopbackHost reports whether host only accepts local connections.
func IsLoopbackHost(host string) bool {
	host = strings.Trim(strings.TrimSpace(host), "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func trimRoot(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
