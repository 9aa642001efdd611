package config

// Config is the on-disk configuration (JSON or YAML).
//
// Durations are strings ("500ms", "10s") and are parsed by the component that
// owns them; Validate checks them up front so a bad reload is rejected whole.
type Config struct {
	UI       UIConfig       `json:"ui"`
	Logging  LoggingConfig  `json:"logging"`
	Reminder ReminderConfig `json:"reminder"`
	Notifier NotifierConfig `json:"notifier"`
	Agenda   AgendaConfig   `json:"agenda"`
	HTTP     HTTPConfig     `json:"http"`
	Storage  StorageConfig  `json:"storage"`
	Telegram TelegramConfig `json:"telegram"`
}

type UIConfig struct {
	// Adapter is "console" (default) or "telegram". The --ui flag overrides it.
	Adapter string `json:"adapter" validate:"omitempty,oneof=console telegram"`
}

type LoggingConfig struct {
	Level   string            `json:"level"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type ReminderConfig struct {
	// Timezone is an IANA name; empty means the host's local zone.
	Timezone string `json:"timezone"`
}

type NotifierConfig struct {
	// Enabled defaults to true when omitted.
	Enabled       *bool  `json:"enabled,omitempty"`
	Workers       int    `json:"workers" validate:"gte=0,lte=64"`
	QueueSize     int    `json:"queue_size" validate:"gte=0"`
	RatePerSec    int    `json:"rate_per_sec" validate:"gte=0"`
	RetryMax      int    `json:"retry_max" validate:"gte=0,lte=20"`
	RetryBase     string `json:"retry_base"`
	RetryMaxDelay string `json:"retry_max_delay"`
	SendTimeout   string `json:"send_timeout"`
	HistorySize   int    `json:"history_size" validate:"gte=0"`
}

// IsEnabled applies the default for an omitted enabled flag.
func (n NotifierConfig) IsEnabled() bool { return n.Enabled == nil || *n.Enabled }

type AgendaConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule is a standard 5-field cron spec, e.g. "0 8 * * *".
	Schedule string         `json:"schedule" validate:"required_if=Enabled true"`
	Timezone string         `json:"timezone"`
	Targets  []TargetConfig `json:"targets" validate:"dive"`
}

type TargetConfig struct {
	Channel string `json:"channel" validate:"required,oneof=console telegram"`
	ChatID  int64  `json:"chat_id"`
}

type HTTPConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr" validate:"required_if=Enabled true"`
	Token         string `json:"token"`
	AllowInsecure bool   `json:"allow_insecure"`
	ReadTimeout   string `json:"read_timeout"`
	WriteTimeout  string `json:"write_timeout"`
}

type StorageConfig struct {
	Driver      string `json:"driver" validate:"omitempty,oneof=none file sqlite sqlite3"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	PollTimeout  string  `json:"poll_timeout"`
}
