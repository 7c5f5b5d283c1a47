package config

// Default schedule mirrors the household routine the bot was built around:
// food at ten, morning medicine an hour later, evening medicine at six.
const (
	DefaultTimezone        = "Asia/Jakarta"
	DefaultFoodAt          = "10:00"
	DefaultMedicineMorning = "11:00"
	DefaultMedicineEvening = "18:00"
	DefaultNagInterval     = "30m"

	DefaultAPIBase      = "https://api.telegram.org"
	DefaultPollTimeout  = 50
	DefaultDatabasePath = "./carebot.db"
	DefaultAdminListen  = "127.0.0.1:8380"
	DefaultMetricsPath  = "/metrics"
	DefaultHealthPath   = "/healthz"

	DefaultMaxRetries        = 2
	DefaultRetryBackoff      = "linear"
	DefaultRetryInitialDelay = "1s"
	DefaultRetryMaxDelay     = "10s"

	DefaultRelaySubjectPrefix = "carebot"
)

// applyDefaults fills unset fields with defaults.
func applyDefaults(cfg *Config) {
	if cfg.Telegram.APIBase == "" {
		cfg.Telegram.APIBase = DefaultAPIBase
	}
	if cfg.Telegram.PollTimeout <= 0 {
		cfg.Telegram.PollTimeout = DefaultPollTimeout
	}
	if cfg.Telegram.MaxRetries <= 0 {
		cfg.Telegram.MaxRetries = DefaultMaxRetries
	}
	if cfg.Telegram.RetryBackoff == "" {
		cfg.Telegram.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Telegram.RetryInitialDelay == "" {
		cfg.Telegram.RetryInitialDelay = DefaultRetryInitialDelay
	}
	if cfg.Telegram.RetryMaxDelay == "" {
		cfg.Telegram.RetryMaxDelay = DefaultRetryMaxDelay
	}

	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = DefaultTimezone
	}
	if cfg.Schedule.FoodAt == "" {
		cfg.Schedule.FoodAt = DefaultFoodAt
	}
	if cfg.Schedule.MedicineMorning == "" {
		cfg.Schedule.MedicineMorning = DefaultMedicineMorning
	}
	if cfg.Schedule.MedicineEvening == "" {
		cfg.Schedule.MedicineEvening = DefaultMedicineEvening
	}
	if cfg.Schedule.NagInterval == "" {
		cfg.Schedule.NagInterval = DefaultNagInterval
	}

	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = DefaultDatabasePath
	}

	if cfg.Relay != nil && cfg.Relay.SubjectPrefix == "" {
		cfg.Relay.SubjectPrefix = DefaultRelaySubjectPrefix
	}

	if cfg.Admin.Listen == "" {
		cfg.Admin.Listen = DefaultAdminListen
	}
	if cfg.Admin.Metrics.Path == "" {
		cfg.Admin.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Admin.Health.Path == "" {
		cfg.Admin.Health.Path = DefaultHealthPath
	}

	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}
