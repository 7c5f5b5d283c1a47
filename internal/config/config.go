// Package config loads and validates the carebot configuration file.
// Values may reference environment variables with ${VAR} syntax; a .env
// file next to the binary is loaded first so local runs need no exports.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/retry"
)

// Config represents the application configuration
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Recipient RecipientConfig `yaml:"recipient,omitempty"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Storage   StorageConfig   `yaml:"storage"`
	Relay     *RelayConfig    `yaml:"relay,omitempty"`
	Admin     AdminConfig     `yaml:"admin"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TelegramConfig holds Bot API credentials and polling behavior.
type TelegramConfig struct {
	Token       string `yaml:"token"`
	APIBase     string `yaml:"api_base,omitempty"`     // override for tests, defaults to the public API
	PollTimeout int    `yaml:"poll_timeout,omitempty"` // getUpdates long-poll timeout in seconds

	// Retry policy fields (apply to transient send failures: rate limits, 5xx)
	MaxRetries        int    `yaml:"max_retries,omitempty"`         // retries after the first attempt (default 2)
	RetryBackoff      string `yaml:"retry_backoff,omitempty"`       // fixed|linear|exponential (default linear)
	RetryInitialDelay string `yaml:"retry_initial_delay,omitempty"` // duration string (default 1s)
	RetryMaxDelay     string `yaml:"retry_max_delay,omitempty"`     // cap for growth (default 10s)
}

// RetryPolicy builds the backoff policy for transient Bot API send failures.
// Unset fields fall back to the policy defaults.
func (t TelegramConfig) RetryPolicy() (retry.Policy, error) {
	mode := retry.BackoffMode(t.RetryBackoff)
	switch mode {
	case "", retry.BackoffFixed, retry.BackoffLinear, retry.BackoffExponential:
	default:
		return retry.Policy{}, fmt.Errorf("retry_backoff must be fixed, linear or exponential, got %q", t.RetryBackoff)
	}
	if t.MaxRetries < 0 {
		return retry.Policy{}, fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}
	var initial, maxDelay time.Duration
	var err error
	if t.RetryInitialDelay != "" {
		if initial, err = time.ParseDuration(t.RetryInitialDelay); err != nil {
			return retry.Policy{}, fmt.Errorf("retry_initial_delay: %w", err)
		}
	}
	if t.RetryMaxDelay != "" {
		if maxDelay, err = time.ParseDuration(t.RetryMaxDelay); err != nil {
			return retry.Policy{}, fmt.Errorf("retry_max_delay: %w", err)
		}
	}
	return retry.NewPolicy(mode, initial, maxDelay, t.MaxRetries), nil
}

// RecipientConfig describes the person being reminded. The identity itself
// is linked at runtime; the name only personalizes message texts.
type RecipientConfig struct {
	Name string `yaml:"name,omitempty"`
}

// ScheduleConfig holds the daily slot times and the escalation cadence.
// Times are local wall-clock "HH:MM" strings interpreted in Timezone.
type ScheduleConfig struct {
	Timezone        string `yaml:"timezone"`
	FoodAt          string `yaml:"food_at"`
	MedicineMorning string `yaml:"medicine_morning_at"`
	MedicineEvening string `yaml:"medicine_evening_at"`
	NagInterval     string `yaml:"nag_interval"` // Go duration string, e.g. "30m"
}

// Location resolves the configured timezone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// SlotTimes returns the wall-clock trigger time for every slot.
func (s ScheduleConfig) SlotTimes() (map[care.Slot]care.ClockTime, error) {
	out := make(map[care.Slot]care.ClockTime, 3)
	for slot, raw := range map[care.Slot]string{
		care.SlotFood:            s.FoodAt,
		care.SlotMedicineMorning: s.MedicineMorning,
		care.SlotMedicineEvening: s.MedicineEvening,
	} {
		ct, err := care.ParseClock(raw)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", slot, err)
		}
		out[slot] = ct
	}
	return out, nil
}

// NagEvery parses the escalation interval.
func (s ScheduleConfig) NagEvery() (time.Duration, error) {
	d, err := time.ParseDuration(s.NagInterval)
	if err != nil {
		return 0, fmt.Errorf("nag_interval: %w", err)
	}
	return d, nil
}

// StorageConfig holds paths for durable state.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// RelayConfig enables mirroring care events to NATS JetStream. Optional;
// no relay connection is made unless the section is present and enabled.
type RelayConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix,omitempty"`
	KVBucket      string `yaml:"kv_bucket,omitempty"` // recipient override bucket, empty disables KV lookup
	CredsFile     string `yaml:"creds_file,omitempty"`
}

// AdminConfig holds the local HTTP endpoint for health, status and metrics.
type AdminConfig struct {
	Listen  string        `yaml:"listen,omitempty"`
	Metrics MetricsConfig `yaml:"metrics"`
	Health  HealthConfig  `yaml:"health"`
}

// MetricsConfig represents metrics exposure configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// HealthConfig represents health check configuration
type HealthConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists so ${VAR} references resolve for local runs.
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// loadEnvFiles loads the first .env file found. Existing process
// environment variables are never overwritten.
func loadEnvFiles() {
	for _, envPath := range []string{".env", ".env.local"} {
		if err := godotenv.Load(envPath); err == nil {
			fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", envPath)
			return
		}
	}
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Telegram: TelegramConfig{
			Token:             "${CAREBOT_TELEGRAM_TOKEN}",
			PollTimeout:       50,
			MaxRetries:        DefaultMaxRetries,
			RetryBackoff:      DefaultRetryBackoff,
			RetryInitialDelay: DefaultRetryInitialDelay,
			RetryMaxDelay:     DefaultRetryMaxDelay,
		},
		Schedule: ScheduleConfig{
			Timezone:        "Asia/Jakarta",
			FoodAt:          "10:00",
			MedicineMorning: "11:00",
			MedicineEvening: "18:00",
			NagInterval:     "30m",
		},
		Storage: StorageConfig{
			DatabasePath: "./carebot.db",
		},
		Admin: AdminConfig{
			Listen: "127.0.0.1:8380",
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
			Health: HealthConfig{
				Path: "/healthz",
			},
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
