package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate validates the complete configuration structure.
func Validate(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

// validate performs configuration validation using domain-specific methods.
func (cv *configurationValidator) validate() error {
	if err := cv.validateTelegram(); err != nil {
		return err
	}
	if err := cv.validateSchedule(); err != nil {
		return err
	}
	if err := cv.validateRelay(); err != nil {
		return err
	}
	return nil
}

// validateTelegram validates Bot API settings.
func (cv *configurationValidator) validateTelegram() error {
	tg := cv.config.Telegram
	if tg.Token == "" {
		return errors.New("telegram.token must be configured")
	}
	// An unexpanded ${VAR} means the environment variable was never set.
	if strings.Contains(tg.Token, "${") {
		return fmt.Errorf("telegram.token contains an unexpanded variable reference: %s", tg.Token)
	}
	if _, err := url.Parse(tg.APIBase); err != nil {
		return fmt.Errorf("telegram.api_base is not a valid URL: %w", err)
	}
	if tg.PollTimeout < 1 || tg.PollTimeout > 300 {
		return fmt.Errorf("telegram.poll_timeout must be between 1 and 300 seconds, got %d", tg.PollTimeout)
	}
	if _, err := tg.RetryPolicy(); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

// validateSchedule validates the timezone, slot times and nag cadence.
func (cv *configurationValidator) validateSchedule() error {
	sched := cv.config.Schedule

	if _, err := sched.Location(); err != nil {
		return fmt.Errorf("schedule.timezone is not a valid IANA zone: %w", err)
	}

	if _, err := sched.SlotTimes(); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	nag, err := sched.NagEvery()
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	if nag <= 0 {
		return fmt.Errorf("schedule.nag_interval must be positive, got %s", sched.NagInterval)
	}

	return nil
}

// validateRelay validates the optional NATS relay section.
func (cv *configurationValidator) validateRelay() error {
	relay := cv.config.Relay
	if relay == nil || !relay.Enabled {
		return nil
	}
	if relay.URL == "" {
		return errors.New("relay.url must be configured when the relay is enabled")
	}
	if !strings.HasPrefix(relay.URL, "nats://") && !strings.HasPrefix(relay.URL, "tls://") {
		return fmt.Errorf("relay.url must use the nats:// or tls:// scheme, got %s", relay.URL)
	}
	return nil
}
