package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
//
// The generation credential is not checked here so that commands which never
// call the model (history, doctor, config show) keep working without one. See
// RequireLLMKey.
func (c *Config) Validate() error {
	if err := c.validateSampler(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSampler() error {
	if c.Sampler.IntervalSeconds <= 0 {
		return errors.New("sampler.interval_seconds must be positive")
	}
	if c.Sampler.MaxWidth <= 0 {
		return errors.New("sampler.max_width must be positive")
	}
	if c.Sampler.JPEGQuality < 2 || c.Sampler.JPEGQuality > 31 {
		return errors.New("sampler.jpeg_quality must be between 2 and 31")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if err := validateURL("llm.base_url", c.LLM.BaseURL); err != nil {
		return err
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.LLM.TopP <= 0 || c.LLM.TopP > 1 {
		return errors.New("llm.top_p must be greater than 0 and at most 1")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if !c.Transcription.Enabled {
		return nil
	}
	return validateURL("transcription.base_url", c.Transcription.BaseURL)
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	return validateURL("notifications.ntfy_topic", c.Notifications.NtfyTopic)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func validateURL(field, raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s is missing a host", field)
	}
	return nil
}
