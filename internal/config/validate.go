package config

import (
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRelay(); err != nil {
		return err
	}
	if err := c.validateRouting(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRelay() error {
	parsed, err := url.Parse(c.Relay.BaseURL)
	if err != nil {
		return fmt.Errorf("relay.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("relay.base_url: unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("relay.base_url: missing host in %q", c.Relay.BaseURL)
	}
	return nil
}

func (c *Config) validateRouting() error {
	if c.Routing.ScoreThreshold <= 0 || c.Routing.ScoreThreshold > 1 {
		return fmt.Errorf("routing.score_threshold must be in (0, 1], got %v", c.Routing.ScoreThreshold)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
}
