package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	if err := c.normalizeRouting(); err != nil {
		return err
	}
	c.normalizeRelay()
	c.normalizeSubmission()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SessionDir) == "" {
		c.Paths.SessionDir = defaultSessionDir
	}
	if c.Paths.SessionDir, err = expandPath(c.Paths.SessionDir); err != nil {
		return fmt.Errorf("paths.session_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCache() error {
	var err error
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = defaultCachePath
	}
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	if strings.TrimSpace(c.Cache.SyncDBPath) != "" {
		if c.Cache.SyncDBPath, err = expandPath(c.Cache.SyncDBPath); err != nil {
			return fmt.Errorf("cache.sync_db_path: %w", err)
		}
	}
	if c.Cache.SyncInterval <= 0 {
		c.Cache.SyncInterval = defaultSyncInterval
	}
	return nil
}

func (c *Config) normalizeRouting() error {
	var err error
	if strings.TrimSpace(c.Routing.PatternsPath) != "" {
		if c.Routing.PatternsPath, err = expandPath(c.Routing.PatternsPath); err != nil {
			return fmt.Errorf("routing.patterns_path: %w", err)
		}
	}
	if c.Routing.ExcerptMaxChars <= 0 {
		c.Routing.ExcerptMaxChars = defaultExcerptMaxChars
	}
	if c.Routing.ScoreThreshold == 0 {
		c.Routing.ScoreThreshold = defaultScoreThreshold
	}
	return nil
}

func (c *Config) normalizeRelay() {
	c.Relay.BaseURL = strings.TrimRight(strings.TrimSpace(c.Relay.BaseURL), "/")
	if c.Relay.BaseURL == "" {
		c.Relay.BaseURL = defaultRelayBaseURL
	}
	if c.Relay.RequestTimeout <= 0 {
		c.Relay.RequestTimeout = defaultRelayRequestTimeout
	}
	if c.Relay.HealthTimeout <= 0 {
		c.Relay.HealthTimeout = defaultRelayHealthTimeout
	}
}

func (c *Config) normalizeSubmission() {
	if c.Submission.SuccessRevertSeconds <= 0 {
		c.Submission.SuccessRevertSeconds = defaultSuccessRevertSeconds
	}
	if c.Submission.ErrorRevertSeconds <= 0 {
		c.Submission.ErrorRevertSeconds = defaultErrorRevertSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
