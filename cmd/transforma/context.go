package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"transforma/internal/config"
	"transforma/internal/dupcache"
	"transforma/internal/logging"
	"transforma/internal/pdftext"
	"transforma/internal/relay"
	"transforma/internal/routing"
	"transforma/internal/session"
)

// commandContext lazily loads configuration and constructs components for
// CLI commands. Component construction is cheap; only config load is cached.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) cache() (*dupcache.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return dupcache.NewCache(cfg.Cache.Path, logging.NewNop()), nil
}

func (c *commandContext) router() (*routing.Router, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	extractor := pdftext.New(logging.NewNop())
	return routing.NewRouter(cfg, extractor, logging.NewNop()), nil
}

func (c *commandContext) sessions() (session.Provider, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return session.NewFileStore(cfg.Paths.SessionDir, logging.NewNop()), nil
}

func (c *commandContext) relayClient() (*relay.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return relay.NewClient(cfg, logging.NewNop()), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
