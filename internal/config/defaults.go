package config

const (
	defaultDataDir              = "~/.local/share/transforma"
	defaultLogDir               = "~/.local/share/transforma/logs"
	defaultSessionDir           = "~/.local/share/transforma/sessions"
	defaultCachePath            = "~/.local/share/transforma/cache/submitted-invoices.cache"
	defaultPatternsPath         = "~/.config/transforma/routing-patterns.json"
	defaultRelayBaseURL         = "http://127.0.0.1:7489"
	defaultRelayRequestTimeout  = 30
	defaultRelayHealthTimeout   = 10
	defaultExcerptMaxChars      = 500
	defaultScoreThreshold       = 0.30
	defaultSyncInterval         = 60
	defaultSuccessRevertSeconds = 3
	defaultErrorRevertSeconds   = 5
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			SessionDir: defaultSessionDir,
		},
		Relay: Relay{
			BaseURL:        defaultRelayBaseURL,
			RequestTimeout: defaultRelayRequestTimeout,
			HealthTimeout:  defaultRelayHealthTimeout,
		},
		Routing: Routing{
			PatternsPath:    defaultPatternsPath,
			ExcerptMaxChars: defaultExcerptMaxChars,
			ScoreThreshold:  defaultScoreThreshold,
		},
		Cache: Cache{
			Path:         defaultCachePath,
			SyncInterval: defaultSyncInterval,
		},
		Submission: Submission{
			SuccessRevertSeconds: defaultSuccessRevertSeconds,
			ErrorRevertSeconds:   defaultErrorRevertSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
