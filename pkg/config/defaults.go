package config

import (
	"time"

	"github.com/tinyland-inc/babelrelay/pkg/store"
)

func DefaultConfig() *Config {
	return &Config{
		Slack: SlackConfig{
			Mode:             SlackModeEvents,
			EventsPath:       "/slack/events",
			RatePerSecond:    1,
			RateLimitRetries: 2,
		},
		Translation: TranslationConfig{
			Provider:    ProviderOpenAI,
			Temperature: 0.1,
			Moderation:  true,
			RetryUnit:   Duration{time.Second},
			MaxAttempts: 5,
		},
		Store: StoreConfig{
			Driver: store.DriverSQLite,
			Path:   "~/.babelrelay/data",
		},
		Dedup: DedupConfig{
			Driver:      DedupMemory,
			TTL:         Duration{10 * time.Minute},
			RedisPrefix: "babelrelay:dedup:",
		},
		Relay: RelayConfig{
			Workers:          4,
			QueueSize:        100,
			EventTimeout:     Duration{2 * time.Minute},
			ModerationNotice: "This message has failed moderation",
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 18790,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
