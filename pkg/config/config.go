package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/tinyland-inc/babelrelay/pkg/routing"
	"github.com/tinyland-inc/babelrelay/pkg/store"
)

// Duration is a time.Duration that reads "90s" style strings from JSON, YAML
// and the environment. Bare JSON numbers are seconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.UnmarshalText([]byte(s))
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("duration must be a string or number of seconds: %s", data)
	}
	d.Duration = time.Duration(secs * float64(time.Second))
	return nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

type Config struct {
	Routes      []routing.Pair    `json:"routes"      yaml:"routes"`
	Slack       SlackConfig       `json:"slack"       yaml:"slack"`
	Translation TranslationConfig `json:"translation" yaml:"translation"`
	Providers   ProvidersConfig   `json:"providers"   yaml:"providers"`
	Store       StoreConfig       `json:"store"       yaml:"store"`
	Dedup       DedupConfig       `json:"dedup"       yaml:"dedup"`
	Relay       RelayConfig       `json:"relay"       yaml:"relay"`
	Gateway     GatewayConfig     `json:"gateway"     yaml:"gateway"`
	Sentry      SentryConfig      `json:"sentry"      yaml:"sentry"`
	Logging     LoggingConfig     `json:"logging"     yaml:"logging"`
}

const (
	SlackModeEvents = "events"
	SlackModeSocket = "socket"
)

type SlackConfig struct {
	BotToken      string  `env:"BABELRELAY_SLACK_BOT_TOKEN"       json:"bot_token"       yaml:"bot_token"`
	AppToken      string  `env:"BABELRELAY_SLACK_APP_TOKEN"       json:"app_token"       yaml:"app_token"`
	SigningSecret string  `env:"BABELRELAY_SLACK_SIGNING_SECRET"  json:"signing_secret"  yaml:"signing_secret"`
	Mode          string  `env:"BABELRELAY_SLACK_MODE"            json:"mode"            yaml:"mode"`
	EventsPath    string  `env:"BABELRELAY_SLACK_EVENTS_PATH"     json:"events_path"     yaml:"events_path"`
	APIURL        string  `env:"BABELRELAY_SLACK_API_URL"         json:"api_url"         yaml:"api_url"`
	RatePerSecond float64 `env:"BABELRELAY_SLACK_RATE_PER_SECOND" json:"rate_per_second" yaml:"rate_per_second"`

	// Retries of a rate-limited post; 0 makes post failures terminal.
	RateLimitRetries int `env:"BABELRELAY_SLACK_RATE_LIMIT_RETRIES" json:"rate_limit_retries" yaml:"rate_limit_retries"`
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type TranslationConfig struct {
	Provider    string   `env:"BABELRELAY_TRANSLATION_PROVIDER"     json:"provider"     yaml:"provider"`
	Model       string   `env:"BABELRELAY_TRANSLATION_MODEL"        json:"model"        yaml:"model"`
	Temperature float64  `env:"BABELRELAY_TRANSLATION_TEMPERATURE"  json:"temperature"  yaml:"temperature"`
	Moderation  bool     `env:"BABELRELAY_TRANSLATION_MODERATION"   json:"moderation"   yaml:"moderation"`
	RetryUnit   Duration `env:"BABELRELAY_TRANSLATION_RETRY_UNIT"   json:"retry_unit"   yaml:"retry_unit"`
	MaxAttempts int      `env:"BABELRELAY_TRANSLATION_MAX_ATTEMPTS" json:"max_attempts" yaml:"max_attempts"`
}

type ProviderConfig struct {
	APIKey  string `env:"API_KEY"  json:"api_key"  yaml:"api_key"`
	APIBase string `env:"API_BASE" json:"api_base" yaml:"api_base"`
}

type ProvidersConfig struct {
	OpenAI    ProviderConfig `json:"openai"    yaml:"openai"    envPrefix:"BABELRELAY_PROVIDERS_OPENAI_"`
	Anthropic ProviderConfig `json:"anthropic" yaml:"anthropic" envPrefix:"BABELRELAY_PROVIDERS_ANTHROPIC_"`
}

// StoreConfig selects a store.Driver* backend.
type StoreConfig struct {
	Driver string `env:"BABELRELAY_STORE_DRIVER" json:"driver" yaml:"driver"`
	Path   string `env:"BABELRELAY_STORE_PATH"   json:"path"   yaml:"path"`
	DSN    string `env:"BABELRELAY_STORE_DSN"    json:"dsn"    yaml:"dsn"`
}

// Location is the sqlite directory or the postgres DSN, depending on Driver.
func (s StoreConfig) Location() string {
	if s.Driver == store.DriverPostgres {
		return s.DSN
	}
	return expandHome(s.Path)
}

const (
	DedupMemory = "memory"
	DedupRedis  = "redis"
)

type DedupConfig struct {
	Driver        string   `env:"BABELRELAY_DEDUP_DRIVER"         json:"driver"         yaml:"driver"`
	TTL           Duration `env:"BABELRELAY_DEDUP_TTL"            json:"ttl"            yaml:"ttl"`
	RedisAddr     string   `env:"BABELRELAY_DEDUP_REDIS_ADDR"     json:"redis_addr"     yaml:"redis_addr"`
	RedisPassword string   `env:"BABELRELAY_DEDUP_REDIS_PASSWORD" json:"redis_password" yaml:"redis_password"`
	RedisPrefix   string   `env:"BABELRELAY_DEDUP_REDIS_PREFIX"   json:"redis_prefix"   yaml:"redis_prefix"`
}

type RelayConfig struct {
	Workers              int      `env:"BABELRELAY_RELAY_WORKERS"               json:"workers"               yaml:"workers"`
	QueueSize            int      `env:"BABELRELAY_RELAY_QUEUE_SIZE"            json:"queue_size"            yaml:"queue_size"`
	EventTimeout         Duration `env:"BABELRELAY_RELAY_EVENT_TIMEOUT"         json:"event_timeout"         yaml:"event_timeout"`
	BidirectionalThreads bool     `env:"BABELRELAY_RELAY_BIDIRECTIONAL_THREADS" json:"bidirectional_threads" yaml:"bidirectional_threads"`
	ModerationNotice     string   `env:"BABELRELAY_RELAY_MODERATION_NOTICE"     json:"moderation_notice"     yaml:"moderation_notice"`
}

type GatewayConfig struct {
	Host string `env:"BABELRELAY_GATEWAY_HOST" json:"host" yaml:"host"`
	Port int    `env:"BABELRELAY_GATEWAY_PORT" json:"port" yaml:"port"`
}

type SentryConfig struct {
	DSN         string `env:"BABELRELAY_SENTRY_DSN"         json:"dsn"         yaml:"dsn"`
	Environment string `env:"BABELRELAY_SENTRY_ENVIRONMENT" json:"environment" yaml:"environment"`
}

type LoggingConfig struct {
	Level  string `env:"BABELRELAY_LOG_LEVEL"  json:"level"  yaml:"level"`
	Format string `env:"BABELRELAY_LOG_FORMAT" json:"format" yaml:"format"`
}

// Legacy variable names of the two-channel deployment. They only fill
// settings the config file and BABELRELAY_* variables left empty.
type legacyEnv struct {
	Chan1ID   string `env:"SLACK_1_CHAN_ID"`
	Chan1Lang string `env:"SLACK_1_LANG"`
	Chan2ID   string `env:"SLACK_2_CHAN_ID"`
	Chan2Lang string `env:"SLACK_2_LANG"`
	Token     string `env:"SLACK_TOKEN"`
	OpenAIKey string `env:"OPENAI_API_KEY"`
	DBRoot    string `env:"DBROOT"`
}

func (c *Config) applyLegacyEnv() error {
	var legacy legacyEnv
	if err := env.Parse(&legacy); err != nil {
		return err
	}
	if len(c.Routes) == 0 && legacy.Chan1ID != "" && legacy.Chan2ID != "" {
		c.Routes = []routing.Pair{{
			ChannelA:  legacy.Chan1ID,
			LanguageA: legacy.Chan1Lang,
			ChannelB:  legacy.Chan2ID,
			LanguageB: legacy.Chan2Lang,
		}}
	}
	if c.Slack.BotToken == "" {
		c.Slack.BotToken = legacy.Token
	}
	if c.Providers.OpenAI.APIKey == "" {
		c.Providers.OpenAI.APIKey = legacy.OpenAIKey
	}
	if legacy.DBRoot != "" && c.Store.Path == DefaultConfig().Store.Path {
		c.Store.Path = legacy.DBRoot
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyLegacyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks settings every command depends on. Credentials are checked
// by the commands that need them.
func (c *Config) Validate() error {
	var errs []error
	if _, err := routing.NewTable(c.Routes); err != nil {
		errs = append(errs, err)
	}
	switch c.Slack.Mode {
	case SlackModeEvents, SlackModeSocket:
	default:
		errs = append(errs, fmt.Errorf("slack.mode %q: want %q or %q", c.Slack.Mode, SlackModeEvents, SlackModeSocket))
	}
	switch c.Translation.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("translation.provider %q: want %q or %q",
			c.Translation.Provider, ProviderOpenAI, ProviderAnthropic))
	}
	switch c.Store.Driver {
	case store.DriverMemory, store.DriverSQLite:
	case store.DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not supported", c.Store.Driver))
	}
	switch c.Dedup.Driver {
	case DedupMemory:
	case DedupRedis:
		if c.Dedup.RedisAddr == "" {
			errs = append(errs, errors.New("dedup.redis_addr is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("dedup.driver %q is not supported", c.Dedup.Driver))
	}
	if c.Slack.RateLimitRetries < 0 {
		errs = append(errs, errors.New("slack.rate_limit_retries must not be negative"))
	}
	if c.Relay.Workers < 1 {
		errs = append(errs, errors.New("relay.workers must be at least 1"))
	}
	if c.Relay.QueueSize < 1 {
		errs = append(errs, errors.New("relay.queue_size must be at least 1"))
	}
	if c.Translation.MaxAttempts < 1 {
		errs = append(errs, errors.New("translation.max_attempts must be at least 1"))
	}
	return errors.Join(errs...)
}

// ValidateSlack checks the credentials the gateway needs for the configured
// receive mode.
func (c *Config) ValidateSlack() error {
	var errs []error
	if c.Slack.BotToken == "" {
		errs = append(errs, errors.New("slack.bot_token is required"))
	}
	switch c.Slack.Mode {
	case SlackModeEvents:
		if c.Slack.SigningSecret == "" {
			errs = append(errs, errors.New("slack.signing_secret is required in events mode"))
		}
	case SlackModeSocket:
		if !strings.HasPrefix(c.Slack.AppToken, "xapp-") {
			errs = append(errs, errors.New("slack.app_token must be an xapp- token in socket mode"))
		}
	}
	return errors.Join(errs...)
}

// ProviderSettings returns the credentials of the selected translation
// provider.
func (c *Config) ProviderSettings() ProviderConfig {
	if c.Translation.Provider == ProviderAnthropic {
		return c.Providers.Anthropic
	}
	return c.Providers.OpenAI
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
