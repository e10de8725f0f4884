package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Search   SearchConfig   `mapstructure:"search"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Store    StoreConfig    `mapstructure:"store"`
	Nats     NatsConfig     `mapstructure:"nats"`
	Locale   LocaleConfig   `mapstructure:"locale"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	ServiceName string `mapstructure:"service_name"`
}

type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LLMConfig selects the generative model behind langchaingo.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // "googleai" or "anthropic"
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

// SearchConfig holds the custom-search JSON API settings.
type SearchConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	EngineID   string        `mapstructure:"engine_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	Backoff    time.Duration `mapstructure:"backoff"`
	Results    int           `mapstructure:"results"`
}

type FetchConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxBytes   int64         `mapstructure:"max_bytes"`
	MaxRetries int           `mapstructure:"max_retries"`
	Backoff    time.Duration `mapstructure:"backoff"`
}

// GatewayConfig points at the WhatsApp gateway (Evolution API).
type GatewayConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Instance string        `mapstructure:"instance"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	Driver   string        `mapstructure:"driver"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"` // 0 keeps keys forever
}

type NatsConfig struct {
	URL           string        `mapstructure:"url"`
	ChatSubject   string        `mapstructure:"chat_subject"`
	EventsSubject string        `mapstructure:"events_subject"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a NATS server was configured.
func (n NatsConfig) Enabled() bool {
	return n.URL != ""
}

type LocaleConfig struct {
	DefaultCity     string `mapstructure:"default_city"`
	DefaultAreaCode string `mapstructure:"default_area_code"`
	DefaultState    string `mapstructure:"default_state"`
	Timezone        string `mapstructure:"timezone"`
}

// Location resolves the configured timezone, falling back to UTC.
func (l LocaleConfig) Location() *time.Location {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DispatchConfig tunes the pacing of messages sent on the gateway.
type DispatchConfig struct {
	ReplyDelayMin     time.Duration   `mapstructure:"reply_delay_min"`
	ReplyDelayMax     time.Duration   `mapstructure:"reply_delay_max"`
	ReassuranceDelays []time.Duration `mapstructure:"reassurance_delays"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required when store.driver is redis")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	switch c.LLM.Provider {
	case "googleai", "anthropic":
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}

	if len(c.Locale.DefaultAreaCode) != 2 {
		return fmt.Errorf("locale.default_area_code must have 2 digits, got %q", c.Locale.DefaultAreaCode)
	}

	if c.Dispatch.ReplyDelayMax < c.Dispatch.ReplyDelayMin {
		return fmt.Errorf("dispatch.reply_delay_max is lower than dispatch.reply_delay_min")
	}

	return nil
}
