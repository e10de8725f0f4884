package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads .env, an optional config.yaml and the environment, in that order of precedence
// (environment wins).
func Load() (*Config, error) {
	loadEnvFile()
	return LoadWith(viper.New())
}

// LoadWith resolves the configuration from a prepared viper instance.
func LoadWith(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "deliverybuddy")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("llm.provider", "googleai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-1.5-flash")
	v.SetDefault("llm.timeout", 12*time.Second)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 400)

	v.SetDefault("search.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.engine_id", "")
	v.SetDefault("search.timeout", 10*time.Second)
	v.SetDefault("search.max_retries", 2)
	v.SetDefault("search.backoff", 500*time.Millisecond)
	v.SetDefault("search.results", 10)

	v.SetDefault("fetch.timeout", 8*time.Second)
	v.SetDefault("fetch.max_bytes", 512*1024)
	v.SetDefault("fetch.max_retries", 1)
	v.SetDefault("fetch.backoff", 500*time.Millisecond)

	v.SetDefault("gateway.base_url", "")
	v.SetDefault("gateway.api_key", "")
	v.SetDefault("gateway.instance", "")
	v.SetDefault("gateway.timeout", 10*time.Second)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.redis_url", "redis://localhost:6379/0")
	v.SetDefault("store.ttl", time.Duration(0))

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.chat_subject", "delivery.chat")
	v.SetDefault("nats.events_subject", "delivery.orders")
	v.SetDefault("nats.timeout", 30*time.Second)

	v.SetDefault("locale.default_city", "Volta Redonda")
	v.SetDefault("locale.default_area_code", "24")
	v.SetDefault("locale.default_state", "RJ")
	v.SetDefault("locale.timezone", "America/Sao_Paulo")

	v.SetDefault("dispatch.reply_delay_min", 2*time.Second)
	v.SetDefault("dispatch.reply_delay_max", 6*time.Second)
	v.SetDefault("dispatch.reassurance_delays", []time.Duration{
		3 * time.Second, 2500 * time.Millisecond, 2 * time.Second,
	})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env"}

	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
