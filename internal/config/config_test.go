package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "googleai", cfg.LLM.Provider)
	assert.Equal(t, "24", cfg.Locale.DefaultAreaCode)
	assert.Equal(t, "Volta Redonda", cfg.Locale.DefaultCity)
	assert.Equal(t, 10*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Dispatch.ReplyDelayMin)
	assert.Equal(t, 6*time.Second, cfg.Dispatch.ReplyDelayMax)
	assert.Len(t, cfg.Dispatch.ReassuranceDelays, 3)
	assert.False(t, cfg.Nats.Enabled())
}

func TestLoadWith_EnvOverrides(t *testing.T) {
	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("GATEWAY_BASE_URL", "http://gateway.local")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("SEARCH_TIMEOUT", "3s")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.LLM.APIKey)
	assert.Equal(t, "http://gateway.local", cfg.Gateway.BaseURL)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, 3*time.Second, cfg.Search.Timeout)
	assert.True(t, cfg.Nats.Enabled())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:  StoreConfig{Driver: "memory"},
			LLM:    LLMConfig{Provider: "anthropic"},
			Locale: LocaleConfig{DefaultAreaCode: "21"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "etcd" }, wantErr: "store.driver"},
		{name: "redis without url", mutate: func(c *Config) { c.Store.Driver = "redis" }, wantErr: "redis_url"},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "bard" }, wantErr: "llm.provider"},
		{name: "bad area code", mutate: func(c *Config) { c.Locale.DefaultAreaCode = "024" }, wantErr: "default_area_code"},
		{name: "inverted delays", mutate: func(c *Config) {
			c.Dispatch.ReplyDelayMin = 5 * time.Second
			c.Dispatch.ReplyDelayMax = time.Second
		}, wantErr: "reply_delay_max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, LocaleConfig{Timezone: "Nowhere/Invalid"}.Location())
}
