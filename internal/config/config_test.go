package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func defaults() *Config {
	return LoadFrom(env(nil))
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg := defaults()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, BackendFile, cfg.StoreBackend)
	assert.Equal(t, "chat-store", cfg.StoreKey)
	assert.Equal(t, "theme-storage", cfg.PreferencesKey)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.False(t, cfg.NeedsNATS())
	require.NoError(t, cfg.Validate())
}

func TestLoadFrom_Values(t *testing.T) {
	cfg := LoadFrom(env(map[string]string{
		"STORE_BACKEND":       "NATS",
		"NATS_KV_BUCKET":      "CHATS",
		"DEFAULT_LLM":         "openai",
		"OPENAI_API_KEY":      "sk-test",
		"RATE_LIMIT_REQUESTS": "5",
		"RATE_LIMIT_WINDOW":   "10s",
		"CORS_ORIGINS":        "http://localhost:5173, https://chat.example.com,",
		"LLM_MODEL":           "   ",
	}))

	assert.Equal(t, BackendNATS, cfg.StoreBackend)
	assert.Equal(t, "CHATS", cfg.NATSKVBucket)
	assert.Equal(t, "sk-test", cfg.LLMAPIKey())
	assert.Equal(t, 5, cfg.RateLimitRequests)
	assert.Equal(t, 10*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, []string{"http://localhost:5173", "https://chat.example.com"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.LLMModel)
	assert.True(t, cfg.NeedsNATS())
	require.NoError(t, cfg.Validate())
}

func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("NATS_EVENTS_ENABLED", "true")

	cfg := Load()
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.True(t, cfg.NeedsNATS())
}

func TestLoadFrom_MalformedValuesFallBackAndFailValidation(t *testing.T) {
	cfg := LoadFrom(env(map[string]string{
		"TRACING_ENABLED":     "not-a-bool",
		"RATE_LIMIT_REQUESTS": "lots",
		"SERVER_READ_TIMEOUT": "30",
	}))

	assert.False(t, cfg.TracingEnabled)
	assert.Equal(t, 60, cfg.RateLimitRequests)
	assert.Equal(t, 30*time.Second, cfg.ServerReadTimeout)

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `TRACING_ENABLED: "not-a-bool" is not a boolean`)
	assert.Contains(t, err.Error(), `RATE_LIMIT_REQUESTS: "lots" is not an integer`)
	assert.Contains(t, err.Error(), `SERVER_READ_TIMEOUT: "30" is not a duration`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.StoreBackend = "redis" }, `unknown STORE_BACKEND "redis"`},
		{"file without dir", func(c *Config) { c.DataDir = "" }, "DATA_DIR is required"},
		{"same keys", func(c *Config) { c.PreferencesKey = c.StoreKey }, "must differ"},
		{"unknown llm", func(c *Config) { c.DefaultLLM = "gemini" }, `unknown DEFAULT_LLM "gemini"`},
		{"zero rate", func(c *Config) { c.RateLimitRequests = 0 }, "must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_MemoryBackendNeedsNoDir(t *testing.T) {
	cfg := defaults()
	cfg.StoreBackend = BackendMemory
	cfg.DataDir = ""
	assert.NoError(t, cfg.Validate())
}
