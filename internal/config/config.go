// Package config provides environment configuration for the API server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendPebble = "pebble"
	BackendNATS   = "nats"
	BackendMemory = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	CORSOrigins        []string

	// Store settings
	StoreBackend   string
	DataDir        string
	StoreKey       string
	PreferencesKey string

	// NATS settings
	NATSURL           string
	NATSCAFile        string
	NATSCertFile      string
	NATSKeyFile       string
	NATSToken         string
	NATSKVBucket      string
	NATSEventsEnabled bool

	// LLM settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultLLM      string
	LLMModel        string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	LogLevel string

	TracingEndpoint string
	TracingEnabled  bool

	// malformed values seen while loading; the defaults were used instead.
	malformed []error
}

// Load reads configuration from the process environment.
func Load() *Config {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads configuration through lookup. Unset or empty keys take
// their defaults; unparsable values also take the default and are reported
// by Validate.
func LoadFrom(lookup func(string) (string, bool)) *Config {
	src := &source{lookup: lookup}
	cfg := &Config{
		ServerPort:         src.str("PORT", "8080"),
		ServerReadTimeout:  src.duration("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: src.duration("SERVER_WRITE_TIMEOUT", 120*time.Second),
		CORSOrigins:        src.list("CORS_ORIGINS", []string{"*"}),

		StoreBackend:   strings.ToLower(src.str("STORE_BACKEND", BackendFile)),
		DataDir:        src.str("DATA_DIR", "./data"),
		StoreKey:       src.str("STORE_KEY", "chat-store"),
		PreferencesKey: src.str("PREFERENCES_KEY", "theme-storage"),

		NATSURL:           src.str("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:        src.str("NATS_CA_FILE", ""),
		NATSCertFile:      src.str("NATS_CERT_FILE", ""),
		NATSKeyFile:       src.str("NATS_KEY_FILE", ""),
		NATSToken:         src.str("NATS_TOKEN", ""),
		NATSKVBucket:      src.str("NATS_KV_BUCKET", "CHATSTORE"),
		NATSEventsEnabled: src.boolean("NATS_EVENTS_ENABLED", false),

		AnthropicAPIKey: src.str("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    src.str("OPENAI_API_KEY", ""),
		DefaultLLM:      strings.ToLower(src.str("DEFAULT_LLM", "anthropic")),
		LLMModel:        src.str("LLM_MODEL", ""),

		RateLimitRequests: src.integer("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   src.duration("RATE_LIMIT_WINDOW", time.Minute),

		LogLevel: src.str("LOG_LEVEL", "info"),

		TracingEndpoint: src.str("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  src.boolean("TRACING_ENABLED", false),
	}
	cfg.malformed = src.errs
	return cfg
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.malformed...)

	switch c.StoreBackend {
	case BackendFile, BackendPebble:
		if c.DataDir == "" {
			errs = append(errs, fmt.Errorf("DATA_DIR is required for the %s backend", c.StoreBackend))
		}
	case BackendNATS, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	if c.StoreKey == "" || c.PreferencesKey == "" {
		errs = append(errs, errors.New("STORE_KEY and PREFERENCES_KEY must not be empty"))
	}
	if c.StoreKey == c.PreferencesKey {
		errs = append(errs, errors.New("STORE_KEY and PREFERENCES_KEY must differ"))
	}

	switch c.DefaultLLM {
	case "anthropic", "openai":
	default:
		errs = append(errs, fmt.Errorf("unknown DEFAULT_LLM %q", c.DefaultLLM))
	}

	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}

	return errors.Join(errs...)
}

// NeedsNATS reports whether any component connects to NATS.
func (c *Config) NeedsNATS() bool {
	return c.StoreBackend == BackendNATS || c.NATSEventsEnabled
}

// LLMAPIKey returns the API key of the configured provider.
func (c *Config) LLMAPIKey() string {
	if c.DefaultLLM == "openai" {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}

type source struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (s *source) raw(key string) (string, bool) {
	v, ok := s.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (s *source) str(key, def string) string {
	if v, ok := s.raw(key); ok {
		return v
	}
	return def
}

func (s *source) integer(key string, def int) int {
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return i
}

func (s *source) boolean(key string, def bool) bool {
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}

func (s *source) duration(key string, def time.Duration) time.Duration {
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}

func (s *source) list(key string, def []string) []string {
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
