package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Logging     LoggingConfig   `yaml:"logging"`
	Events      EventsConfig    `yaml:"events"`
	Cache       CacheConfig     `yaml:"cache"`
	Redis       RedisConfig     `yaml:"redis"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Environment string          `yaml:"environment" validate:"oneof=development test staging production"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
}

// DatabaseConfig selects the record store. An empty URL runs the API on the
// in-memory store.
type DatabaseConfig struct {
	URL            string `yaml:"url"`
	MaxConnections int    `yaml:"max_connections" validate:"min=1"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

type EventsConfig struct {
	// Timezone is the IANA zone whose calendar date "today" refers to.
	Timezone        string   `yaml:"timezone" validate:"required"`
	Languages       []string `yaml:"languages" validate:"min=1,dive,bcp47_language_tag"`
	DefaultLanguage string   `yaml:"default_language" validate:"required,bcp47_language_tag"`
}

type CacheConfig struct {
	Backend    string        `yaml:"backend" validate:"oneof=none memory redis"`
	TTL        time.Duration `yaml:"ttl" validate:"min=0"`
	MaxEntries int           `yaml:"max_entries" validate:"min=0"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db" validate:"min=0"`
	KeyPrefix string `yaml:"key_prefix"`
}

type RateLimitConfig struct {
	PublicPerMinute   int      `yaml:"public_per_minute" validate:"min=0"`
	TrustedProxyCIDRs []string `yaml:"trusted_proxy_cidrs" validate:"dive,cidr"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter" validate:"oneof=stdout otlp none"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" validate:"min=0,max=1"`
}

// Load builds the configuration from environment variables.
func Load() (Config, error) {
	cfg := fromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads a YAML document over the environment configuration. Keys
// absent from the file keep their environment or default values.
func LoadFile(path string) (Config, error) {
	cfg := fromEnv()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromEnv() Config {
	return Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 10),
			MigrateOnStart: getEnvBool("DATABASE_MIGRATE_ON_START", false),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Events: EventsConfig{
			Timezone:        getEnv("EVENTS_TIMEZONE", "UTC"),
			Languages:       getEnvList("LANGUAGES", []string{"en"}),
			DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		},
		Cache: CacheConfig{
			Backend:    strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
			TTL:        getEnvDuration("CACHE_TTL", 5*time.Minute),
			MaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 10000),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "event-api:"),
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute:   getEnvInt("RATE_LIMIT_PUBLIC", 120),
			TrustedProxyCIDRs: getEnvList("TRUSTED_PROXY_CIDRS", nil),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("TRACING_ENABLED", false),
			Exporter:     strings.ToLower(getEnv("TRACING_EXPORTER", "stdout")),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "event-api"),
			OTLPEndpoint: getEnv("TRACING_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the cross-field rules struct tags
// cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Events.Location(); err != nil {
		return err
	}
	if !c.Events.supports(c.Events.DefaultLanguage) {
		return fmt.Errorf("invalid configuration: DEFAULT_LANGUAGE %q is not in LANGUAGES %v", c.Events.DefaultLanguage, c.Events.Languages)
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("invalid configuration: REDIS_ADDR is required when CACHE_BACKEND is redis")
	}
	return nil
}

// Location resolves Timezone.
func (e EventsConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: EVENTS_TIMEZONE %q: %w", e.Timezone, err)
	}
	return loc, nil
}

func (e EventsConfig) supports(code string) bool {
	want, err := language.Parse(code)
	if err != nil {
		return false
	}
	for _, candidate := range e.Languages {
		tag, err := language.Parse(candidate)
		if err == nil && tag == want {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
