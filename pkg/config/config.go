package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `json:"host" yaml:"host" env:"SERVER_HOST"`
	Port int    `json:"port" yaml:"port" env:"SERVER_PORT"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"LOG_LEVEL"`
	Format string `json:"format" yaml:"format" env:"LOG_FORMAT"`
	Output string `json:"output" yaml:"output" env:"LOG_OUTPUT"`
}

// SecurityConfig holds the tenant-provisioning admin credential.
type SecurityConfig struct {
	AdminAPIKey string `json:"admin_api_key" yaml:"admin_api_key" env:"ADMIN_API_KEY"`
}

// PersistenceConfig controls the optional snapshot sweep.
type PersistenceConfig struct {
	DataDir string `json:"data_dir" yaml:"data_dir" env:"DATA_DIR"`
	Enabled bool   `json:"enabled" yaml:"enabled" env:"ENABLE_PERSISTENCE"`
	// IntervalSeconds is how often the background sweep writes a fresh
	// snapshot for every registered tenant.
	IntervalSeconds int `json:"interval_seconds" yaml:"interval_seconds" env:"PERSISTENCE_INTERVAL_SECONDS"`
}

// AlgorithmConfig holds the tenant-overridable discovery defaults applied
// to any tenant that doesn't set its own in identity.TenantConfig.
type AlgorithmConfig struct {
	MaxCycleDepth int     `json:"max_cycle_depth" yaml:"max_cycle_depth" env:"MAX_CYCLE_DEPTH"`
	MinEfficiency float64 `json:"min_efficiency" yaml:"min_efficiency" env:"MIN_EFFICIENCY"`
}

// RateLimitConfig holds the default sliding-window caps applied to any
// tenant that doesn't override them in identity.TenantConfig.RateLimits.
type RateLimitConfig struct {
	DiscoveryPerMinute     int    `json:"discovery_per_minute" yaml:"discovery_per_minute" env:"RATE_LIMIT_DISCOVERY_PER_MINUTE"`
	AssetSubmissionsPerDay int    `json:"asset_submissions_per_day" yaml:"asset_submissions_per_day" env:"RATE_LIMIT_ASSET_SUBMISSIONS_PER_DAY"`
	WebhookCallsPerMinute  int    `json:"webhook_calls_per_minute" yaml:"webhook_calls_per_minute" env:"RATE_LIMIT_WEBHOOK_CALLS_PER_MINUTE"`
	Backend                string `json:"backend" yaml:"backend" env:"RATE_LIMIT_BACKEND"`
	RedisAddr              string `json:"redis_addr" yaml:"redis_addr" env:"RATE_LIMIT_REDIS_ADDR"`
}

// WebhookConfig controls outbound cycle-notification delivery.
type WebhookConfig struct {
	TimeoutMS   int `json:"timeout_ms" yaml:"timeout_ms" env:"WEBHOOK_TIMEOUT_MS"`
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" env:"WEBHOOK_MAX_ATTEMPTS"`
	QueueDepth  int `json:"queue_depth" yaml:"queue_depth" env:"WEBHOOK_QUEUE_DEPTH"`
	WorkerCount int `json:"worker_count" yaml:"worker_count" env:"WEBHOOK_WORKER_COUNT"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server      ServerConfig      `json:"server" yaml:"server"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
	Security    SecurityConfig    `json:"security" yaml:"security"`
	Persistence PersistenceConfig `json:"persistence" yaml:"persistence"`
	Algorithm   AlgorithmConfig   `json:"algorithm" yaml:"algorithm"`
	RateLimit   RateLimitConfig   `json:"rate_limit" yaml:"rate_limit"`
	Webhook     WebhookConfig     `json:"webhook" yaml:"webhook"`
}

// New returns a configuration populated with the defaults named in spec.md §6.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Persistence: PersistenceConfig{
			DataDir:         "data",
			Enabled:         false,
			IntervalSeconds: 60,
		},
		Algorithm: AlgorithmConfig{
			MaxCycleDepth: 10,
			MinEfficiency: 0.6,
		},
		RateLimit: RateLimitConfig{
			DiscoveryPerMinute:     60,
			AssetSubmissionsPerDay: 10000,
			WebhookCallsPerMinute:  60,
			Backend:                "memory",
		},
		Webhook: WebhookConfig{
			TimeoutMS:   5000,
			MaxAttempts: 5,
			QueueDepth:  1024,
			WorkerCount: 4,
		},
	}
}

// Load loads configuration from file (if present) and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/config.yaml", cfg)
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode returns an error when no tagged fields are present in the
		// environment; treat that case as "no overrides" so local runs work
		// without exporting vars.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile reads configuration from a YAML file, skipping environment
// decoding entirely. Used by tests and by operators who want a fully
// file-pinned configuration.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return nil
}

// LoadConfig is a helper used by tests to load JSON config snippets.
func LoadConfig(path string) (*Config, error) {
	cfg := New()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate enforces the one required setting spec.md §6 names: an admin
// API key must be configured before the server can provision tenants.
func (c *Config) validate() error {
	if strings.TrimSpace(c.Security.AdminAPIKey) == "" {
		return fmt.Errorf("ADMIN_API_KEY must be set")
	}
	return nil
}
