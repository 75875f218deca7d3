package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. CLINICADM_API_BASE_URL.
const EnvPrefix = "CLINICADM"

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url" envconfig:"BASE_URL"`
	Timeout   time.Duration `mapstructure:"timeout" envconfig:"TIMEOUT"`
	RateLimit float64       `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	Burst     int           `mapstructure:"burst" envconfig:"BURST"`
}

type SessionConfig struct {
	RetryDelay time.Duration `mapstructure:"retry_delay" envconfig:"RETRY_DELAY"`
	// TokenStore is one of file, memory or redis.
	TokenStore string `mapstructure:"token_store" envconfig:"TOKEN_STORE"`
	TokenPath  string `mapstructure:"token_path" envconfig:"TOKEN_PATH"`
	RedisURL   string `mapstructure:"redis_url" envconfig:"REDIS_URL"`
	RedisKey   string `mapstructure:"redis_key" envconfig:"REDIS_KEY"`
}

type ListConfig struct {
	DefaultPageSize int           `mapstructure:"default_page_size" envconfig:"DEFAULT_PAGE_SIZE"`
	PatientCacheTTL time.Duration `mapstructure:"patient_cache_ttl" envconfig:"PATIENT_CACHE_TTL"`
}

type LogConfig struct {
	Level string `mapstructure:"level" envconfig:"LEVEL"`
	JSON  bool   `mapstructure:"json" envconfig:"JSON"`
}

type MockAPIConfig struct {
	Port      int           `mapstructure:"port" envconfig:"PORT"`
	JWTSecret string        `mapstructure:"jwt_secret" envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" envconfig:"TOKEN_TTL"`
	RateLimit float64       `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	Burst     int           `mapstructure:"burst" envconfig:"BURST"`
	ImageBase string        `mapstructure:"image_base" envconfig:"IMAGE_BASE"`
	Seed      bool          `mapstructure:"seed" envconfig:"SEED"`
}

type Config struct {
	API     APIConfig     `mapstructure:"api" envconfig:"API"`
	Session SessionConfig `mapstructure:"session" envconfig:"SESSION"`
	List    ListConfig    `mapstructure:"list" envconfig:"LIST"`
	Log     LogConfig     `mapstructure:"log" envconfig:"LOG"`
	MockAPI MockAPIConfig `mapstructure:"mockapi" envconfig:"MOCKAPI"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080/api")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.rate_limit", 20.0)
	v.SetDefault("api.burst", 10)

	v.SetDefault("session.retry_delay", 2000*time.Millisecond)
	v.SetDefault("session.token_store", "file")
	v.SetDefault("session.token_path", defaultTokenPath())
	v.SetDefault("session.redis_key", "clinicadm:token")

	v.SetDefault("list.default_page_size", 10)
	v.SetDefault("list.patient_cache_ttl", 5*time.Minute)

	v.SetDefault("log.level", "info")

	v.SetDefault("mockapi.port", 8080)
	v.SetDefault("mockapi.jwt_secret", "dev-secret-change-me")
	v.SetDefault("mockapi.token_ttl", 12*time.Hour)
	v.SetDefault("mockapi.rate_limit", 50.0)
	v.SetDefault("mockapi.burst", 100)
	v.SetDefault("mockapi.image_base", "http://localhost:8080/static")
	v.SetDefault("mockapi.seed", true)
}

// Load reads clinicadm.yml from path (or the default search paths when path
// is empty) and applies CLINICADM_* environment overrides. A missing config
// file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("clinicadm")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the console cannot run without.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.Session.RetryDelay <= 0 {
		return errors.New("session.retry_delay must be positive")
	}
	switch c.Session.TokenStore {
	case "file", "memory", "redis":
	default:
		return fmt.Errorf("session.token_store: unknown store %q", c.Session.TokenStore)
	}
	if c.Session.TokenStore == "redis" && c.Session.RedisURL == "" {
		return errors.New("session.redis_url is required for the redis token store")
	}
	return nil
}

func configDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "clinicadm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "clinicadm")
}

func defaultTokenPath() string {
	dir := configDir()
	if dir == "" {
		return "clinicadm-token.json"
	}
	return filepath.Join(dir, "token.json")
}
