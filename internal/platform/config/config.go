package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config is the full runtime configuration. Defaults are applied first, then
// the optional TOML file named by ENCANTAR_CONFIG, then environment variables.
type Config struct {
	Env         string         `toml:"env"`
	LogLevel    string         `toml:"log_level"`
	Server      Server         `toml:"server"`
	Database    DatabaseConfig `toml:"database"`
	Redis       RedisConfig    `toml:"redis"`
	Auth        AuthConfig     `toml:"auth"`
	Kafka       KafkaConfig    `toml:"kafka"`
	RateLimit   RateLimit      `toml:"rate_limit"`
	Cache       CacheConfig    `toml:"cache"`
	FrontendURL string         `toml:"frontend_url"`
	Metrics     bool           `toml:"metrics"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `toml:"addr"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	MaxBodyBytes    int64         `toml:"max_body_bytes"`
	Version         string        `toml:"version"`
}

type DatabaseConfig struct {
	URL             string        `toml:"url"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

// RedisConfig is optional; an empty URL keeps cache and rate limit state in
// process memory.
type RedisConfig struct {
	URL          string        `toml:"url"`
	PoolSize     int           `toml:"pool_size"`
	MinIdleConns int           `toml:"min_idle_conns"`
	DialTimeout  time.Duration `toml:"dial_timeout"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

type AuthConfig struct {
	JWTSecret        string        `toml:"jwt_secret"`
	JWTRefreshSecret string        `toml:"jwt_refresh_secret"`
	AccessTTL        time.Duration `toml:"access_ttl"`
	RefreshTTL       time.Duration `toml:"refresh_ttl"`
	InviteTTL        time.Duration `toml:"invite_ttl"`
	Issuer           string        `toml:"issuer"`
}

// KafkaConfig enables audit streaming when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

type RateLimit struct {
	Disabled     bool          `toml:"disabled"`
	GlobalLimit  int           `toml:"global_limit"`
	GlobalWindow time.Duration `toml:"global_window"`
	AuthLimit    int           `toml:"auth_limit"`
	AuthWindow   time.Duration `toml:"auth_window"`
}

type CacheConfig struct {
	ShortTTL  time.Duration `toml:"short_ttl"`
	MediumTTL time.Duration `toml:"medium_ttl"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Env:      EnvDevelopment,
		LogLevel: "info",
		Server: Server{
			Addr:            ":3001",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    10 << 20,
			Version:         "1.0.0",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Auth: AuthConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			InviteTTL:  15 * time.Minute,
			Issuer:     "encantar",
		},
		Kafka: KafkaConfig{Topic: "encantar.audit"},
		RateLimit: RateLimit{
			GlobalLimit:  100,
			GlobalWindow: 15 * time.Minute,
			AuthLimit:    5,
			AuthWindow:   time.Hour,
		},
		Cache: CacheConfig{
			ShortTTL:  300 * time.Second,
			MediumTTL: 1800 * time.Second,
		},
		FrontendURL: "http://localhost:3000",
		Metrics:     true,
	}
}

// Load builds the configuration and validates it.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("ENCANTAR_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("APP_ENV", &cfg.Env)
	str("LOG_LEVEL", &cfg.LogLevel)
	if port, ok := lookup("PORT"); ok && port != "" {
		cfg.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	str("DATABASE_URL", &cfg.Database.URL)
	str("REDIS_URL", &cfg.Redis.URL)
	str("JWT_SECRET", &cfg.Auth.JWTSecret)
	str("JWT_REFRESH_SECRET", &cfg.Auth.JWTRefreshSecret)
	dur("JWT_EXPIRES_IN", &cfg.Auth.AccessTTL)
	dur("JWT_REFRESH_EXPIRES_IN", &cfg.Auth.RefreshTTL)
	str("FRONTEND_URL", &cfg.FrontendURL)
	if brokers, ok := lookup("KAFKA_BROKERS"); ok && brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	str("AUDIT_TOPIC", &cfg.Kafka.Topic)
	boolean("RATE_LIMIT_DISABLED", &cfg.RateLimit.Disabled)
	boolean("METRICS_ENABLED", &cfg.Metrics)

	return errors.Join(errs...)
}

// parseDuration accepts Go durations plus the "7d" day suffix used by
// jsonwebtoken-style settings.
func parseDuration(v string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsProduction reports whether strict checks apply.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate collects every configuration problem instead of stopping at the first.
func (c Config) Validate() error {
	var errs []error
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be one of development, production, test; got %q", c.Env))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.JWTRefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET is required"))
	}
	if c.IsProduction() {
		errs = append(errs, checkSecret("JWT_SECRET", c.Auth.JWTSecret)...)
		errs = append(errs, checkSecret("JWT_REFRESH_SECRET", c.Auth.JWTRefreshSecret)...)
		if c.Auth.JWTSecret != "" && c.Auth.JWTSecret == c.Auth.JWTRefreshSecret {
			errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ"))
		}
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	return errors.Join(errs...)
}

func checkSecret(name, value string) []error {
	if value == "" {
		return nil
	}
	var errs []error
	if len(value) < 32 {
		errs = append(errs, fmt.Errorf("%s must be at least 32 characters in production", name))
	}
	lower := strings.ToLower(value)
	if strings.Contains(lower, "fallback") || strings.Contains(lower, "encantar-secret") {
		errs = append(errs, fmt.Errorf("%s uses a placeholder value", name))
	}
	return errs
}
