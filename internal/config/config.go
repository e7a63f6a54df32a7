// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Auth      AuthConfig      `koanf:"auth"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Loyalty   LoyaltyConfig   `koanf:"loyalty"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath     string        `koanf:"private_key_path"`
	PublicKeyPath      string        `koanf:"public_key_path"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"`
	RefreshTokenExpire time.Duration `koanf:"refresh_token_expire"`
	Issuer             string        `koanf:"issuer"`
	Audience           string        `koanf:"audience"`
}

// AuthConfig controls the session cookie that mirrors the bearer token
// for browser clients.
type AuthConfig struct {
	CookieName   string `koanf:"cookie_name"`
	CookieSecure bool   `koanf:"cookie_secure"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

// LoyaltyConfig holds the tunables of the points program.
type LoyaltyConfig struct {
	PointRatio         int64         `koanf:"point_ratio"`
	VoucherPrefix      string        `koanf:"voucher_prefix"`
	VoucherMaxAttempts int           `koanf:"voucher_max_attempts"`
	RedeemLimit        int           `koanf:"redeem_limit"`
	RedeemWindow       time.Duration `koanf:"redeem_window"`
	LimiterBackend     string        `koanf:"limiter_backend"`
	SweepInterval      time.Duration `koanf:"sweep_interval"`
	IdempotencyTTL     time.Duration `koanf:"idempotency_ttl"`
	RatioCacheTTL      time.Duration `koanf:"ratio_cache_ttl"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

const (
	LimiterBackendMemory = "memory"
	LimiterBackendRedis  = "redis"
)

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Poin Lunak",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire":  "15m",
		"jwt.refresh_token_expire": "168h",
		"jwt.issuer":               "poin-lunak",
		"jwt.audience":             "poin-lunak-api",
		"jwt.private_key_path":     "keys/private.pem",
		"jwt.public_key_path":      "keys/public.pem",

		"auth.cookie_name":   "auth-token",
		"auth.cookie_secure": false,

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"loyalty.point_ratio":          1000,
		"loyalty.voucher_prefix":       "POIN",
		"loyalty.voucher_max_attempts": 10,
		"loyalty.redeem_limit":         5,
		"loyalty.redeem_window":        "60s",
		"loyalty.limiter_backend":      LimiterBackendRedis,
		"loyalty.sweep_interval":       "5m",
		"loyalty.idempotency_ttl":      "24h",
		"loyalty.ratio_cache_ttl":      "10m",

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"Idempotency-Key",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "poin-lunak",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                 "database.url",
	"REDIS_URL":                    "redis.url",
	"ENVIRONMENT":                  "app.environment",
	"HOST":                         "server.host",
	"PORT":                         "server.port",
	"LOG_LEVEL":                    "log.level",
	"LOG_FORMAT":                   "log.format",
	"JWT_PRIVATE_KEY_PATH":         "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":          "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":      "jwt.access_token_expire",
	"JWT_REFRESH_TOKEN_EXPIRE":     "jwt.refresh_token_expire",
	"JWT_ISSUER":                   "jwt.issuer",
	"JWT_AUDIENCE":                 "jwt.audience",
	"AUTH_COOKIE_NAME":             "auth.cookie_name",
	"AUTH_COOKIE_SECURE":           "auth.cookie_secure",
	"RATE_LIMIT_REQUESTS":          "rate_limit.requests",
	"RATE_LIMIT_WINDOW":            "rate_limit.window",
	"RATE_LIMIT_BURST":             "rate_limit.burst",
	"LOYALTY_POINT_RATIO":          "loyalty.point_ratio",
	"LOYALTY_VOUCHER_PREFIX":       "loyalty.voucher_prefix",
	"LOYALTY_VOUCHER_MAX_ATTEMPTS": "loyalty.voucher_max_attempts",
	"LOYALTY_REDEEM_LIMIT":         "loyalty.redeem_limit",
	"LOYALTY_REDEEM_WINDOW":        "loyalty.redeem_window",
	"LOYALTY_LIMITER_BACKEND":      "loyalty.limiter_backend",
	"LOYALTY_SWEEP_INTERVAL":       "loyalty.sweep_interval",
	"LOYALTY_IDEMPOTENCY_TTL":      "loyalty.idempotency_ttl",
	"OTEL_ENDPOINT":                "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT":  "otel.endpoint",
	"OTEL_SERVICE_NAME":            "otel.service_name",
	"OTEL_ENABLED":                 "otel.enabled",
	"OTEL_INSECURE":                "otel.insecure",
	"OTEL_SAMPLE_RATE":             "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
		if !c.Auth.CookieSecure {
			return fmt.Errorf("AUTH_COOKIE_SECURE must be true in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return validateLoyalty(c.Loyalty)
}

func validateLoyalty(l LoyaltyConfig) error {
	if l.PointRatio <= 0 {
		return fmt.Errorf("loyalty.point_ratio must be positive")
	}

	if l.VoucherPrefix == "" {
		return fmt.Errorf("loyalty.voucher_prefix is required")
	}

	if l.VoucherMaxAttempts < 1 {
		return fmt.Errorf("loyalty.voucher_max_attempts must be at least 1")
	}

	if l.RedeemLimit < 1 || l.RedeemWindow <= 0 {
		return fmt.Errorf("loyalty.redeem_limit and redeem_window must be positive")
	}

	switch l.LimiterBackend {
	case LimiterBackendMemory, LimiterBackendRedis:
	default:
		return fmt.Errorf(
			"loyalty.limiter_backend must be %q or %q",
			LimiterBackendMemory,
			LimiterBackendRedis,
		)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
