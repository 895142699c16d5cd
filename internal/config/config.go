package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const minJWTSecretLength = 32

type Config struct {
	App   AppConfig
	HTTP  HTTPConfig
	DB    DBConfig
	Auth  AuthConfig
	Redis RedisConfig
}

type AppConfig struct {
	Env      string `env:"APP_ENV" env-default:"dev"`
	LogLevel string `env:"LOG_LEVEL" env-default:"INFO"`
}

type HTTPConfig struct {
	Port            string        `env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// DBConfig selects the driver. DSN wins over the POSTGRES_* parts.
type DBConfig struct {
	Driver   string `env:"DB_DRIVER" env-default:"postgres"`
	DSN      string `env:"DB_DSN"`
	User     string `env:"POSTGRES_USER"`
	Password string `env:"POSTGRES_PASSWORD"`
	Name     string `env:"POSTGRES_DB"`
	Host     string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `env:"POSTGRES_PORT" env-default:"5432"`
	SSLMode  string `env:"POSTGRES_SSLMODE" env-default:"disable"`
}

type AuthConfig struct {
	JWTSecret       string        `env:"JWT_SECRET"`
	TokenTTL        time.Duration `env:"JWT_TTL" env-default:"24h"`
	RateLimit       int           `env:"AUTH_RATE_LIMIT" env-default:"5"`
	RateLimitWindow time.Duration `env:"AUTH_RATE_WINDOW" env-default:"15m"`
}

// RedisConfig enables the list cache when Addr (or URL) is set.
// URL wins over the separate fields.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Username string        `env:"REDIS_USERNAME"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	URL      string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"REDIS_CACHE_TTL" env-default:"60s"`
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != "" || c.URL != ""
}

// ClientOptions builds the go-redis options. A rediss:// URL keeps its TLS
// config and any query parameters.
func (c RedisConfig) ClientOptions() (*redis.Options, error) {
	if c.URL != "" {
		return redis.ParseURL(strings.TrimSpace(c.URL))
	}
	return &redis.Options{
		Addr:     c.Addr,
		Username: c.Username,
		Password: c.Password,
		DB:       c.DB,
	}, nil
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	if len(c.Auth.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.Auth.RateLimit <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT must be positive")
	}

	switch c.DB.Driver {
	case "postgres", "pgx":
		if c.DB.DSN == "" {
			if c.DB.User == "" || c.DB.Name == "" {
				return fmt.Errorf("DB_DSN or POSTGRES_USER and POSTGRES_DB must be set")
			}
			c.DB.DSN = c.DB.postgresDSN()
		}
	case "sqlite3":
		if c.DB.DSN == "" {
			return fmt.Errorf("DB_DSN must be set for sqlite3")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}

	if c.Redis.URL != "" {
		opts, err := c.Redis.ClientOptions()
		if err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
		c.Redis.Addr, c.Redis.Username = opts.Addr, opts.Username
		c.Redis.Password, c.Redis.DB = opts.Password, opts.DB
	}

	if _, err := ParseLogLevel(c.App.LogLevel); err != nil {
		return err
	}
	return nil
}

func (d DBConfig) postgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// ParseLogLevel maps DEBUG/INFO/WARN/ERROR (any case) to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
