// Package config содержит логику чтения конфигурации сервиса аренды автомобилей.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Session backends.
const (
	SessionRedis  = "redis"
	SessionBadger = "badger"
	SessionMemory = "memory"
)

// Config содержит параметры конфигурации сервиса аренды автомобилей.
type Config struct {
	RunAddress      string        `env:"RUN_ADDRESS"`
	DatabaseURI     string        `env:"DATABASE_URI"`
	JWTSecret       string        `env:"JWT_SECRET"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL"`
	VerifyCodeTTL   time.Duration `env:"VERIFY_CODE_TTL"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	SessionBackend string        `env:"SESSION_BACKEND"`
	BadgerPath     string        `env:"BADGER_PATH"`
	SessionTTL     time.Duration `env:"SESSION_TTL"`

	BotToken             string `env:"BOT_TOKEN"`
	BotUsername          string `env:"BOT_USERNAME"`
	ChannelID            string `env:"CHANNEL_ID"`
	PaymentProviderToken string `env:"PAYMENT_PROVIDER_TOKEN"`
	PaymentCurrency      string `env:"PAYMENT_CURRENCY"`

	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaCarTopic string   `env:"KAFKA_CAR_TOPIC"`
	KafkaGroupID  string   `env:"KAFKA_GROUP_ID"`

	MetricsNamespace string `env:"METRICS_NAMESPACE"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		VerifyCodeTTL:    5 * time.Minute,
		PaymentCurrency:  "UZS",
		KafkaCarTopic:    "cars",
		KafkaGroupID:     "car-notifier",
		MetricsNamespace: "carrental",
	}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "k", "", "secret key for signing tokens")
	flag.DurationVar(&cfg.AccessTokenTTL, "access-ttl", 15*time.Minute, "access token lifetime")
	flag.DurationVar(&cfg.RefreshTokenTTL, "refresh-ttl", 7*24*time.Hour, "refresh token lifetime")
	flag.StringVar(&cfg.RedisAddr, "r", "", "redis address")
	flag.StringVar(&cfg.SessionBackend, "s", SessionMemory, "bot session backend: redis, badger or memory")
	flag.StringVar(&cfg.BadgerPath, "b", "", "badger directory, in-memory when empty")
	flag.DurationVar(&cfg.SessionTTL, "session-ttl", 24*time.Hour, "bot session lifetime")
	flag.StringVar(&cfg.BotToken, "t", "", "telegram bot token")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	switch cfg.SessionBackend {
	case SessionRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("redis session backend requires REDIS_ADDR")
		}
	case SessionBadger, SessionMemory:
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}

	return cfg, nil
}
