// Package cache содержит хранилища временных значений с ограниченным сроком жизни.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config задаёт параметры подключения к Redis.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Redis хранит значения в Redis в виде JSON.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedis создаёт клиента Redis.
func NewRedis(cfg Config, logger *zap.Logger) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		logger: logger.With(zap.String("component", "redis")),
	}
}

// Client возвращает клиента go-redis.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Ping проверяет доступность Redis.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// SetJSON сохраняет значение в JSON на время ttl.
func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// GetJSON читает значение в dest. Возвращает false, если ключа нет или срок истёк.
func (r *Redis) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		r.logger.Warn("drop corrupted cache entry", zap.String("key", key), zap.Error(err))
		_ = r.client.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

// Delete удаляет ключ.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close закрывает соединение.
func (r *Redis) Close() error {
	return r.client.Close()
}
