package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore хранит диалоги в Redis: поля в хеше, шаг в отдельном ключе.
// Хеш сливает поля атомарно, поэтому хранилище можно разделять между экземплярами бота.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore создаёт хранилище поверх клиента Redis.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		prefix: "carrental:",
	}
}

func (s *RedisStore) bagKey(key string) string  { return s.prefix + "session:" + key + ":bag" }
func (s *RedisStore) stepKey(key string) string { return s.prefix + "session:" + key + ":step" }
func (s *RedisStore) refKey(ref string) string  { return s.prefix + "payref:" + ref }

func (s *RedisStore) touch(ctx context.Context, pipe redis.Pipeliner, keys ...string) {
	if s.ttl <= 0 {
		return
	}
	for _, k := range keys {
		pipe.Expire(ctx, k, s.ttl)
	}
}

// Get возвращает накопленные поля диалога.
func (s *RedisStore) Get(ctx context.Context, key string) (Bag, error) {
	res, err := s.client.HGetAll(ctx, s.bagKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", key, err)
	}
	return Bag(res), nil
}

// Update сливает поля диалога и продлевает его жизнь.
func (s *RedisStore) Update(ctx context.Context, key string, fields Bag) error {
	if len(fields) == 0 {
		return nil
	}

	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = v
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.bagKey(key), values)
		s.touch(ctx, pipe, s.bagKey(key), s.stepKey(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis update %s: %w", key, err)
	}
	return nil
}

// SetStep запоминает шаг диалога.
func (s *RedisStore) SetStep(ctx context.Context, key, step string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.stepKey(key), step, s.ttl)
		s.touch(ctx, pipe, s.bagKey(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set step %s: %w", key, err)
	}
	return nil
}

// GetStep возвращает шаг диалога.
func (s *RedisStore) GetStep(ctx context.Context, key string) (string, error) {
	step, err := s.client.Get(ctx, s.stepKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get step %s: %w", key, err)
	}
	return step, nil
}

// Clear удаляет диалог.
func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.bagKey(key), s.stepKey(key)).Err(); err != nil {
		return fmt.Errorf("redis clear %s: %w", key, err)
	}
	return nil
}

// PutReference связывает ссылку платежа с диалогом.
func (s *RedisStore) PutReference(ctx context.Context, ref, key string) error {
	if err := s.client.Set(ctx, s.refKey(ref), key, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis put reference: %w", err)
	}
	return nil
}

// LookupReference возвращает ключ диалога по ссылке платежа.
func (s *RedisStore) LookupReference(ctx context.Context, ref string) (string, bool, error) {
	key, err := s.client.Get(ctx, s.refKey(ref)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis lookup reference: %w", err)
	}
	return key, true, nil
}

// DeleteReference удаляет ссылку платежа.
func (s *RedisStore) DeleteReference(ctx context.Context, ref string) error {
	if err := s.client.Del(ctx, s.refKey(ref)).Err(); err != nil {
		return fmt.Errorf("redis delete reference: %w", err)
	}
	return nil
}

// Close не закрывает общий клиент Redis, им владеет вызывающий код.
func (s *RedisStore) Close() error {
	return nil
}
