package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Locker сериализует пакетные операции над одной площадкой между репликами
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// NoopLocker используется, когда Redis не настроен; базу защищают блокировки строк
type NoopLocker struct{}

// Lock ничего не блокирует
func (NoopLocker) Lock(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

// RedisLocker распределенная блокировка на bsm/redislock
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// NewRedisLocker создает блокировщик поверх клиента Redis
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 30),
	}
}

// NewRedisClient разбирает REDIS_URL и создает клиента
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Lock берет блокировку; занятая блокировка после всех попыток дает ErrResourceBusy
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, "bominventory:"+key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrResourceBusy
	}
	if err != nil {
		return nil, err
	}
	return func() {
		// Контекст запроса к этому моменту может быть отменен
		_ = lock.Release(context.Background())
	}, nil
}
