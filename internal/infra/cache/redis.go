package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"freelancer-feedback/internal/domain"
	"freelancer-feedback/internal/infra/metrics"
)

const sessionKeyPrefix = "feedback:admin_session:"

// RedisSessions реализует domain.SessionStore через Redis.
type RedisSessions struct {
	client *redis.Client
}

var _ domain.SessionStore = (*RedisSessions)(nil)

// NewRedisSessions создаёт хранилище сессий.
func NewRedisSessions(client *redis.Client) *RedisSessions {
	return &RedisSessions{client: client}
}

// Save запоминает сессию на ttl.
func (c *RedisSessions) Save(ctx context.Context, id string, ttl time.Duration) error {
	if id == "" {
		return errors.New("session id is empty")
	}
	start := time.Now()
	err := c.client.Set(ctx, sessionKeyPrefix+id, "1", ttl).Err()
	metrics.ObserveNetworkRequest("redis", "session_save", "admin_session", start, err)
	return err
}

// Exists проверяет, что сессия не истекла и не отозвана.
func (c *RedisSessions) Exists(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	n, err := c.client.Exists(ctx, sessionKeyPrefix+id).Result()
	metrics.ObserveNetworkRequest("redis", "session_exists", "admin_session", start, err)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete отзывает сессию.
func (c *RedisSessions) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := c.client.Del(ctx, sessionKeyPrefix+id).Err()
	metrics.ObserveNetworkRequest("redis", "session_delete", "admin_session", start, err)
	return err
}

// Connect создаёт клиент Redis и проверяет соединение.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
