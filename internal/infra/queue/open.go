package queue

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"freelancer-feedback/internal/domain"
	"freelancer-feedback/internal/infra/config"
)

// Open создаёт очередь событий для выбранного бэкенда. Для EventsBackendNone
// возвращает nil очередь: события не публикуются.
func Open(backend, name, amqpURL string, client *redis.Client) (domain.FeedbackEventQueue, func() error, error) {
	noop := func() error { return nil }
	switch backend {
	case config.EventsBackendNone, "":
		return nil, noop, nil
	case config.EventsBackendRedis:
		if client == nil {
			return nil, noop, errors.New("redis backend requires REDIS_ADDR")
		}
		return NewRedisFeedbackQueue(client, name), noop, nil
	case config.EventsBackendRabbitMQ:
		q, err := NewRabbitFeedbackQueue(amqpURL, name)
		if err != nil {
			return nil, noop, err
		}
		return q, q.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown events backend %q", backend)
	}
}
