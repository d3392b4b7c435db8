package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"freelancer-feedback/internal/domain"
	"freelancer-feedback/internal/infra/metrics"
)

// RedisFeedbackQueue реализует очередь событий на базе Redis lists.
type RedisFeedbackQueue struct {
	client *redis.Client
	key    string
}

var _ domain.FeedbackEventQueue = (*RedisFeedbackQueue)(nil)

// NewRedisFeedbackQueue создаёт очередь по указанному ключу.
func NewRedisFeedbackQueue(client *redis.Client, key string) *RedisFeedbackQueue {
	return &RedisFeedbackQueue{client: client, key: key}
}

// Enqueue публикует событие в очередь.
func (q *RedisFeedbackQueue) Enqueue(ctx context.Context, event domain.FeedbackEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push event: %w", err)
	}
	return nil
}

// Receive блокирующе читает событие из очереди. Событие удаляется из списка
// сразу, поэтому подтверждение для Redis ничего не делает.
func (q *RedisFeedbackQueue) Receive(ctx context.Context) (domain.FeedbackEvent, domain.AckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.FeedbackEvent{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.FeedbackEvent{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.FeedbackEvent{}, nil, err
		}
		if len(res) != 2 {
			return domain.FeedbackEvent{}, nil, errors.New("redis queue: unexpected response")
		}
		var event domain.FeedbackEvent
		if err := json.Unmarshal([]byte(res[1]), &event); err != nil {
			return domain.FeedbackEvent{}, nil, fmt.Errorf("decode event: %w", err)
		}
		return event, func(bool) error { return nil }, nil
	}
}
