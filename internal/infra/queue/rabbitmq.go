package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"freelancer-feedback/internal/domain"
	"freelancer-feedback/internal/infra/metrics"
)

// RabbitFeedbackQueue реализует очередь событий через AMQP.
type RabbitFeedbackQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	mu         sync.Mutex
	deliveries <-chan amqp.Delivery
}

var _ domain.FeedbackEventQueue = (*RabbitFeedbackQueue)(nil)

// NewRabbitFeedbackQueue подключается к брокеру и объявляет durable-очередь.
func NewRabbitFeedbackQueue(amqpURL, queue string) (*RabbitFeedbackQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &RabbitFeedbackQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Enqueue публикует событие в очередь.
func (q *RabbitFeedbackQueue) Enqueue(ctx context.Context, event domain.FeedbackEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.SubmittedAt,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Receive блокирующе читает событие. Подтверждение выполняется через AckFunc.
func (q *RabbitFeedbackQueue) Receive(ctx context.Context) (domain.FeedbackEvent, domain.AckFunc, error) {
	deliveries, err := q.consume()
	if err != nil {
		return domain.FeedbackEvent{}, nil, err
	}
	for {
		select {
		case <-ctx.Done():
			return domain.FeedbackEvent{}, nil, ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return domain.FeedbackEvent{}, nil, errors.New("rabbitmq: delivery channel closed")
			}
			var event domain.FeedbackEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				_ = d.Nack(false, false)
				return domain.FeedbackEvent{}, nil, fmt.Errorf("decode event: %w", err)
			}
			ack := func(success bool) error {
				if success {
					return d.Ack(false)
				}
				return d.Nack(false, false)
			}
			return event, ack, nil
		}
	}
}

func (q *RabbitFeedbackQueue) consume() (<-chan amqp.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deliveries != nil {
		return q.deliveries, nil
	}
	if err := q.ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	q.deliveries = deliveries
	return deliveries, nil
}

// Close закрывает канал и соединение.
func (q *RabbitFeedbackQueue) Close() error {
	chErr := q.ch.Close()
	connErr := q.conn.Close()
	return errors.Join(chErr, connErr)
}
