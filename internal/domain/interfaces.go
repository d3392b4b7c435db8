package domain

import (
	"context"
	"time"
)

// FeedbackStore — append-only хранилище отзывов.
type FeedbackStore interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, in FeedbackInput) (int64, error)
	ListSummary(ctx context.Context) ([]FeedbackSummary, error)
	ListDetails(ctx context.Context) ([]Feedback, error)
}

// Notifier доставляет уведомление о новом отзыве.
type Notifier interface {
	Notify(ctx context.Context, event FeedbackEvent) error
}

// SessionStore хранит идентификаторы выданных админских сессий.
type SessionStore interface {
	Save(ctx context.Context, id string, ttl time.Duration) error
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}
