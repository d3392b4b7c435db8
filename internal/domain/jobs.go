package domain

import (
	"context"
	"time"
)

// FeedbackEvent публикуется после успешного сохранения отзыва.
// Email клиента в событие не попадает.
type FeedbackEvent struct {
	FeedbackID     int64     `json:"feedback_id"`
	FreelancerName string    `json:"freelancer_name"`
	ProfileURL     string    `json:"profile_url"`
	OverallRating  int       `json:"overall_rating"`
	MeanRating     float64   `json:"mean_rating"`
	Comments       *string   `json:"comments,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// NewFeedbackEvent собирает событие из сохранённых полей.
func NewFeedbackEvent(id int64, in FeedbackInput, at time.Time) FeedbackEvent {
	return FeedbackEvent{
		FeedbackID:     id,
		FreelancerName: in.FreelancerName,
		ProfileURL:     in.ProfileURL,
		OverallRating:  in.Ratings.Overall,
		MeanRating:     in.Ratings.Mean(),
		Comments:       in.Comments,
		SubmittedAt:    at,
	}
}

// FeedbackEventQueue описывает очередь событий об отзывах.
type FeedbackEventQueue interface {
	Enqueue(ctx context.Context, event FeedbackEvent) error
	Receive(ctx context.Context) (FeedbackEvent, AckFunc, error)
}

// AckFunc подтверждает обработку события. При success=false событие
// отбрасывается без повторной доставки.
type AckFunc func(success bool) error
