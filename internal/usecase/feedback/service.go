package feedback

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"freelancer-feedback/internal/domain"
	"freelancer-feedback/internal/infra/metrics"
)

const publishTimeout = 2 * time.Second

// Service реализует приём и выдачу отзывов.
type Service struct {
	store     domain.FeedbackStore
	validator *Validator
	events    domain.FeedbackEventQueue
	log       zerolog.Logger
	now       func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithEvents включает публикацию событий о новых отзывах.
func WithEvents(q domain.FeedbackEventQueue) Option {
	return func(s *Service) {
		s.events = q
	}
}

// WithLogger задаёт логгер.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// NewService создаёт сервис отзывов.
func NewService(store domain.FeedbackStore, validator *Validator, opts ...Option) *Service {
	s := &Service{store: store, validator: validator, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit проверяет тело запроса и сохраняет отзыв. Возвращает присвоенный id.
// При ошибке валидации в хранилище ничего не пишется.
func (s *Service) Submit(ctx context.Context, body []byte) (int64, error) {
	if err := s.store.EnsureSchema(ctx); err != nil {
		metrics.IncSubmission(metrics.OutcomeFailed)
		return 0, err
	}
	in, err := s.validator.ValidateJSON(body)
	if err != nil {
		metrics.IncSubmission(metrics.OutcomeInvalid)
		return 0, err
	}
	id, err := s.store.Insert(ctx, in)
	if err != nil {
		metrics.IncSubmission(metrics.OutcomeFailed)
		return 0, err
	}
	metrics.IncSubmission(metrics.OutcomeAccepted)
	s.publish(ctx, id, in)
	return id, nil
}

// Summary возвращает агрегаты по парам (имя, профиль).
func (s *Service) Summary(ctx context.Context) ([]domain.FeedbackSummary, error) {
	return s.store.ListSummary(ctx)
}

// Details возвращает все отзывы, новые первыми.
func (s *Service) Details(ctx context.Context) ([]domain.Feedback, error) {
	return s.store.ListDetails(ctx)
}

func (s *Service) publish(ctx context.Context, id int64, in domain.FeedbackInput) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	event := domain.NewFeedbackEvent(id, in, s.now().UTC())
	if err := s.events.Enqueue(ctx, event); err != nil {
		s.log.Warn().Err(err).Int64("feedback_id", id).Msg("feedback: не удалось опубликовать событие")
	}
}
