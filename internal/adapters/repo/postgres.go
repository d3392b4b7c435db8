package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"freelancer-feedback/internal/domain"
	"freelancer-feedback/internal/infra/metrics"
)

const (
	queryTimeout = 5 * time.Second
	table        = "feedback"
	// schemaLockKey сериализует параллельные CREATE TABLE IF NOT EXISTS.
	schemaLockKey int64 = 0x66656564626b
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS feedback (
	id SERIAL PRIMARY KEY,
	email VARCHAR(255) NOT NULL,
	freelancer_name VARCHAR(255) NOT NULL CHECK (freelancer_name <> ''),
	profile_url TEXT NOT NULL,
	communication_rating INTEGER NOT NULL CHECK (communication_rating BETWEEN 1 AND 5),
	quality_rating INTEGER NOT NULL CHECK (quality_rating BETWEEN 1 AND 5),
	value_rating INTEGER NOT NULL CHECK (value_rating BETWEEN 1 AND 5),
	timeliness_rating INTEGER NOT NULL CHECK (timeliness_rating BETWEEN 1 AND 5),
	expertise_rating INTEGER NOT NULL CHECK (expertise_rating BETWEEN 1 AND 5),
	overall_rating INTEGER NOT NULL CHECK (overall_rating BETWEEN 1 AND 5),
	comments TEXT CHECK (comments <> ''),
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Сумма шести оценок делится на 6*count: это равно среднему от средних по
// записям, потому что все шесть колонок NOT NULL.
const summarySQL = `
SELECT
	freelancer_name,
	profile_url,
	ROUND(
		SUM(communication_rating + quality_rating + value_rating +
			timeliness_rating + expertise_rating + overall_rating)::numeric / (6 * COUNT(*)),
		2
	)::float8 AS avg_rating,
	MAX(GREATEST(communication_rating, quality_rating, value_rating,
		timeliness_rating, expertise_rating, overall_rating)) AS highest_rating,
	MIN(LEAST(communication_rating, quality_rating, value_rating,
		timeliness_rating, expertise_rating, overall_rating)) AS lowest_rating,
	COUNT(*) AS feedback_count
FROM feedback
GROUP BY freelancer_name, profile_url
ORDER BY avg_rating DESC`

const detailsSQL = `
SELECT id, email, freelancer_name, profile_url,
	communication_rating, quality_rating, value_rating,
	timeliness_rating, expertise_rating, overall_rating,
	comments, created_at
FROM feedback
ORDER BY created_at DESC, id DESC`

// Postgres реализует domain.FeedbackStore на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.FeedbackStore = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), queryTimeout)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, queryTimeout)
}

// EnsureSchema создаёт таблицу, если её нет. Безопасно вызывать повторно и параллельно.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, createTableSQL)
		return err
	})
	metrics.ObserveNetworkRequest("postgres", "ensure_schema", table, start, err)
	if err != nil {
		return &domain.PersistenceError{Op: "ensure_schema", Err: err}
	}
	return nil
}

// Insert добавляет отзыв и возвращает присвоенный id.
func (p *Postgres) Insert(ctx context.Context, in domain.FeedbackInput) (int64, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var comments *string
	if in.Comments != nil && *in.Comments != "" {
		comments = in.Comments
	}

	var id int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO feedback (
	email, freelancer_name, profile_url,
	communication_rating, quality_rating, value_rating,
	timeliness_rating, expertise_rating, overall_rating,
	comments
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id
`, in.Email, in.FreelancerName, in.ProfileURL,
		in.Ratings.Communication, in.Ratings.Quality, in.Ratings.Value,
		in.Ratings.Timeliness, in.Ratings.Expertise, in.Ratings.Overall,
		comments).Scan(&id)
	metrics.ObserveNetworkRequest("postgres", "feedback_insert", table, start, err)
	if err != nil {
		return 0, &domain.PersistenceError{Op: "insert", Err: err}
	}
	return id, nil
}

// ListSummary возвращает агрегаты, отсортированные по средней оценке по убыванию.
// Порядок при равных средних не определён.
func (p *Postgres) ListSummary(ctx context.Context) ([]domain.FeedbackSummary, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, summarySQL)
	if err != nil {
		metrics.ObserveNetworkRequest("postgres", "feedback_summary", table, start, err)
		return nil, &domain.PersistenceError{Op: "list_summary", Err: err}
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.FeedbackSummary, error) {
		var s domain.FeedbackSummary
		err := row.Scan(&s.FreelancerName, &s.ProfileURL, &s.AvgRating, &s.HighestRating, &s.LowestRating, &s.FeedbackCount)
		return s, err
	})
	metrics.ObserveNetworkRequest("postgres", "feedback_summary", table, start, err)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list_summary", Err: fmt.Errorf("scan: %w", err)}
	}
	return out, nil
}

// ListDetails возвращает все отзывы, новые первыми.
func (p *Postgres) ListDetails(ctx context.Context) ([]domain.Feedback, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, detailsSQL)
	if err != nil {
		metrics.ObserveNetworkRequest("postgres", "feedback_details", table, start, err)
		return nil, &domain.PersistenceError{Op: "list_details", Err: err}
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Feedback, error) {
		var f domain.Feedback
		err := row.Scan(&f.ID, &f.Email, &f.FreelancerName, &f.ProfileURL,
			&f.Ratings.Communication, &f.Ratings.Quality, &f.Ratings.Value,
			&f.Ratings.Timeliness, &f.Ratings.Expertise, &f.Ratings.Overall,
			&f.Comments, &f.CreatedAt)
		return f, err
	})
	metrics.ObserveNetworkRequest("postgres", "feedback_details", table, start, err)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list_details", Err: fmt.Errorf("scan: %w", err)}
	}
	return out, nil
}
