package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	registerOnce sync.Once

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	FeedbackSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_submissions_total",
		Help: "Отправки отзывов по результату обработки",
	}, []string{"outcome"})

	FeedbackQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_queries_total",
		Help: "Запросы админки по режиму и результату",
	}, []string{"mode", "outcome"})

	FeedbackNotifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_notifications_total",
		Help: "Уведомления о новых отзывах",
	}, []string{"status"})
)

// Значения label outcome.
const (
	OutcomeAccepted     = "accepted"
	OutcomeInvalid      = "invalid"
	OutcomeFailed       = "failed"
	OutcomeUnauthorized = "unauthorized"
)

// MustRegister регистрирует метрики. Повторные вызовы игнорируются.
func MustRegister(registerer prometheus.Registerer) {
	registerOnce.Do(func() {
		registerer.MustRegister(
			NetworkRequestDuration,
			NetworkRequestTotal,
			FeedbackSubmissions,
			FeedbackQueries,
			FeedbackNotifications,
		)
	})
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncSubmission увеличивает счётчик отправок отзывов.
func IncSubmission(outcome string) {
	FeedbackSubmissions.WithLabelValues(outcome).Inc()
}

// IncQuery увеличивает счётчик запросов админки.
func IncQuery(mode, outcome string) {
	FeedbackQueries.WithLabelValues(mode, outcome).Inc()
}

// IncNotification увеличивает счётчик уведомлений.
func IncNotification(err error) {
	status := "sent"
	if err != nil {
		status = "error"
	}
	FeedbackNotifications.WithLabelValues(status).Inc()
}
