package main

import (
	"context"
	"errors"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"freelancer-feedback/internal/adapters/httpapi"
	"freelancer-feedback/internal/adapters/repo"
	"freelancer-feedback/internal/domain"
	"freelancer-feedback/internal/infra/cache"
	"freelancer-feedback/internal/infra/config"
	"freelancer-feedback/internal/infra/db"
	httpinfra "freelancer-feedback/internal/infra/http"
	"freelancer-feedback/internal/infra/log"
	"freelancer-feedback/internal/infra/metrics"
	"freelancer-feedback/internal/infra/queue"
	"freelancer-feedback/internal/usecase/feedback"
	"freelancer-feedback/internal/usecase/session"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv, cfg.LogPretty)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.PGDSN == "" {
		logger.Fatal().Msg("api: PG_DSN не задан")
	}
	pool, err := db.Connect(cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	store := repo.NewPostgres(pool)
	// Таблица всё равно создаётся при первом приёме отзыва, здесь только прогрев.
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Warn().Err(err).Msg("api: не удалось подготовить схему")
	}

	var (
		redisClient *redis.Client
		sessions    domain.SessionStore
	)
	if cfg.RedisAddr != "" {
		redisClient, err = cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: нет подключения к Redis")
		}
		defer redisClient.Close()
		sessions = cache.NewRedisSessions(redisClient)
	}

	events, closeEvents, err := queue.Open(cfg.Events.Backend, cfg.Events.Queue, cfg.Events.AMQPURL, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Events.Backend).Msg("api: не удалось открыть очередь событий")
	}
	defer func() { _ = closeEvents() }()

	feedbackService := feedback.NewService(store, feedback.NewValidator(),
		feedback.WithEvents(events),
		feedback.WithLogger(logger.With().Str("component", "feedback").Logger()),
	)
	sessionService := session.NewService(session.Config{
		Secret:   cfg.Admin.Secret,
		TokenKey: cfg.Admin.TokenKey,
		TTL:      cfg.Admin.SessionTTL,
		Store:    sessions,
	})

	srv := httpinfra.NewServer(logger, httpinfra.Options{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	api := httpapi.NewServer(feedbackService, sessionService,
		httpapi.WithLogger(logger.With().Str("component", "httpapi").Logger()),
	)
	api.Mount(srv.Router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(":" + strconv.Itoa(cfg.Port))
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
		}
	}
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("api: ошибка остановки")
	}
}
