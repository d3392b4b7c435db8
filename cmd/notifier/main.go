package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"freelancer-feedback/internal/adapters/notifier"
	"freelancer-feedback/internal/domain"
	"freelancer-feedback/internal/infra/cache"
	"freelancer-feedback/internal/infra/config"
	"freelancer-feedback/internal/infra/log"
	"freelancer-feedback/internal/infra/metrics"
	"freelancer-feedback/internal/infra/queue"
)

const (
	notifyTimeout = 10 * time.Second
	retryDelay    = time.Second
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv, cfg.LogPretty)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.Metrics.Addr)

	if cfg.Events.Backend == config.EventsBackendNone {
		logger.Fatal().Msg("notifier: EVENTS_BACKEND не задан, читать нечего")
	}

	var redisClient *redis.Client
	if cfg.Events.Backend == config.EventsBackendRedis {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("notifier: нет подключения к Redis")
		}
		defer client.Close()
		redisClient = client
	}

	events, closeEvents, err := queue.Open(cfg.Events.Backend, cfg.Events.Queue, cfg.Events.AMQPURL, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Events.Backend).Msg("notifier: не удалось открыть очередь событий")
	}
	defer func() { _ = closeEvents() }()

	var n domain.Notifier
	if cfg.Telegram.Token != "" {
		tg, err := notifier.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			logger.Fatal().Err(err).Msg("notifier: не удалось создать бота")
		}
		n = tg
	} else {
		logger.Warn().Msg("notifier: TG_BOT_TOKEN не задан, уведомления пишутся в лог")
		n = notifier.NewLog(logger.With().Str("component", "notifier").Logger())
	}

	logger.Info().Str("backend", cfg.Events.Backend).Msg("notifier: старт")
	run(ctx, events, n, logger)
	logger.Info().Msg("notifier: остановка")
}

func run(ctx context.Context, events domain.FeedbackEventQueue, n domain.Notifier, logger zerolog.Logger) {
	for {
		event, ack, err := events.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			logger.Error().Err(err).Msg("notifier: ошибка чтения очереди")
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}

		notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
		err = n.Notify(notifyCtx, event)
		cancel()
		metrics.IncNotification(err)
		if err != nil {
			logger.Error().Err(err).Int64("feedback_id", event.FeedbackID).Msg("notifier: уведомление не отправлено")
		}
		if ackErr := ack(err == nil); ackErr != nil {
			logger.Error().Err(ackErr).Int64("feedback_id", event.FeedbackID).Msg("notifier: ошибка подтверждения")
		}
	}
}
