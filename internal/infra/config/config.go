package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv    string `envconfig:"APP_ENV" default:"dev"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`
	Port      int    `envconfig:"PORT" default:"8080"`

	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"5"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Server struct {
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"5s"`
		ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
		WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
		IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	} `envconfig:""`

	Admin struct {
		Secret     string        `envconfig:"ADMIN_SECRET" default:"upwork"`
		TokenKey   string        `envconfig:"ADMIN_TOKEN_KEY"`
		SessionTTL time.Duration `envconfig:"ADMIN_SESSION_TTL" default:"12h"`
	} `envconfig:""`

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	} `envconfig:""`

	Events struct {
		Backend string `envconfig:"EVENTS_BACKEND" default:"none"`
		Queue   string `envconfig:"EVENTS_QUEUE" default:"feedback_events"`
		AMQPURL string `envconfig:"AMQP_URL"`
	} `envconfig:""`

	Telegram struct {
		Token  string `envconfig:"TG_BOT_TOKEN"`
		ChatID int64  `envconfig:"TG_CHAT_ID"`
	} `envconfig:""`

	Metrics struct {
		Addr string `envconfig:"METRICS_ADDR" default:":9090"`
	} `envconfig:""`

	Client struct {
		APIURL  string        `envconfig:"FEEDBACK_API_URL" default:"http://localhost:8080"`
		Timeout time.Duration `envconfig:"FEEDBACK_API_TIMEOUT" default:"10s"`
	} `envconfig:""`
}

// Поддерживаемые значения EVENTS_BACKEND.
const (
	EventsBackendNone     = "none"
	EventsBackendRedis    = "redis"
	EventsBackendRabbitMQ = "rabbitmq"
)

// Load загружает конфиг из окружения. Файл .env, если он есть, читается первым.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse читает конфиг и возвращает ошибку вместо завершения процесса.
func Parse() (AppConfig, error) {
	_ = godotenv.Load()

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	cfg.Events.Backend = strings.ToLower(strings.TrimSpace(cfg.Events.Backend))
	if cfg.Events.Backend == "" {
		cfg.Events.Backend = EventsBackendNone
	}
	return cfg, nil
}
