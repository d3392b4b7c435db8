package config

import (
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("ADMIN_SECRET", "")
	t.Setenv("EVENTS_BACKEND", "")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("ожидали порт 8080, получили %d", cfg.Port)
	}
	if cfg.Admin.SessionTTL != 12*time.Hour {
		t.Fatalf("ожидали TTL 12h, получили %s", cfg.Admin.SessionTTL)
	}
	if cfg.Events.Backend != EventsBackendNone {
		t.Fatalf("ожидали backend none, получили %q", cfg.Events.Backend)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("ADMIN_SECRET", "s3cret")
	t.Setenv("EVENTS_BACKEND", " RabbitMQ ")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if cfg.Admin.Secret != "s3cret" {
		t.Fatalf("ожидали секрет из окружения, получили %q", cfg.Admin.Secret)
	}
	if cfg.Events.Backend != EventsBackendRabbitMQ {
		t.Fatalf("ожидали rabbitmq, получили %q", cfg.Events.Backend)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Fatalf("ожидали 2 origin, получили %v", cfg.CORS.AllowedOrigins)
	}
}
