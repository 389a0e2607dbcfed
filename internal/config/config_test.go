package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("VISIT_STORE", "")
	t.Setenv("LLM_API_KEY", "")
	cfg := Load()
	if cfg.Port != "8000" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.StoreBackend != "memory" {
		t.Fatalf("expected default store backend memory, got %s", cfg.StoreBackend)
	}
	if cfg.LLMAPIKey != "" {
		t.Fatalf("expected empty LLM key by default, got %s", cfg.LLMAPIKey)
	}
	if cfg.LLMBaseURL != "https://api.openai.com/v1" {
		t.Fatalf("expected default LLM base URL, got %s", cfg.LLMBaseURL)
	}
	if cfg.LLMTimeout != 10*time.Second {
		t.Fatalf("expected default LLM timeout, got %s", cfg.LLMTimeout)
	}
	if cfg.WherebyTimeout != 10*time.Second {
		t.Fatalf("expected default whereby timeout, got %s", cfg.WherebyTimeout)
	}
	if cfg.RoomURLBase != "https://repro-care.whereby.com" {
		t.Fatalf("expected default room URL base, got %s", cfg.RoomURLBase)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard CORS default, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 50 || cfg.RateLimitBurst != 100 {
		t.Fatalf("expected default rate limit 50/100, got %f/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("VISIT_STORE", "Redis")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LLM_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("LLM_TIMEOUT", "30s")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("WHEREBY_ROOM_TEMPLATE_ID", "tmpl-123")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")
	t.Setenv("RATE_LIMIT_RPS", "0")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.StoreBackend != "redis" {
		t.Fatalf("expected normalized store backend, got %s", cfg.StoreBackend)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("expected redis override, got %s", cfg.RedisAddr)
	}
	if cfg.LLMBaseURL != "http://localhost:11434/v1" {
		t.Fatalf("expected LLM base URL override, got %s", cfg.LLMBaseURL)
	}
	if cfg.LLMTimeout != 30*time.Second {
		t.Fatalf("expected LLM timeout override, got %s", cfg.LLMTimeout)
	}
	if cfg.Temperature != 0.2 {
		t.Fatalf("expected temperature override, got %f", cfg.Temperature)
	}
	if cfg.WherebyRoomTemplateID != "tmpl-123" {
		t.Fatalf("expected whereby template override, got %s", cfg.WherebyRoomTemplateID)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://staging.example.com" {
		t.Fatalf("expected CORS override, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 0 {
		t.Fatalf("expected rate limiting disabled, got %f", cfg.RateLimitRPS)
	}
}
