package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string

	// Per-IP rate limiting; RateLimitRPS <= 0 disables it.
	RateLimitRPS   float64
	RateLimitBurst int

	// Visit store backend: "memory" (default), "redis", or "postgres".
	StoreBackend string
	DatabaseURL  string
	RedisAddr    string
	RedisPass    string
	RedisTLS     bool

	// Text-generation adapter. An empty API key means every completion
	// is served by the deterministic offline stub.
	LLMBaseURL  string
	LLMAPIKey   string
	LLMModel    string
	LLMTimeout  time.Duration
	Temperature float64

	// Whereby room provisioning. A template room id short-circuits the
	// live API; an empty API key falls back to the demo room.
	WherebyAPIKey         string
	WherebyRoomTemplateID string
	WherebyTimeout        time.Duration
	RoomURLBase           string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8000"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 100),

		StoreBackend: strings.ToLower(strings.TrimSpace(getEnv("VISIT_STORE", "memory"))),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RedisPass:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:     getEnvAsBool("REDIS_TLS", false),

		LLMBaseURL:  getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:   getEnv("LLM_API_KEY", ""),
		LLMModel:    getEnv("LLM_MODEL", "gpt-3.5-turbo"),
		LLMTimeout:  getEnvAsDuration("LLM_TIMEOUT", 10*time.Second),
		Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.7),

		WherebyAPIKey:         getEnv("WHEREBY_API_KEY", ""),
		WherebyRoomTemplateID: getEnv("WHEREBY_ROOM_TEMPLATE_ID", ""),
		WherebyTimeout:        getEnvAsDuration("WHEREBY_TIMEOUT", 10*time.Second),
		RoomURLBase:           getEnv("ROOM_URL_BASE", "https://repro-care.whereby.com"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
