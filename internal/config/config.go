package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/CET-Mate/exam-session-service/internal/grading"
)

// OpenAIConfig configures the subjective grading collaborator.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// GradingConfig holds the scoring policy: fallback behavior, phase
// timeout, subjective weights and the grade band table.
type GradingConfig struct {
	PhaseTimeout             time.Duration
	TranslationFallbackScore float64
	WritingFallbackScore     float64
	TranslationMaxScore      float64
	WritingMaxScore          float64
	NotAnsweredComment       string
	FallbackComment          string
	Bands                    []grading.GradeBand
}

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	KafkaBrokers []string
	KafkaTopic   string

	OpenAI  OpenAIConfig
	Grading GradingConfig

	// TickInterval lets tests run the countdown fast; one second in
	// production.
	TickInterval time.Duration
}

// LoadConfig reads configuration from the environment, loading .env first
// if present.
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		KafkaTopic: getEnv("KAFKA_TOPIC", "exam.sessions"),

		OpenAI: OpenAIConfig{
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},

		Grading: GradingConfig{
			PhaseTimeout:             getEnvDuration("GRADING_PHASE_TIMEOUT", 30*time.Second),
			TranslationFallbackScore: getEnvFloat("TRANSLATION_FALLBACK_SCORE", 8),
			WritingFallbackScore:     getEnvFloat("WRITING_FALLBACK_SCORE", 8),
			TranslationMaxScore:      getEnvFloat("TRANSLATION_MAX_SCORE", 15),
			WritingMaxScore:          getEnvFloat("WRITING_MAX_SCORE", 15),
			NotAnsweredComment:       getEnv("NOT_ANSWERED_COMMENT", "未作答"),
			FallbackComment:          getEnv("FALLBACK_COMMENT", "自动评分失败，已按默认分计入"),
			Bands: []grading.GradeBand{
				{Name: "excellent", Min: getEnvFloat("BAND_EXCELLENT_MIN", 85)},
				{Name: "good", Min: getEnvFloat("BAND_GOOD_MIN", 70)},
				{Name: "pass", Min: getEnvFloat("BAND_PASS_MIN", 60)},
				{Name: "fail", Min: 0},
			},
		},

		TickInterval: getEnvDuration("CLOCK_TICK_INTERVAL", time.Second),
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
