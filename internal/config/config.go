package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	OpenRouter OpenRouterConfig
	Serving    ServingConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Addr           string
	Enabled        bool
	TranslationTTL time.Duration
}

type KafkaConfig struct {
	Brokers  []string
	GroupID  string
	Topics   TopicConfig
	MockMode bool
	Enabled  bool
}

type TopicConfig struct {
	EventPublished     string
	EventQuarantined   string
	EventRejected      string
	ScrapedSubmissions string
}

// OpenRouterConfig drives the natural-language translation step. MockMode
// swaps the remote model for the built-in rule-based translator.
type OpenRouterConfig struct {
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	MockMode bool
}

type ServingConfig struct {
	PageSize         int
	WindowDays       int
	PendingLimit     int
	QuarantinedLimit int
}

func Load() *Config {
	kafkaEnabled := getEnvBool("KAFKA_ENABLED", true)
	mockMode := getEnvBool("KAFKA_MOCK_MODE", false)

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:          getEnv("POSTGRES_DSN", ""),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled:        getEnvBool("REDIS_ENABLED", true),
			TranslationTTL: time.Duration(getEnvInt("TRANSLATION_CACHE_TTL_MINUTES", 60)) * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:  []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			GroupID:  getEnv("KAFKA_GROUP_ID", "curation-service-group"),
			Enabled:  kafkaEnabled,
			MockMode: mockMode,
			Topics: TopicConfig{
				EventPublished:     getEnv("KAFKA_TOPIC_PUBLISHED", "curation.events.published"),
				EventQuarantined:   getEnv("KAFKA_TOPIC_QUARANTINED", "curation.events.quarantined"),
				EventRejected:      getEnv("KAFKA_TOPIC_REJECTED", "curation.events.rejected"),
				ScrapedSubmissions: getEnv("KAFKA_TOPIC_SCRAPED", "curation.submissions.scraped"),
			},
		},
		OpenRouter: OpenRouterConfig{
			APIKey:   getEnv("OPENROUTER_API_KEY", ""),
			Model:    getEnv("OPENROUTER_MODEL", "google/gemini-2.0-flash-001"),
			BaseURL:  getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Timeout:  time.Duration(getEnvInt("OPENROUTER_TIMEOUT_SECONDS", 10)) * time.Second,
			MockMode: getEnvBool("TRANSLATOR_MOCK_MODE", false),
		},
		Serving: ServingConfig{
			PageSize:         getEnvInt("SEARCH_PAGE_SIZE", 20),
			WindowDays:       getEnvInt("LISTING_WINDOW_DAYS", 90),
			PendingLimit:     getEnvInt("ADMIN_PENDING_LIMIT", 50),
			QuarantinedLimit: getEnvInt("ADMIN_QUARANTINED_LIMIT", 20),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
