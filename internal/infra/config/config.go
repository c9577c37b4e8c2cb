package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	RabbitURL string `envconfig:"RABBITMQ_URL"`

	Feed struct {
		Timeout   time.Duration `envconfig:"FEED_TIMEOUT" default:"15s"`
		MaxItems  int           `envconfig:"FEED_MAX_ITEMS" default:"30"`
		UserAgent string        `envconfig:"FEED_USER_AGENT" default:"gamepulse-bot/1.0"`
	} `envconfig:""`

	Ingest struct {
		Interval      time.Duration `envconfig:"INGEST_INTERVAL" default:"30m"`
		RetentionKeep int           `envconfig:"INGEST_RETENTION_KEEP" default:"5"`
		LockTTL       time.Duration `envconfig:"INGEST_LOCK_TTL" default:"10m"`
	} `envconfig:""`

	OpenAI struct {
		APIKey  string        `envconfig:"OPENAI_API_KEY"`
		BaseURL string        `envconfig:"OPENAI_BASE_URL"`
		Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"20s"`
	} `envconfig:""`

	Queues struct {
		Ingest string `envconfig:"INGEST_QUEUE_KEY" default:"ingest_jobs"`
	} `envconfig:""`

	Moderation struct {
		// Токены операторов в формате "token:имя,token2:имя2".
		OperatorTokens string `envconfig:"MODERATION_OPERATOR_TOKENS"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
