package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gamepulse/internal/domain"
	"gamepulse/internal/infra/config"
	applog "gamepulse/internal/infra/log"
	"gamepulse/internal/infra/queue"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ingestQueue domain.IngestQueue
	if cfg.RabbitURL != "" {
		rabbitQueue, err := queue.NewRabbitIngestQueue(cfg.RabbitURL, cfg.Queues.Ingest)
		if err != nil {
			logger.Fatal().Err(err).Msg("scheduler: не удалось инициализировать очередь RabbitMQ")
		}
		defer rabbitQueue.Close()
		ingestQueue = rabbitQueue
	} else {
		if cfg.RedisAddr == "" {
			logger.Fatal().Msg("scheduler: не указан ни RABBITMQ_URL, ни REDIS_ADDR")
		}
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		ingestQueue = queue.NewRedisIngestQueue(redisClient, cfg.Queues.Ingest)
	}

	logger.Info().Dur("interval", cfg.Ingest.Interval).Msg("scheduler: запущен")

	ticker := time.NewTicker(cfg.Ingest.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("scheduler: остановлен")
			return
		case <-ticker.C:
			job := domain.IngestJob{
				ID:          uuid.NewString(),
				Cause:       domain.IngestCauseScheduled,
				RequestedAt: time.Now().UTC(),
			}
			if err := ingestQueue.Enqueue(ctx, job); err != nil {
				logger.Error().Err(err).Msg("scheduler: не удалось поставить задачу прогона")
				continue
			}
			logger.Info().Str("job_id", job.ID).Msg("scheduler: задача прогона поставлена")
		}
	}
}
