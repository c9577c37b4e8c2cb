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

	"gamepulse/internal/adapters/classify"
	"gamepulse/internal/adapters/feed"
	"gamepulse/internal/adapters/repo"
	"gamepulse/internal/adapters/summarize"
	"gamepulse/internal/domain"
	"gamepulse/internal/infra/cache"
	"gamepulse/internal/infra/config"
	"gamepulse/internal/infra/db"
	applog "gamepulse/internal/infra/log"
	"gamepulse/internal/infra/metrics"
	"gamepulse/internal/infra/openai"
	"gamepulse/internal/infra/queue"
	ingestusecase "gamepulse/internal/usecase/ingest"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("ingest: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("ingest: не указан адрес Redis (REDIS_ADDR)")
	}
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	runCache := cache.NewRedis(redisClient)

	var ingestQueue domain.IngestQueue
	if cfg.RabbitURL != "" {
		rabbitQueue, err := queue.NewRabbitIngestQueue(cfg.RabbitURL, cfg.Queues.Ingest)
		if err != nil {
			logger.Fatal().Err(err).Msg("ingest: не удалось инициализировать очередь RabbitMQ")
		}
		defer rabbitQueue.Close()
		ingestQueue = rabbitQueue
	} else {
		ingestQueue = queue.NewRedisIngestQueue(redisClient, cfg.Queues.Ingest)
	}

	fetcher := feed.NewFetcher(cfg.Feed.Timeout, cfg.Feed.MaxItems, cfg.Feed.UserAgent)
	gameClassifier := classify.NewKeywordClassifier()
	heuristicTagger := classify.NewHeuristicTagger()
	simpleSummarizer := summarize.NewSimple()

	var tagger domain.TextClassifier = heuristicTagger
	var summarizer domain.Summarizer = simpleSummarizer
	if cfg.OpenAI.APIKey != "" {
		openaiClient := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
		tagger = classify.NewLLMTagger(openaiClient, cfg.OpenAI.Model, cfg.OpenAI.Timeout, heuristicTagger)
		summarizer = summarize.NewLLM(openaiClient, cfg.OpenAI.Model, cfg.OpenAI.Timeout, simpleSummarizer)
	}

	ingestService := ingestusecase.NewService(
		repoAdapter, repoAdapter, repoAdapter,
		fetcher, gameClassifier, tagger, summarizer,
		runCache, classify.SupportedSlugs(),
		cfg.Ingest.RetentionKeep, cfg.Ingest.LockTTL, logger,
	)

	worker := &jobWorker{
		log:     logger,
		queue:   ingestQueue,
		service: ingestService,
	}

	logger.Info().Msg("ingest: запуск обработки очереди")
	worker.Run(ctx)
	logger.Info().Msg("ingest: остановлен")
}

type jobWorker struct {
	log     zerolog.Logger
	queue   domain.IngestQueue
	service *ingestusecase.Service
}

const maxDeliveryAttempts = 3

func (w *jobWorker) Run(ctx context.Context) {
	attempts := make(map[string]int)
	for {
		job, ack, err := w.queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.log.Error().Err(err).Msg("ingest: ошибка чтения очереди")
			time.Sleep(time.Second)
			continue
		}

		jobLog := w.log.With().
			Str("job_id", job.ID).
			Str("cause", string(job.Cause)).
			Logger()

		if job.ID == "" {
			jobLog.Error().Msg("ingest: получена задача без идентификатора, подтверждаем и пропускаем")
			if err := ack(true); err != nil {
				jobLog.Error().Err(err).Msg("ingest: не удалось подтвердить задачу без идентификатора")
			}
			continue
		}

		attempts[job.ID]++
		summary, err := w.service.Run(ctx, job)
		if err != nil {
			if attempts[job.ID] < maxDeliveryAttempts {
				jobLog.Warn().Err(err).Int("attempt", attempts[job.ID]).Msg("ingest: прогон завершился ошибкой, повторим позже")
				if ackErr := ack(false); ackErr != nil {
					jobLog.Error().Err(ackErr).Msg("ingest: не удалось вернуть задачу в очередь")
				}
				continue
			}
			jobLog.Error().Err(err).Msg("ingest: достигнут предел попыток, задача подтверждена")
		}
		delete(attempts, job.ID)

		if summary != nil {
			jobLog.Info().
				Int("sources", summary.SourcesProcessed).
				Int("new", summary.TotalNew).
				Int("removed", summary.TotalRemoved).
				Int("errors", len(summary.Errors)).
				Msg("ingest: задача выполнена")
		}

		if err := ack(true); err != nil {
			jobLog.Error().Err(err).Msg("ingest: не удалось подтвердить задачу")
		}
	}
}
