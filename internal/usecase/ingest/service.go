package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gamepulse/internal/adapters/feed"
	"gamepulse/internal/domain"
	"gamepulse/internal/infra/metrics"
)

// runLockKey — ключ прогонного замка в Redis. Пока замок удерживается,
// параллельные прогоны пропускаются целиком.
const runLockKey = "ingest:run_lock"

// Service — координатор прогона: опрашивает источники, классифицирует
// записи и сохраняет прошедшие отбор статьи в статусе pending.
type Service struct {
	sources    domain.SourceRepo
	fetchLogs  domain.FetchLogRepo
	articles   domain.ArticleRepo
	fetcher    domain.FeedFetcher
	games      domain.GameClassifier
	classifier domain.TextClassifier
	summarizer domain.Summarizer
	cache      domain.Cache

	gameSlugs     []string
	retentionKeep int
	lockTTL       time.Duration
	logger        zerolog.Logger
}

// NewService создаёт координатор прогона.
func NewService(
	sources domain.SourceRepo,
	fetchLogs domain.FetchLogRepo,
	articles domain.ArticleRepo,
	fetcher domain.FeedFetcher,
	games domain.GameClassifier,
	classifier domain.TextClassifier,
	summarizer domain.Summarizer,
	cache domain.Cache,
	gameSlugs []string,
	retentionKeep int,
	lockTTL time.Duration,
	logger zerolog.Logger,
) *Service {
	return &Service{
		sources:       sources,
		fetchLogs:     fetchLogs,
		articles:      articles,
		fetcher:       fetcher,
		games:         games,
		classifier:    classifier,
		summarizer:    summarizer,
		cache:         cache,
		gameSlugs:     gameSlugs,
		retentionKeep: retentionKeep,
		lockTTL:       lockTTL,
		logger:        logger.With().Str("component", "ingest").Logger(),
	}
}

// Run выполняет прогон под замком. Возвращает (nil, nil), если замок
// удерживается другим прогоном: задача считается выполненной, не ошибкой.
func (s *Service) Run(ctx context.Context, job domain.IngestJob) (*domain.RunSummary, error) {
	var summary *domain.RunSummary
	acquired, err := s.cache.Once(ctx, runLockKey, s.lockTTL, func() error {
		res, runErr := s.run(ctx, job)
		summary = res
		return runErr
	})
	if err != nil {
		return nil, err
	}
	if !acquired {
		s.logger.Info().Str("job_id", job.ID).Msg("ingest: прогон уже выполняется, задача пропущена")
		return nil, nil
	}
	return summary, nil
}

func (s *Service) run(ctx context.Context, job domain.IngestJob) (*domain.RunSummary, error) {
	started := time.Now().UTC()
	metrics.IngestRunsTotal.WithLabelValues(string(job.Cause)).Inc()
	defer func() {
		metrics.IngestRunSeconds.Observe(time.Since(started).Seconds())
	}()

	summary := &domain.RunSummary{
		RunID:     job.ID,
		StartedAt: started,
	}

	sources, err := s.sources.ListActiveSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение источников: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("cause", string(job.Cause)).
		Int("sources", len(sources)).
		Msg("ingest: старт прогона")

	for _, src := range sources {
		found, newCount, err := s.processSource(ctx, src)
		summary.SourcesProcessed++
		summary.TotalFound += found
		summary.TotalNew += newCount
		if err != nil {
			metrics.SourceFetchErrors.Inc()
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", src.Name, err))
			s.logger.Error().Err(err).Str("source", src.Name).Msg("ingest: источник пропущен из-за ошибки")
		}
	}

	// Политика удержания применяется после полного прохода, чтобы
	// свежие статьи текущего прогона участвовали в отборе.
	for _, slug := range s.gameSlugs {
		removed, err := s.articles.PruneOldPending(ctx, slug, s.retentionKeep)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("очистка %s: %v", slug, err))
			s.logger.Error().Err(err).Str("game", slug).Msg("ingest: ошибка очистки старых статей")
			continue
		}
		if removed > 0 {
			metrics.ArticlesPruned.Add(float64(removed))
		}
		summary.TotalRemoved += removed
	}

	summary.FinishedAt = time.Now().UTC()
	s.logger.Info().
		Str("job_id", job.ID).
		Int("sources", summary.SourcesProcessed).
		Int("found", summary.TotalFound).
		Int("new", summary.TotalNew).
		Int("removed", summary.TotalRemoved).
		Int("errors", len(summary.Errors)).
		Msg("ingest: прогон завершён")
	return summary, nil
}

// processSource обрабатывает один источник под собственной записью журнала.
// Ошибка выборки фиксируется в журнале и не прерывает прогон.
func (s *Service) processSource(ctx context.Context, src domain.Source) (found, newCount int, err error) {
	logID, err := s.fetchLogs.CreateFetchLog(ctx, src.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("создание записи журнала: %w", err)
	}

	items, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		if failErr := s.fetchLogs.FailFetchLog(ctx, logID, err.Error()); failErr != nil {
			s.logger.Error().Err(failErr).Str("source", src.Name).Msg("ingest: не удалось записать ошибку в журнал")
		}
		return 0, 0, fmt.Errorf("выборка ленты: %w", err)
	}

	processed := 0
	for _, item := range items {
		saved, procErr := s.processItem(ctx, src, item)
		if procErr != nil {
			// Ошибка одной записи не валит источник.
			s.logger.Error().Err(procErr).Str("source", src.Name).Str("link", item.Link).Msg("ingest: запись пропущена из-за ошибки")
			continue
		}
		processed++
		if saved {
			newCount++
		}
	}

	if err := s.fetchLogs.CompleteFetchLog(ctx, logID, len(items), newCount, processed); err != nil {
		s.logger.Error().Err(err).Str("source", src.Name).Msg("ingest: не удалось завершить запись журнала")
	}
	if err := s.sources.TouchSourceFetched(ctx, src.ID, time.Now().UTC()); err != nil {
		s.logger.Error().Err(err).Str("source", src.Name).Msg("ingest: не удалось обновить отметку выборки")
	}
	return len(items), newCount, nil
}

// processItem пропускает запись через дедупликацию, определение игры,
// разметку и суммаризацию. Возвращает true, если статья сохранена.
func (s *Service) processItem(ctx context.Context, src domain.Source, item domain.FeedItem) (bool, error) {
	identity := item.Identity()
	if identity == "" {
		metrics.ArticlesSkipped.WithLabelValues("no_identity").Inc()
		return false, nil
	}

	exists, err := s.articles.ExistsByURL(ctx, identity)
	if err != nil {
		return false, fmt.Errorf("проверка дубликата: %w", err)
	}
	if exists {
		metrics.ArticlesSkipped.WithLabelValues("duplicate").Inc()
		return false, nil
	}

	// Классификация и выжимка работают по сниппету; сырой HTML-контент
	// сохраняется как original_content и служит источником превью-картинки.
	snippet := strings.TrimSpace(item.ContentSnippet)
	if snippet == "" {
		snippet = item.Content
	}
	rawContent := item.Content
	if rawContent == "" {
		rawContent = item.ContentSnippet
	}

	match := s.games.Match(item.Title, snippet)
	if match == nil {
		metrics.ArticlesSkipped.WithLabelValues("no_game_match").Inc()
		return false, nil
	}

	classification := s.classifier.Classify(ctx, item.Title, snippet, match.Slug, src.Region)
	draft := s.summarizer.Summarize(ctx, item.Title, snippet, match.Slug)

	thumbnail := item.EnclosureURL
	if thumbnail == "" {
		thumbnail = feed.FirstImageURL(item.Content)
	}

	article := domain.Article{
		ExternalID:          item.GUID,
		OriginalURL:         identity,
		SourceID:            &src.ID,
		OriginalTitle:       item.Title,
		OriginalContent:     rawContent,
		OriginalPublishedAt: item.Published,
		Title:               draft.Title,
		Summary:             draft.Summary,
		Excerpt:             draft.Excerpt,
		ThumbnailURL:        thumbnail,
		GameSlug:            match.Slug,
		Category:            classification.Category,
		Region:              classification.Region,
		Tags:                classification.Tags,
		AIRelevanceScore:    s.games.RelevanceScore(*match),
		AIProcessed:         false,
		Status:              domain.StatusPending,
	}

	if _, err := s.articles.InsertArticle(ctx, article); err != nil {
		return false, fmt.Errorf("сохранение статьи: %w", err)
	}
	metrics.ArticlesIngested.WithLabelValues(match.Slug).Inc()
	return true, nil
}
