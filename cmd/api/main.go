package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"gamepulse/internal/adapters/classify"
	"gamepulse/internal/adapters/repo"
	"gamepulse/internal/domain"
	"gamepulse/internal/infra/config"
	"gamepulse/internal/infra/db"
	httpinfra "gamepulse/internal/infra/http"
	applog "gamepulse/internal/infra/log"
	"gamepulse/internal/infra/metrics"
	"gamepulse/internal/infra/queue"
	moderationusecase "gamepulse/internal/usecase/moderation"
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
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	var ingestQueue domain.IngestQueue
	if cfg.RabbitURL != "" {
		rabbitQueue, err := queue.NewRabbitIngestQueue(cfg.RabbitURL, cfg.Queues.Ingest)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: не удалось инициализировать очередь RabbitMQ")
		}
		defer rabbitQueue.Close()
		ingestQueue = rabbitQueue
	} else {
		if cfg.RedisAddr == "" {
			logger.Fatal().Msg("api: не указан ни RABBITMQ_URL, ни REDIS_ADDR")
		}
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		ingestQueue = queue.NewRedisIngestQueue(redisClient, cfg.Queues.Ingest)
	}

	operatorTokens := httpinfra.ParseOperatorTokens(cfg.Moderation.OperatorTokens)
	if len(operatorTokens) == 0 {
		logger.Fatal().Msg("api: не заданы токены операторов (MODERATION_OPERATOR_TOKENS)")
	}

	moderationService := moderationusecase.NewService(repoAdapter, classify.SupportedSlugs(), logger)
	h := &handlers{
		moderation: moderationService,
		sources:    repoAdapter,
		queue:      ingestQueue,
	}

	server := httpinfra.NewServer(logger.With().Str("component", "http").Logger())
	r := server.Router

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Group(func(protected chi.Router) {
		protected.Use(httpinfra.OperatorAuthMiddleware(operatorTokens))

		protected.Get("/api/v1/articles", h.listArticles)
		protected.Post("/api/v1/articles", h.createArticle)
		protected.Get("/api/v1/articles/{id}", h.getArticle)
		protected.Patch("/api/v1/articles/{id}", h.updateArticle)
		protected.Post("/api/v1/articles/{id}/publish", h.publishArticle)
		protected.Post("/api/v1/articles/{id}/reject", h.rejectArticle)
		protected.Get("/api/v1/sources", h.listSources)
		protected.Post("/api/v1/ingest/runs", h.triggerIngest)
	})

	go func() {
		addr := ":" + strconv.Itoa(cfg.Port)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api: ошибка HTTP сервера")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info().Msg("api: остановлен")
}

type handlers struct {
	moderation *moderationusecase.Service
	sources    domain.SourceRepo
	queue      domain.IngestQueue
}

func (h *handlers) listArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.ArticleFilter{
		GameSlug:   q.Get("game"),
		SourceType: q.Get("source_type"),
		Search:     q.Get("search"),
		Limit:      20,
	}
	if raw := q.Get("status"); raw != "" {
		status := domain.ArticleStatus(raw)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		filter.Status = &status
	}
	if raw := q.Get("category"); raw != "" {
		category := domain.Category(raw)
		if !category.Valid() {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		filter.Category = &category
	}
	if raw := q.Get("region"); raw != "" {
		region := domain.Region(raw)
		if !region.Valid() {
			writeError(w, http.StatusBadRequest, "unknown region")
			return
		}
		filter.Region = &region
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 100 {
			writeError(w, http.StatusBadRequest, "limit must be in 1..100")
			return
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "offset must be non-negative")
			return
		}
		filter.Offset = offset
	}

	articles, total, err := h.moderation.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list articles")
		return
	}
	items := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		items = append(items, toArticleResponse(a))
	}
	writeJSON(w, map[string]any{"articles": items, "total": total})
}

func (h *handlers) getArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}
	article, err := h.moderation.Get(r.Context(), id)
	if err != nil {
		writeArticleError(w, err)
		return
	}
	writeJSON(w, toArticleResponse(article))
}

type createArticleRequest struct {
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	Excerpt      string   `json:"excerpt"`
	ThumbnailURL string   `json:"thumbnail_url"`
	OriginalURL  string   `json:"original_url"`
	GameSlug     string   `json:"game_slug"`
	Category     string   `json:"category"`
	Region       string   `json:"region"`
	Tags         []string `json:"tags"`
	Status       string   `json:"status"`
	IsFeatured   bool     `json:"is_featured"`
	IsPinned     bool     `json:"is_pinned"`
}

func (h *handlers) createArticle(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req createArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	article, err := h.moderation.CreateManual(r.Context(), httpinfra.OperatorFromContext(r.Context()), moderationusecase.ManualArticle{
		Title:        req.Title,
		Summary:      req.Summary,
		Excerpt:      req.Excerpt,
		ThumbnailURL: req.ThumbnailURL,
		OriginalURL:  req.OriginalURL,
		GameSlug:     req.GameSlug,
		Category:     domain.Category(req.Category),
		Region:       domain.Region(req.Region),
		Tags:         req.Tags,
		Status:       domain.ArticleStatus(req.Status),
		IsFeatured:   req.IsFeatured,
		IsPinned:     req.IsPinned,
	})
	if err != nil {
		writeArticleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toArticleResponse(article))
}

type updateArticleRequest struct {
	Title        *string  `json:"title"`
	Summary      *string  `json:"summary"`
	Excerpt      *string  `json:"excerpt"`
	ThumbnailURL *string  `json:"thumbnail_url"`
	Category     *string  `json:"category"`
	Region       *string  `json:"region"`
	Tags         []string `json:"tags"`
	Status       *string  `json:"status"`
	IsFeatured   *bool    `json:"is_featured"`
	IsPinned     *bool    `json:"is_pinned"`
	RejectReason *string  `json:"reject_reason"`
}

func (h *handlers) updateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}
	defer r.Body.Close()
	var req updateArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := domain.ArticleUpdate{
		Title:        req.Title,
		Summary:      req.Summary,
		Excerpt:      req.Excerpt,
		ThumbnailURL: req.ThumbnailURL,
		Tags:         req.Tags,
		IsFeatured:   req.IsFeatured,
		IsPinned:     req.IsPinned,
		RejectReason: req.RejectReason,
	}
	if req.Category != nil {
		category := domain.Category(*req.Category)
		upd.Category = &category
	}
	if req.Region != nil {
		region := domain.Region(*req.Region)
		upd.Region = &region
	}
	if req.Status != nil {
		status := domain.ArticleStatus(*req.Status)
		upd.Status = &status
	}

	article, err := h.moderation.Update(r.Context(), id, httpinfra.OperatorFromContext(r.Context()), upd)
	if err != nil {
		writeArticleError(w, err)
		return
	}
	writeJSON(w, toArticleResponse(article))
}

func (h *handlers) publishArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}
	article, err := h.moderation.Publish(r.Context(), id, httpinfra.OperatorFromContext(r.Context()))
	if err != nil {
		writeArticleError(w, err)
		return
	}
	writeJSON(w, toArticleResponse(article))
}

type rejectArticleRequest struct {
	Reason string `json:"reason"`
}

func (h *handlers) rejectArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}
	defer r.Body.Close()
	var req rejectArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	article, err := h.moderation.Reject(r.Context(), id, httpinfra.OperatorFromContext(r.Context()), req.Reason)
	if err != nil {
		writeArticleError(w, err)
		return
	}
	writeJSON(w, toArticleResponse(article))
}

func (h *handlers) listSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.sources.ListSources(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}
	items := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		items = append(items, toSourceResponse(src))
	}
	writeJSON(w, map[string]any{"sources": items})
}

func (h *handlers) triggerIngest(w http.ResponseWriter, r *http.Request) {
	job := domain.IngestJob{
		ID:          uuid.NewString(),
		Cause:       domain.IngestCauseManual,
		RequestedBy: httpinfra.OperatorFromContext(r.Context()),
		RequestedAt: time.Now().UTC(),
	}
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue ingest run")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"job_id": job.ID})
}

func articleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid article id")
		return 0, false
	}
	return id, true
}

type articleResponse struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id,omitempty"`

	OriginalURL         string     `json:"original_url,omitempty"`
	SourceID            *int64     `json:"source_id,omitempty"`
	OriginalTitle       string     `json:"original_title,omitempty"`
	OriginalContent     string     `json:"original_content,omitempty"`
	OriginalPublishedAt *time.Time `json:"original_published_at,omitempty"`

	Title        string `json:"title"`
	Summary      string `json:"summary"`
	Excerpt      string `json:"excerpt"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`

	GameSlug         string   `json:"game_slug"`
	Category         string   `json:"category"`
	Region           string   `json:"region"`
	Tags             []string `json:"tags"`
	AIRelevanceScore float64  `json:"ai_relevance_score"`
	AIProcessed      bool     `json:"ai_processed"`

	Status       string     `json:"status"`
	IsFeatured   bool       `json:"is_featured"`
	IsPinned     bool       `json:"is_pinned"`
	ModeratedBy  *string    `json:"moderated_by,omitempty"`
	ModeratedAt  *time.Time `json:"moderated_at,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	RejectReason string     `json:"reject_reason,omitempty"`

	ViewsCount int       `json:"views_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toArticleResponse(a domain.Article) articleResponse {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return articleResponse{
		ID:                  a.ID,
		ExternalID:          a.ExternalID,
		OriginalURL:         a.OriginalURL,
		SourceID:            a.SourceID,
		OriginalTitle:       a.OriginalTitle,
		OriginalContent:     a.OriginalContent,
		OriginalPublishedAt: a.OriginalPublishedAt,
		Title:               a.Title,
		Summary:             a.Summary,
		Excerpt:             a.Excerpt,
		ThumbnailURL:        a.ThumbnailURL,
		GameSlug:            a.GameSlug,
		Category:            string(a.Category),
		Region:              string(a.Region),
		Tags:                tags,
		AIRelevanceScore:    a.AIRelevanceScore,
		AIProcessed:         a.AIProcessed,
		Status:              string(a.Status),
		IsFeatured:          a.IsFeatured,
		IsPinned:            a.IsPinned,
		ModeratedBy:         a.ModeratedBy,
		ModeratedAt:         a.ModeratedAt,
		PublishedAt:         a.PublishedAt,
		RejectReason:        a.RejectReason,
		ViewsCount:          a.ViewsCount,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

type sourceResponse struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	Region        *string    `json:"region,omitempty"`
	IsActive      bool       `json:"is_active"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toSourceResponse(src domain.Source) sourceResponse {
	resp := sourceResponse{
		ID:            src.ID,
		Name:          src.Name,
		URL:           src.URL,
		IsActive:      src.IsActive,
		LastFetchedAt: src.LastFetchedAt,
		CreatedAt:     src.CreatedAt,
	}
	if src.Region != nil {
		region := string(*src.Region)
		resp.Region = &region
	}
	return resp
}

func writeArticleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrArticleNotFound):
		writeError(w, http.StatusNotFound, "article not found")
	case errors.Is(err, moderationusecase.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, moderationusecase.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}
