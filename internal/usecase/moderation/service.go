package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gamepulse/internal/domain"
	"gamepulse/internal/infra/metrics"
)

// ErrValidation возвращается при недопустимых полях запроса оператора.
var ErrValidation = errors.New("недопустимые поля запроса")

// ErrInvalidTransition возвращается при недопустимой смене статуса:
// публикуются только pending и approved, отклоняются только pending.
var ErrInvalidTransition = errors.New("недопустимый переход статуса")

// ManualArticle — поля статьи, создаваемой оператором вручную.
type ManualArticle struct {
	Title        string
	Summary      string
	Excerpt      string
	ThumbnailURL string
	OriginalURL  string
	GameSlug     string
	Category     domain.Category
	Region       domain.Region
	Tags         []string
	Status       domain.ArticleStatus
	IsFeatured   bool
	IsPinned     bool
}

// Service реализует модерационный шлюз: просмотр очереди pending-статей
// и решения операторов.
type Service struct {
	articles domain.ArticleRepo
	games    []string
	logger   zerolog.Logger
}

// NewService создаёт модерационный сервис. games — допустимые слаги игр
// для ручного создания статей.
func NewService(articles domain.ArticleRepo, games []string, logger zerolog.Logger) *Service {
	return &Service{
		articles: articles,
		games:    games,
		logger:   logger.With().Str("component", "moderation").Logger(),
	}
}

// List возвращает страницу статей по фильтру и точное число совпадений.
func (s *Service) List(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, int, error) {
	return s.articles.ListArticles(ctx, filter)
}

// Get возвращает статью по id.
func (s *Service) Get(ctx context.Context, id int64) (domain.Article, error) {
	return s.articles.GetArticle(ctx, id)
}

// Publish публикует статью от имени оператора. Повторная публикация
// не сдвигает published_at: отметка выставляется один раз.
func (s *Service) Publish(ctx context.Context, id int64, operator string) (domain.Article, error) {
	current, err := s.articles.GetArticle(ctx, id)
	if err != nil {
		return domain.Article{}, err
	}
	// Повторная публикация допустима и не сдвигает published_at,
	// отклонённая статья сначала возвращается в очередь правкой статуса.
	if current.Status == domain.StatusRejected {
		return domain.Article{}, fmt.Errorf("%w: из %s в %s", ErrInvalidTransition, current.Status, domain.StatusPublished)
	}
	article, err := s.articles.PublishArticle(ctx, id, operator, time.Now().UTC())
	if err != nil {
		return domain.Article{}, err
	}
	metrics.ModerationActions.WithLabelValues("publish").Inc()
	s.logger.Info().Int64("article_id", id).Str("operator", operator).Msg("moderation: статья опубликована")
	return article, nil
}

// Reject отклоняет статью с причиной. Причина обязательна.
func (s *Service) Reject(ctx context.Context, id int64, operator, reason string) (domain.Article, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Article{}, fmt.Errorf("%w: причина отказа обязательна", ErrValidation)
	}
	current, err := s.articles.GetArticle(ctx, id)
	if err != nil {
		return domain.Article{}, err
	}
	// Отклоняется только очередь модерации; повторный отказ уточняет причину.
	if current.Status != domain.StatusPending && current.Status != domain.StatusRejected {
		return domain.Article{}, fmt.Errorf("%w: из %s в %s", ErrInvalidTransition, current.Status, domain.StatusRejected)
	}
	article, err := s.articles.RejectArticle(ctx, id, operator, reason, time.Now().UTC())
	if err != nil {
		return domain.Article{}, err
	}
	metrics.ModerationActions.WithLabelValues("reject").Inc()
	s.logger.Info().Int64("article_id", id).Str("operator", operator).Msg("moderation: статья отклонена")
	return article, nil
}

// Update применяет правки оператора к статье. Смена статуса штампует
// поля модератора, правка текста — нет.
func (s *Service) Update(ctx context.Context, id int64, operator string, upd domain.ArticleUpdate) (domain.Article, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return domain.Article{}, fmt.Errorf("%w: неизвестный статус %q", ErrValidation, *upd.Status)
	}
	if upd.Category != nil && !upd.Category.Valid() {
		return domain.Article{}, fmt.Errorf("%w: неизвестная рубрика %q", ErrValidation, *upd.Category)
	}
	if upd.Region != nil && !upd.Region.Valid() {
		return domain.Article{}, fmt.Errorf("%w: неизвестный регион %q", ErrValidation, *upd.Region)
	}
	if upd.Status != nil && *upd.Status == domain.StatusRejected {
		if upd.RejectReason == nil || strings.TrimSpace(*upd.RejectReason) == "" {
			return domain.Article{}, fmt.Errorf("%w: причина отказа обязательна", ErrValidation)
		}
	}

	var moderatedBy *string
	var moderatedAt *time.Time
	if upd.Status != nil {
		now := time.Now().UTC()
		moderatedBy = &operator
		moderatedAt = &now
	}

	article, err := s.articles.UpdateArticle(ctx, id, upd, moderatedBy, moderatedAt)
	if err != nil {
		return domain.Article{}, err
	}
	metrics.ModerationActions.WithLabelValues("update").Inc()
	return article, nil
}

// CreateManual сохраняет статью, созданную оператором. SourceID остаётся
// пустым: такие статьи не участвуют в дедупликации и очистке.
func (s *Service) CreateManual(ctx context.Context, operator string, m ManualArticle) (domain.Article, error) {
	if strings.TrimSpace(m.Title) == "" {
		return domain.Article{}, fmt.Errorf("%w: заголовок обязателен", ErrValidation)
	}
	if !s.knownGame(m.GameSlug) {
		return domain.Article{}, fmt.Errorf("%w: неизвестная игра %q", ErrValidation, m.GameSlug)
	}
	if m.Category == "" {
		m.Category = domain.CategoryGeneral
	}
	if !m.Category.Valid() {
		return domain.Article{}, fmt.Errorf("%w: неизвестная рубрика %q", ErrValidation, m.Category)
	}
	if m.Region == "" {
		m.Region = domain.RegionGlobal
	}
	if !m.Region.Valid() {
		return domain.Article{}, fmt.Errorf("%w: неизвестный регион %q", ErrValidation, m.Region)
	}
	if m.Status == "" {
		m.Status = domain.StatusApproved
	}
	if !m.Status.Valid() {
		return domain.Article{}, fmt.Errorf("%w: неизвестный статус %q", ErrValidation, m.Status)
	}

	now := time.Now().UTC()
	article := domain.Article{
		OriginalURL:  m.OriginalURL,
		Title:        m.Title,
		Summary:      m.Summary,
		Excerpt:      m.Excerpt,
		ThumbnailURL: m.ThumbnailURL,
		GameSlug:     m.GameSlug,
		Category:     m.Category,
		Region:       m.Region,
		Tags:         m.Tags,
		Status:       m.Status,
		IsFeatured:   m.IsFeatured,
		IsPinned:     m.IsPinned,
		ModeratedBy:  &operator,
		ModeratedAt:  &now,
	}
	if m.Status == domain.StatusPublished {
		article.PublishedAt = &now
	}

	id, err := s.articles.InsertArticle(ctx, article)
	if err != nil {
		return domain.Article{}, err
	}
	metrics.ModerationActions.WithLabelValues("create").Inc()
	s.logger.Info().Int64("article_id", id).Str("operator", operator).Msg("moderation: статья создана вручную")
	return s.articles.GetArticle(ctx, id)
}

func (s *Service) knownGame(slug string) bool {
	for _, g := range s.games {
		if g == slug {
			return true
		}
	}
	return false
}
