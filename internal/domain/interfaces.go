package domain

import (
	"context"
	"errors"
	"time"
)

// ErrArticleNotFound возвращается репозиторием, когда статьи с указанным id нет.
var ErrArticleNotFound = errors.New("статья не найдена")

// FeedFetcher выгружает и разбирает ленту источника.
type FeedFetcher interface {
	Fetch(ctx context.Context, src Source) ([]FeedItem, error)
}

// GameClassifier решает, относится ли текст к одной из поддерживаемых игр.
// Возвращает nil, если уверенного совпадения нет: такая статья не сохраняется.
type GameClassifier interface {
	Match(title, content string) *GameMatch
	RelevanceScore(match GameMatch) float64
}

// TextClassifier размечает статью рубрикой, регионом и тегами.
// Реализации: детерминированная по ключевым словам и LLM с откатом
// на детерминированные значения при любой ошибке.
type TextClassifier interface {
	Classify(ctx context.Context, title, content, gameSlug string, sourceRegion *Region) Classification
}

// Summarizer строит редактируемые заголовок, выжимку и превью статьи.
type Summarizer interface {
	Summarize(ctx context.Context, title, content, gameSlug string) ArticleDraft
}

// SourceRepo читает источники и обновляет отметку последней выборки.
type SourceRepo interface {
	ListActiveSources(ctx context.Context) ([]Source, error)
	ListSources(ctx context.Context) ([]Source, error)
	TouchSourceFetched(ctx context.Context, sourceID int64, at time.Time) error
}

// FetchLogRepo ведёт журнал выборок.
type FetchLogRepo interface {
	CreateFetchLog(ctx context.Context, sourceID int64) (int64, error)
	CompleteFetchLog(ctx context.Context, logID int64, found, newCount, processed int) error
	FailFetchLog(ctx context.Context, logID int64, message string) error
}

// ArticleFilter описывает выборку статей для модерационного интерфейса.
// SourceType: "manual" — созданные оператором либо уже прошедшие модерацию,
// "fetched" — выгруженные и всё ещё ожидающие решения.
type ArticleFilter struct {
	Status     *ArticleStatus
	GameSlug   string
	Category   *Category
	Region     *Region
	SourceType string
	Search     string
	Limit      int
	Offset     int
}

// ArticleUpdate перечисляет изменяемые оператором поля; nil — поле не трогаем.
type ArticleUpdate struct {
	Title        *string
	Summary      *string
	Excerpt      *string
	ThumbnailURL *string
	Category     *Category
	Region       *Region
	Tags         []string
	Status       *ArticleStatus
	IsFeatured   *bool
	IsPinned     *bool
	RejectReason *string
}

// ArticleRepo — операции контент-хранилища над статьями.
type ArticleRepo interface {
	ExistsByURL(ctx context.Context, originalURL string) (bool, error)
	InsertArticle(ctx context.Context, article Article) (int64, error)
	GetArticle(ctx context.Context, id int64) (Article, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]Article, int, error)
	UpdateArticle(ctx context.Context, id int64, upd ArticleUpdate, moderatedBy *string, moderatedAt *time.Time) (Article, error)
	PublishArticle(ctx context.Context, id int64, moderator string, at time.Time) (Article, error)
	RejectArticle(ctx context.Context, id int64, moderator, reason string, at time.Time) (Article, error)
	// PruneOldPending удаляет для игры все pending-статьи из источников,
	// кроме keep самых свежих. Ручные и прошедшие модерацию записи не трогает.
	PruneOldPending(ctx context.Context, gameSlug string, keep int) (int, error)
}

// Cache используется для простых TTL-хранилищ и прогонного замка.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) (bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// IngestQueue передаёт задачи прогона от планировщика воркеру.
// Receive возвращает ack-функцию: ack(true) подтверждает задачу,
// ack(false) возвращает её в очередь.
type IngestQueue interface {
	Enqueue(ctx context.Context, job IngestJob) error
	Receive(ctx context.Context) (IngestJob, func(ok bool) error, error)
}
