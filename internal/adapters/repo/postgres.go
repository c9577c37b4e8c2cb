package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gamepulse/internal/domain"
	"gamepulse/internal/infra/metrics"
)

// Postgres реализует репозитории контент-хранилища на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.SourceRepo   = (*Postgres)(nil)
	_ domain.FetchLogRepo = (*Postgres)(nil)
	_ domain.ArticleRepo  = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

const articleColumns = `id, external_id, original_url, source_id,
original_title, original_content, original_published_at,
title, summary, excerpt, thumbnail_url,
game_slug, category, region, tags, ai_relevance_score, ai_processed,
status, is_featured, is_pinned, moderated_by, moderated_at, published_at, reject_reason,
views_count, created_at, updated_at`

// ListActiveSources возвращает источники, подлежащие опросу.
func (p *Postgres) ListActiveSources(ctx context.Context) ([]domain.Source, error) {
	return p.listSources(ctx, true)
}

// ListSources возвращает все источники.
func (p *Postgres) ListSources(ctx context.Context) ([]domain.Source, error) {
	return p.listSources(ctx, false)
}

func (p *Postgres) listSources(ctx context.Context, onlyActive bool) ([]domain.Source, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	query := `
SELECT id, name, url, region, is_active, last_fetched_at, created_at
FROM sources`
	if onlyActive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY id`

	start := time.Now()
	rows, err := p.pool.Query(ctx, query)
	metrics.ObserveNetworkRequest("postgres", "sources_list", "sources", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var (
			src         domain.Source
			region      sql.NullString
			lastFetched sql.NullTime
		)
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &region, &src.IsActive, &lastFetched, &src.CreatedAt); err != nil {
			return nil, err
		}
		if region.Valid {
			r := domain.Region(region.String)
			src.Region = &r
		}
		if lastFetched.Valid {
			ts := lastFetched.Time
			src.LastFetchedAt = &ts
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// TouchSourceFetched обновляет отметку последней выборки источника.
func (p *Postgres) TouchSourceFetched(ctx context.Context, sourceID int64, at time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `UPDATE sources SET last_fetched_at=$2 WHERE id=$1`, sourceID, at)
	metrics.ObserveNetworkRequest("postgres", "sources_touch", "sources", start, err)
	return err
}

// CreateFetchLog создаёт запись журнала со статусом started.
func (p *Postgres) CreateFetchLog(ctx context.Context, sourceID int64) (int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var id int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO fetch_logs (source_id, status, started_at)
VALUES ($1, $2, now())
RETURNING id
`, sourceID, domain.FetchStarted).Scan(&id)
	metrics.ObserveNetworkRequest("postgres", "fetch_logs_insert", "fetch_logs", start, err)
	return id, err
}

// CompleteFetchLog переводит запись в completed с итоговыми счётчиками.
func (p *Postgres) CompleteFetchLog(ctx context.Context, logID int64, found, newCount, processed int) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE fetch_logs
SET status=$2, articles_found=$3, articles_new=$4, articles_processed=$5, completed_at=now()
WHERE id=$1
`, logID, domain.FetchCompleted, found, newCount, processed)
	metrics.ObserveNetworkRequest("postgres", "fetch_logs_complete", "fetch_logs", start, err)
	return err
}

// FailFetchLog переводит запись в failed с сообщением об ошибке.
func (p *Postgres) FailFetchLog(ctx context.Context, logID int64, message string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE fetch_logs
SET status=$2, error_message=$3, completed_at=now()
WHERE id=$1
`, logID, domain.FetchFailed, message)
	metrics.ObserveNetworkRequest("postgres", "fetch_logs_fail", "fetch_logs", start, err)
	return err
}

// ExistsByURL проверяет наличие статьи с тем же original_url.
func (p *Postgres) ExistsByURL(ctx context.Context, originalURL string) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var exists bool
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM articles WHERE original_url=$1)`, originalURL).Scan(&exists)
	metrics.ObserveNetworkRequest("postgres", "articles_exists_by_url", "articles", start, err)
	return exists, err
}

const insertArticleSQL = `
INSERT INTO articles (
    external_id, original_url, source_id,
    original_title, original_content, original_published_at,
    title, summary, excerpt, thumbnail_url,
    game_slug, category, region, tags, ai_relevance_score, ai_processed,
    status, is_featured, is_pinned, reject_reason, views_count,
    moderated_by, moderated_at, published_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
RETURNING id
`

// InsertArticle сохраняет статью и возвращает её id. Штампы модератора
// и отметка публикации пишутся, когда заданы: ручная статья создаётся
// уже прошедшей модерацию.
func (p *Postgres) InsertArticle(ctx context.Context, a domain.Article) (int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var sourceID sql.NullInt64
	if a.SourceID != nil {
		sourceID = sql.NullInt64{Int64: *a.SourceID, Valid: true}
	}
	var origPublishedAt sql.NullTime
	if a.OriginalPublishedAt != nil {
		origPublishedAt = sql.NullTime{Time: *a.OriginalPublishedAt, Valid: true}
	}
	var moderatedBy sql.NullString
	if a.ModeratedBy != nil {
		moderatedBy = sql.NullString{String: *a.ModeratedBy, Valid: true}
	}
	var moderatedAt sql.NullTime
	if a.ModeratedAt != nil {
		moderatedAt = sql.NullTime{Time: *a.ModeratedAt, Valid: true}
	}
	var publishedAt sql.NullTime
	if a.PublishedAt != nil {
		publishedAt = sql.NullTime{Time: *a.PublishedAt, Valid: true}
	}
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}

	var id int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, insertArticleSQL,
		a.ExternalID, a.OriginalURL, sourceID,
		a.OriginalTitle, a.OriginalContent, origPublishedAt,
		a.Title, a.Summary, a.Excerpt, a.ThumbnailURL,
		a.GameSlug, a.Category, a.Region, tags, a.AIRelevanceScore, a.AIProcessed,
		a.Status, a.IsFeatured, a.IsPinned, a.RejectReason, a.ViewsCount,
		moderatedBy, moderatedAt, publishedAt).Scan(&id)
	metrics.ObserveNetworkRequest("postgres", "articles_insert", "articles", start, err)
	return id, err
}

// GetArticle возвращает статью по id.
func (p *Postgres) GetArticle(ctx context.Context, id int64) (domain.Article, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles WHERE id=$1`, id)
	article, err := scanArticle(row)
	metrics.ObserveNetworkRequest("postgres", "articles_get", "articles", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	return article, err
}

// ListArticles возвращает страницу статей и точное число совпадений.
func (p *Postgres) ListArticles(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, int, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	conditions := make([]string, 0, 6)
	args := make([]any, 0, 6)
	addArg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != nil {
		conditions = append(conditions, "status = "+addArg(*filter.Status))
	}
	if filter.GameSlug != "" {
		conditions = append(conditions, "game_slug = "+addArg(filter.GameSlug))
	}
	if filter.Category != nil {
		conditions = append(conditions, "category = "+addArg(*filter.Category))
	}
	if filter.Region != nil {
		conditions = append(conditions, "region = "+addArg(*filter.Region))
	}
	switch filter.SourceType {
	case "manual":
		conditions = append(conditions, "(source_id IS NULL OR status IN ('approved','published'))")
	case "fetched":
		conditions = append(conditions, "source_id IS NOT NULL AND status IN ('pending','rejected')")
	}
	if filter.Search != "" {
		conditions = append(conditions, "title ILIKE "+addArg("%"+filter.Search+"%"))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM articles`+where, args...).Scan(&total)
	metrics.ObserveNetworkRequest("postgres", "articles_count", "articles", start, err)
	if err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + articleColumns + ` FROM articles` + where +
		` ORDER BY created_at DESC LIMIT ` + addArg(limit) + ` OFFSET ` + addArg(offset)

	start = time.Now()
	rows, err := p.pool.Query(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", "articles_list", "articles", start, err)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, article)
	}
	return articles, total, rows.Err()
}

// UpdateArticle применяет частичное обновление полей. Поля модератора
// штампуются, когда вызывающая сторона передала их явно.
func (p *Postgres) UpdateArticle(ctx context.Context, id int64, upd domain.ArticleUpdate, moderatedBy *string, moderatedAt *time.Time) (domain.Article, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	sets := make([]string, 0, 12)
	args := make([]any, 0, 12)
	addArg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if upd.Title != nil {
		sets = append(sets, "title = "+addArg(*upd.Title))
	}
	if upd.Summary != nil {
		sets = append(sets, "summary = "+addArg(*upd.Summary))
	}
	if upd.Excerpt != nil {
		sets = append(sets, "excerpt = "+addArg(*upd.Excerpt))
	}
	if upd.ThumbnailURL != nil {
		sets = append(sets, "thumbnail_url = "+addArg(*upd.ThumbnailURL))
	}
	if upd.Category != nil {
		sets = append(sets, "category = "+addArg(*upd.Category))
	}
	if upd.Region != nil {
		sets = append(sets, "region = "+addArg(*upd.Region))
	}
	if upd.Tags != nil {
		sets = append(sets, "tags = "+addArg(upd.Tags))
	}
	if upd.Status != nil {
		sets = append(sets, "status = "+addArg(*upd.Status))
		if *upd.Status == domain.StatusPublished {
			// published_at выставляется один раз и больше не меняется.
			sets = append(sets, "published_at = COALESCE(published_at, now())")
		}
	}
	if upd.IsFeatured != nil {
		sets = append(sets, "is_featured = "+addArg(*upd.IsFeatured))
	}
	if upd.IsPinned != nil {
		sets = append(sets, "is_pinned = "+addArg(*upd.IsPinned))
	}
	if upd.RejectReason != nil {
		sets = append(sets, "reject_reason = "+addArg(*upd.RejectReason))
	}
	if moderatedBy != nil {
		sets = append(sets, "moderated_by = "+addArg(*moderatedBy))
	}
	if moderatedAt != nil {
		sets = append(sets, "moderated_at = "+addArg(*moderatedAt))
	}
	if len(sets) == 0 {
		return p.GetArticle(ctx, id)
	}
	sets = append(sets, "updated_at = now()")

	query := `UPDATE articles SET ` + strings.Join(sets, ", ") + ` WHERE id = ` + addArg(id) + ` RETURNING ` + articleColumns

	start := time.Now()
	row := p.pool.QueryRow(ctx, query, args...)
	article, err := scanArticle(row)
	metrics.ObserveNetworkRequest("postgres", "articles_update", "articles", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	return article, err
}

// PublishArticle переводит статью в published и штампует поля модератора.
func (p *Postgres) PublishArticle(ctx context.Context, id int64, moderator string, at time.Time) (domain.Article, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
UPDATE articles
SET status=$2, published_at=COALESCE(published_at, $4), moderated_by=$3, moderated_at=$4, updated_at=now()
WHERE id=$1
RETURNING `+articleColumns, id, domain.StatusPublished, moderator, at)
	article, err := scanArticle(row)
	metrics.ObserveNetworkRequest("postgres", "articles_publish", "articles", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	return article, err
}

// RejectArticle переводит статью в rejected с причиной отказа.
func (p *Postgres) RejectArticle(ctx context.Context, id int64, moderator, reason string, at time.Time) (domain.Article, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
UPDATE articles
SET status=$2, reject_reason=$3, moderated_by=$4, moderated_at=$5, updated_at=now()
WHERE id=$1
RETURNING `+articleColumns, id, domain.StatusRejected, reason, moderator, at)
	article, err := scanArticle(row)
	metrics.ObserveNetworkRequest("postgres", "articles_reject", "articles", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	return article, err
}

// PruneOldPending удаляет для игры pending-статьи из источников, кроме
// keep самых свежих. Ручные и прошедшие модерацию записи не трогаются.
func (p *Postgres) PruneOldPending(ctx context.Context, gameSlug string, keep int) (int, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
DELETE FROM articles
WHERE game_slug=$1 AND status='pending' AND source_id IS NOT NULL
  AND id NOT IN (
    SELECT id FROM articles
    WHERE game_slug=$1 AND status='pending' AND source_id IS NOT NULL
    ORDER BY created_at DESC
    LIMIT $2
  )
`, gameSlug, keep)
	metrics.ObserveNetworkRequest("postgres", "articles_prune", "articles", start, err)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var (
		a           domain.Article
		sourceID    sql.NullInt64
		origPubAt   sql.NullTime
		moderatedBy sql.NullString
		moderatedAt sql.NullTime
		publishedAt sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.ExternalID, &a.OriginalURL, &sourceID,
		&a.OriginalTitle, &a.OriginalContent, &origPubAt,
		&a.Title, &a.Summary, &a.Excerpt, &a.ThumbnailURL,
		&a.GameSlug, &a.Category, &a.Region, &a.Tags, &a.AIRelevanceScore, &a.AIProcessed,
		&a.Status, &a.IsFeatured, &a.IsPinned, &moderatedBy, &moderatedAt, &publishedAt, &a.RejectReason,
		&a.ViewsCount, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Article{}, err
	}
	if sourceID.Valid {
		id := sourceID.Int64
		a.SourceID = &id
	}
	if origPubAt.Valid {
		ts := origPubAt.Time
		a.OriginalPublishedAt = &ts
	}
	if moderatedBy.Valid {
		name := moderatedBy.String
		a.ModeratedBy = &name
	}
	if moderatedAt.Valid {
		ts := moderatedAt.Time
		a.ModeratedAt = &ts
	}
	if publishedAt.Valid {
		ts := publishedAt.Time
		a.PublishedAt = &ts
	}
	return a, nil
}
