package domain

import "time"

// ArticleStatus описывает состояние статьи в модерационном цикле.
type ArticleStatus string

const (
	StatusPending   ArticleStatus = "pending"
	StatusApproved  ArticleStatus = "approved"
	StatusRejected  ArticleStatus = "rejected"
	StatusPublished ArticleStatus = "published"
)

// Valid проверяет, что статус входит в допустимый набор.
func (s ArticleStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusPublished:
		return true
	}
	return false
}

// Category описывает рубрику статьи.
type Category string

const (
	CategoryPatch      Category = "patch"
	CategoryTournament Category = "tournament"
	CategoryEvent      Category = "event"
	CategoryRoster     Category = "roster"
	CategoryMeta       Category = "meta"
	CategoryUpdate     Category = "update"
	CategoryGeneral    Category = "general"
)

// Valid проверяет, что рубрика входит в допустимый набор.
func (c Category) Valid() bool {
	switch c {
	case CategoryPatch, CategoryTournament, CategoryEvent, CategoryRoster, CategoryMeta, CategoryUpdate, CategoryGeneral:
		return true
	}
	return false
}

// Region описывает регион статьи.
type Region string

const (
	RegionIndia  Region = "india"
	RegionGlobal Region = "global"
)

// Valid проверяет, что регион входит в допустимый набор.
func (r Region) Valid() bool {
	return r == RegionIndia || r == RegionGlobal
}

// Source описывает настроенный RSS-источник. Пайплайн читает источники,
// но никогда их не создаёт: этим занимается оператор.
type Source struct {
	ID            int64
	Name          string
	URL           string
	Region        *Region
	IsActive      bool
	LastFetchedAt *time.Time
	CreatedAt     time.Time
}

// FetchLogStatus описывает состояние записи журнала выборки.
type FetchLogStatus string

const (
	FetchStarted   FetchLogStatus = "started"
	FetchCompleted FetchLogStatus = "completed"
	FetchFailed    FetchLogStatus = "failed"
)

// FetchLog фиксирует одну попытку выборки источника в рамках прогона.
// Запись создаётся до обращения к источнику и обновляется ровно один раз.
type FetchLog struct {
	ID                int64
	SourceID          int64
	Status            FetchLogStatus
	ArticlesFound     int
	ArticlesNew       int
	ArticlesProcessed int
	ErrorMessage      string
	StartedAt         time.Time
	CompletedAt       *time.Time
}

// Article — центральная сущность платформы: новость, полученная из
// источника или созданная оператором вручную (SourceID == nil).
type Article struct {
	ID         int64
	ExternalID string
	// OriginalURL — ключ дедупликации: среди выгруженных статей
	// существует не более одной записи на URL.
	OriginalURL string
	SourceID    *int64

	OriginalTitle       string
	OriginalContent     string
	OriginalPublishedAt *time.Time

	Title        string
	Summary      string
	Excerpt      string
	ThumbnailURL string

	GameSlug         string
	Category         Category
	Region           Region
	Tags             []string
	AIRelevanceScore float64
	AIProcessed      bool

	Status       ArticleStatus
	IsFeatured   bool
	IsPinned     bool
	ModeratedBy  *string
	ModeratedAt  *time.Time
	PublishedAt  *time.Time
	RejectReason string

	ViewsCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Fetched сообщает, пришла ли статья из источника.
func (a Article) Fetched() bool {
	return a.SourceID != nil
}

// FeedItem представляет одну запись ленты после разбора.
type FeedItem struct {
	Title          string
	Link           string
	GUID           string
	Published      *time.Time
	Content        string
	ContentSnippet string
	EnclosureURL   string
}

// Identity возвращает стабильный идентификатор записи: ссылка, затем GUID.
// Пустая строка означает, что запись нельзя дедуплицировать и она пропускается.
func (i FeedItem) Identity() string {
	if i.Link != "" {
		return i.Link
	}
	return i.GUID
}

// GameMatch — результат определения игры: слаг и сырой балл ключевых слов.
type GameMatch struct {
	Slug  string
	Score int
}

// Classification — итог разметки статьи перед сохранением.
type Classification struct {
	Category Category
	Region   Region
	Tags     []string
}

// ArticleDraft — заголовок и выжимка, построенные суммаризатором.
type ArticleDraft struct {
	Title   string
	Summary string
	Excerpt string
}

// RunSummary — итог одного прогона выборки по всем источникам.
// Частичный успех — штатное завершение: ошибки отдельных источников
// складываются в Errors, не прерывая прогон.
type RunSummary struct {
	RunID            string
	SourcesProcessed int
	TotalFound       int
	TotalNew         int
	TotalRemoved     int
	Errors           []string
	StartedAt        time.Time
	FinishedAt       time.Time
}

// IngestJobCause описывает причину постановки задачи прогона.
type IngestJobCause string

const (
	IngestCauseScheduled IngestJobCause = "scheduled"
	IngestCauseManual    IngestJobCause = "manual"
)

// IngestJob — задача на прогон выборки, передаваемая через очередь.
type IngestJob struct {
	ID          string         `json:"id"`
	Cause       IngestJobCause `json:"cause"`
	RequestedBy string         `json:"requested_by,omitempty"`
	RequestedAt time.Time      `json:"requested_at"`
}
