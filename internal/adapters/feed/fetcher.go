package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"gamepulse/internal/domain"
	"gamepulse/internal/infra/metrics"
)

const defaultMaxItems = 30

// Fetcher выгружает и разбирает RSS/Atom-ленты через gofeed.
type Fetcher struct {
	parser   *gofeed.Parser
	timeout  time.Duration
	maxItems int
}

// NewFetcher создаёт выгрузчик лент. Таймаут ограничивает сетевой запрос,
// чтобы медленный источник не завесил прогон; userAgent идентифицирует бота.
func NewFetcher(timeout time.Duration, maxItems int, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	parser := gofeed.NewParser()
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	return &Fetcher{parser: parser, timeout: timeout, maxItems: maxItems}
}

// Fetch возвращает не более maxItems самых свежих записей источника
// в порядке, который отдаёт лента.
func (f *Fetcher) Fetch(ctx context.Context, src domain.Source) ([]domain.FeedItem, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	parsed, err := f.parser.ParseURLWithContext(src.URL, fetchCtx)
	metrics.ObserveNetworkRequest("feed", "parse_url", src.Name, start, err)
	if err != nil {
		return nil, fmt.Errorf("разбор ленты %s: %w", src.Name, err)
	}

	entries := parsed.Items
	if len(entries) > f.maxItems {
		entries = entries[:f.maxItems]
	}

	items := make([]domain.FeedItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, domain.FeedItem{
			Title:          entry.Title,
			Link:           entry.Link,
			GUID:           entry.GUID,
			Published:      entry.PublishedParsed,
			Content:        entry.Content,
			ContentSnippet: entry.Description,
			EnclosureURL:   firstEnclosure(entry),
		})
	}
	return items, nil
}

func firstEnclosure(entry *gofeed.Item) string {
	for _, enc := range entry.Enclosures {
		if enc != nil && enc.URL != "" {
			return enc.URL
		}
	}
	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}
	return ""
}
