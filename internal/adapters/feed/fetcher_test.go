package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gamepulse/internal/domain"
)

func rssBody(items int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>test</title>`)
	for i := 0; i < items; i++ {
		fmt.Fprintf(&b, `<item><title>Новость %d</title><link>https://example.com/news/%d</link><guid>guid-%d</guid><description>описание %d</description><enclosure url="https://example.com/img/%d.jpg" type="image/jpeg"/></item>`, i, i, i, i, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssBody(3)))
	}))
	defer srv.Close()

	fetcher := NewFetcher(5*time.Second, 30, "gamepulse-test/1.0")
	items, err := fetcher.Fetch(context.Background(), domain.Source{Name: "test", URL: srv.URL})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("ожидали 3 записи, получили %d", len(items))
	}
	if items[0].Link != "https://example.com/news/0" {
		t.Fatalf("неожиданная ссылка: %s", items[0].Link)
	}
	if items[0].GUID != "guid-0" {
		t.Fatalf("неожиданный guid: %s", items[0].GUID)
	}
	if items[0].EnclosureURL != "https://example.com/img/0.jpg" {
		t.Fatalf("неожиданный enclosure: %s", items[0].EnclosureURL)
	}
}

func TestFetchCapsItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rssBody(40)))
	}))
	defer srv.Close()

	fetcher := NewFetcher(5*time.Second, 30, "")
	items, err := fetcher.Fetch(context.Background(), domain.Source{Name: "test", URL: srv.URL})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(items) != 30 {
		t.Fatalf("ожидали усечение до 30 записей, получили %d", len(items))
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(rssBody(1)))
	}))
	defer srv.Close()

	fetcher := NewFetcher(50*time.Millisecond, 30, "")
	if _, err := fetcher.Fetch(context.Background(), domain.Source{Name: "slow", URL: srv.URL}); err == nil {
		t.Fatalf("ожидали ошибку таймаута")
	}
}

func TestFetchBadFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>это не лента</html>"))
	}))
	defer srv.Close()

	fetcher := NewFetcher(5*time.Second, 30, "")
	if _, err := fetcher.Fetch(context.Background(), domain.Source{Name: "bad", URL: srv.URL}); err == nil {
		t.Fatalf("ожидали ошибку разбора")
	}
}

func TestFirstImageURL(t *testing.T) {
	html := `<p>текст</p><img src="https://example.com/a.png"/><img src="https://example.com/b.png"/>`
	if got := FirstImageURL(html); got != "https://example.com/a.png" {
		t.Fatalf("ожидали первую картинку, получили %q", got)
	}

	if got := FirstImageURL("<p>без картинок</p>"); got != "" {
		t.Fatalf("ожидали пустую строку, получили %q", got)
	}

	// Относительные пути не годятся для превью.
	if got := FirstImageURL(`<img src="/local.png"/>`); got != "" {
		t.Fatalf("относительный адрес должен отбрасываться, получили %q", got)
	}
}
