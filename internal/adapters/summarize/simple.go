package summarize

import (
	"context"
	"strings"
	"unicode/utf8"

	"gamepulse/internal/domain"
)

// excerptLimit — длина превью статьи в символах.
const excerptLimit = 280

// SimpleSummarizer строит заголовок и выжимку эвристикой: заголовок
// остаётся оригинальным, выжимка — первые предложения текста.
type SimpleSummarizer struct{}

var _ domain.Summarizer = (*SimpleSummarizer)(nil)

// NewSimple создаёт Summarizer.
func NewSimple() *SimpleSummarizer {
	return &SimpleSummarizer{}
}

// Summarize возвращает детерминированный черновик статьи.
func (s *SimpleSummarizer) Summarize(_ context.Context, title, content, _ string) domain.ArticleDraft {
	return domain.ArticleDraft{
		Title:   strings.TrimSpace(title),
		Summary: firstSentences(content, 2, 320),
		Excerpt: Excerpt(content),
	}
}

// Excerpt обрезает текст до первых 280 символов.
func Excerpt(content string) string {
	return truncate(strings.TrimSpace(content), excerptLimit)
}

func firstSentences(text string, count, limit int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	var b strings.Builder
	taken := 0
	for _, chunk := range strings.SplitAfter(text, ". ") {
		if taken == count {
			break
		}
		b.WriteString(chunk)
		taken++
	}
	return truncate(strings.TrimSpace(b.String()), limit)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
