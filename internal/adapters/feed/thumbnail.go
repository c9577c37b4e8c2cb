package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FirstImageURL извлекает адрес первой картинки из HTML-содержимого записи.
// Возвращает пустую строку, если картинок нет или разметка не разбирается.
func FirstImageURL(html string) string {
	if !strings.Contains(html, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return ""
	}
	return src
}
