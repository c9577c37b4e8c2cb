package repo

import (
	"fmt"
	"strings"
	"testing"
)

func TestInsertArticleSQLKeepsModerationStamps(t *testing.T) {
	// Ручная статья создаётся со штампами модератора и, для published,
	// с отметкой публикации: вставка обязана их сохранять.
	for _, column := range []string{"moderated_by", "moderated_at", "published_at"} {
		if !strings.Contains(insertArticleSQL, column) {
			t.Fatalf("вставка статьи должна писать колонку %s", column)
		}
	}
}

func TestInsertArticleSQLPlaceholdersMatchColumns(t *testing.T) {
	open := strings.Index(insertArticleSQL, "(")
	closing := strings.Index(insertArticleSQL, ")")
	if open < 0 || closing < open {
		t.Fatalf("не удалось разобрать список колонок")
	}
	columns := strings.Count(insertArticleSQL[open:closing], ",") + 1

	for i := 1; i <= columns; i++ {
		if !strings.Contains(insertArticleSQL, fmt.Sprintf("$%d", i)) {
			t.Fatalf("нет плейсхолдера $%d для %d колонок", i, columns)
		}
	}
	if strings.Contains(insertArticleSQL, fmt.Sprintf("$%d", columns+1)) {
		t.Fatalf("плейсхолдеров больше, чем колонок (%d)", columns)
	}
}
