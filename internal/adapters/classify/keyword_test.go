package classify

import (
	"testing"

	"gamepulse/internal/domain"
)

func domainMatch(score int) domain.GameMatch {
	return domain.GameMatch{Slug: "valorant", Score: score}
}

func TestMatchConfidentScore(t *testing.T) {
	c := NewKeywordClassifier()

	match := c.Match("Valorant Patch 9.01 Notes", "Riot Games обновила баланс агентов")
	if match == nil {
		t.Fatalf("ожидали уверенное совпадение")
	}
	if match.Slug != "valorant" {
		t.Fatalf("ожидали valorant, получили %s", match.Slug)
	}
	if match.Score < confidentScore {
		t.Fatalf("ожидали балл не ниже %d, получили %d", confidentScore, match.Score)
	}
}

func TestMatchConfidentIgnoresForeignGames(t *testing.T) {
	c := NewKeywordClassifier()

	// Уверенный балл принимается даже при упоминании чужого тайтла.
	match := c.Match("Valorant x Fortnite: кроссовер скинов", "")
	if match == nil {
		t.Fatalf("ожидали совпадение при уверенном балле")
	}
	if match.Slug != "valorant" {
		t.Fatalf("ожидали valorant, получили %s", match.Slug)
	}
}

func TestMatchWeakScoreRejectedOnForeignGame(t *testing.T) {
	c := NewKeywordClassifier()

	// Слабое совпадение (riot games = 1) при упоминании Fortnite отклоняется.
	match := c.Match("Fortnite news", "коллаборация с riot games")
	if match != nil {
		t.Fatalf("ожидали отклонение слабого совпадения, получили %s", match.Slug)
	}
}

func TestMatchWeakScoreAccepted(t *testing.T) {
	c := NewKeywordClassifier()

	match := c.Match("Новости киберспорта", "riot games анонсировала изменения")
	if match == nil {
		t.Fatalf("ожидали слабое совпадение")
	}
	if match.Slug != "valorant" || match.Score != 1 {
		t.Fatalf("ожидали valorant с баллом 1, получили %s/%d", match.Slug, match.Score)
	}
}

func TestMatchNoKeywords(t *testing.T) {
	c := NewKeywordClassifier()

	if match := c.Match("Обзор новой клавиатуры", "механика, свитчи, подсветка"); match != nil {
		t.Fatalf("не ожидали совпадения, получили %s", match.Slug)
	}
}

func TestMatchTieBreakFirstRegistered(t *testing.T) {
	c := NewKeywordClassifier()

	// vct (valorant, 2) и krafton (bgmi, 2) дают равный балл:
	// побеждает игра, зарегистрированная раньше.
	match := c.Match("VCT и Krafton объявили о партнёрстве", "")
	if match == nil {
		t.Fatalf("ожидали совпадение")
	}
	if match.Slug != "valorant" {
		t.Fatalf("при равенстве баллов ожидали valorant, получили %s", match.Slug)
	}
}

func TestMatchPicksHighestScore(t *testing.T) {
	c := NewKeywordClassifier()

	match := c.Match("BGMI против Dota", "battlegrounds mobile india turnir, dota упомянута вскользь")
	if match == nil {
		t.Fatalf("ожидали совпадение")
	}
	if match.Slug != "bgmi" {
		t.Fatalf("ожидали bgmi с максимальным баллом, получили %s", match.Slug)
	}
}

func TestRelevanceScoreNormalization(t *testing.T) {
	c := NewKeywordClassifier()

	cases := []struct {
		score int
		want  float64
	}{
		{1, 0.1},
		{3, 0.3},
		{10, 1.0},
		{15, 1.0},
	}
	for _, tc := range cases {
		got := c.RelevanceScore(domainMatch(tc.score))
		if got != tc.want {
			t.Fatalf("балл %d: ожидали %.1f, получили %.2f", tc.score, tc.want, got)
		}
	}
}

func TestRelevanceScoreMonotonic(t *testing.T) {
	c := NewKeywordClassifier()

	prev := -1.0
	for score := 0; score <= 10; score++ {
		got := c.RelevanceScore(domainMatch(score))
		if got < prev {
			t.Fatalf("нормализация не монотонна: балл %d дал %.2f после %.2f", score, got, prev)
		}
		prev = got
	}
}

func TestSupportedSlugsOrder(t *testing.T) {
	slugs := SupportedSlugs()
	want := []string{"valorant", "bgmi", "cs2", "dota2"}
	if len(slugs) != len(want) {
		t.Fatalf("ожидали %d игр, получили %d", len(want), len(slugs))
	}
	for i := range want {
		if slugs[i] != want[i] {
			t.Fatalf("позиция %d: ожидали %s, получили %s", i, want[i], slugs[i])
		}
	}
}
