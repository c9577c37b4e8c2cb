package classify

import (
	"context"
	"testing"

	"gamepulse/internal/domain"
)

func TestDetectCategoryOrder(t *testing.T) {
	// Patch идёт раньше tournament: при совпадении обоих побеждает patch.
	got := DetectCategory("patch notes: new tournament map")
	if got != domain.CategoryPatch {
		t.Fatalf("ожидали patch, получили %s", got)
	}
}

func TestDetectCategory(t *testing.T) {
	cases := []struct {
		text string
		want domain.Category
	}{
		{"hotfix for agents", domain.CategoryPatch},
		{"masters istanbul finals", domain.CategoryTournament},
		{"lan party announced", domain.CategoryEvent},
		{"player signs with new org", domain.CategoryRoster},
		{"current meta explained", domain.CategoryMeta},
		{"new season starts monday", domain.CategoryUpdate},
		{"interview with a coach", domain.CategoryGeneral},
	}
	for _, tc := range cases {
		if got := DetectCategory(tc.text); got != tc.want {
			t.Fatalf("текст %q: ожидали %s, получили %s", tc.text, tc.want, got)
		}
	}
}

func TestDetectRegion(t *testing.T) {
	if got := DetectRegion("nodwin gaming hosts a qualifier"); got != domain.RegionIndia {
		t.Fatalf("ожидали india, получили %s", got)
	}
	if got := DetectRegion("global qualifier in berlin"); got != domain.RegionGlobal {
		t.Fatalf("ожидали global, получили %s", got)
	}
}

func TestClassifySourceRegionOverride(t *testing.T) {
	tagger := NewHeuristicTagger()
	india := domain.RegionIndia

	// Текст без локальных маркеров, но источник индийский: override сильнее.
	got := tagger.Classify(context.Background(), "Valorant patch 9.01", "agent balance changes", "valorant", &india)
	if got.Region != domain.RegionIndia {
		t.Fatalf("ожидали регион источника india, получили %s", got.Region)
	}
	if got.Category != domain.CategoryPatch {
		t.Fatalf("ожидали patch, получили %s", got.Category)
	}
}

func TestSynthesizeTags(t *testing.T) {
	tags := SynthesizeTags(domain.CategoryTournament, domain.RegionIndia)
	if len(tags) != 2 || tags[0] != "TOURNAMENT" || tags[1] != "INDIA" {
		t.Fatalf("ожидали [TOURNAMENT INDIA], получили %v", tags)
	}

	tags = SynthesizeTags(domain.CategoryGeneral, domain.RegionGlobal)
	if len(tags) != 1 || tags[0] != "GENERAL" {
		t.Fatalf("ожидали [GENERAL], получили %v", tags)
	}
}
