package classify

import (
	"context"
	"strings"

	"gamepulse/internal/domain"
)

// indiaKeywords — маркеры локального региона: топонимы, организаторы,
// клубы и валюта. Любое совпадение переключает регион на india.
var indiaKeywords = []string{
	"india",
	"indian",
	"mumbai",
	"delhi",
	"bengaluru",
	"hyderabad",
	"chennai",
	"kolkata",
	"nodwin",
	"skyesports",
	"s8ul",
	"godlike",
	"velocity gaming",
	"inr",
}

type categoryRule struct {
	category domain.Category
	keywords []string
}

// Правила рубрик проверяются строго по порядку: рубрики не взаимоисключающие
// по ключевым словам, побеждает первое совпадение.
var categoryRules = []categoryRule{
	{domain.CategoryPatch, []string{"patch", "update notes", "hotfix"}},
	{domain.CategoryTournament, []string{"tournament", "championship", "masters", "finals"}},
	{domain.CategoryEvent, []string{"event", "lan"}},
	{domain.CategoryRoster, []string{"roster", "transfer", "signs", "benched"}},
	{domain.CategoryMeta, []string{"meta", "tier list", "best agents"}},
	{domain.CategoryUpdate, []string{"update", "new season", "new map"}},
}

// HeuristicTagger размечает статью детерминированными правилами.
// Всегда доступен и служит откатом для LLM-пути.
type HeuristicTagger struct{}

var _ domain.TextClassifier = (*HeuristicTagger)(nil)

// NewHeuristicTagger создаёт разметчик.
func NewHeuristicTagger() *HeuristicTagger {
	return &HeuristicTagger{}
}

// Classify определяет рубрику и регион по тексту и синтезирует теги.
// Региональный override источника всегда сильнее эвристики.
func (t *HeuristicTagger) Classify(_ context.Context, title, content, _ string, sourceRegion *domain.Region) domain.Classification {
	text := strings.ToLower(title + " " + content)

	category := DetectCategory(text)
	region := DetectRegion(text)
	if sourceRegion != nil && sourceRegion.Valid() {
		region = *sourceRegion
	}

	return domain.Classification{
		Category: category,
		Region:   region,
		Tags:     SynthesizeTags(category, region),
	}
}

// DetectCategory применяет упорядоченные правила к lowercased-тексту.
func DetectCategory(text string) domain.Category {
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return domain.CategoryGeneral
}

// DetectRegion возвращает india при любом совпадении локального маркера,
// иначе глобальный регион по умолчанию.
func DetectRegion(text string) domain.Region {
	for _, kw := range indiaKeywords {
		if strings.Contains(text, kw) {
			return domain.RegionIndia
		}
	}
	return domain.RegionGlobal
}

// SynthesizeTags собирает теги: рубрика в верхнем регистре всегда,
// маркер региона — когда определён узкий регион.
func SynthesizeTags(category domain.Category, region domain.Region) []string {
	tags := []string{strings.ToUpper(string(category))}
	if region == domain.RegionIndia {
		tags = append(tags, "INDIA")
	}
	return tags
}
