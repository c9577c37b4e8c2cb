package classify

import (
	"strings"

	"gamepulse/internal/domain"
)

const (
	// confidentScore — порог уверенного совпадения: при нём игра
	// принимается даже при упоминании посторонних тайтлов.
	confidentScore = 3
	// weakScore — минимальный балл слабого совпадения.
	weakScore = 1
	// scoreNorm — делитель нормализации балла в ai_relevance_score.
	scoreNorm = 10.0
)

type weightedKeyword struct {
	phrase string
	weight int
}

type gameProfile struct {
	slug     string
	keywords []weightedKeyword
}

// Порядок регистрации игр фиксирован: при равенстве баллов побеждает
// игра, зарегистрированная раньше.
var supportedGames = []gameProfile{
	{
		slug: "valorant",
		keywords: []weightedKeyword{
			{phrase: "valorant", weight: 3},
			{phrase: "vct", weight: 2},
			{phrase: "riot games", weight: 1},
			{phrase: "agent balance", weight: 1},
			{phrase: "radiant", weight: 1},
		},
	},
	{
		slug: "bgmi",
		keywords: []weightedKeyword{
			{phrase: "bgmi", weight: 3},
			{phrase: "battlegrounds mobile india", weight: 3},
			{phrase: "krafton", weight: 2},
			{phrase: "pubg mobile", weight: 2},
			{phrase: "erangel", weight: 1},
		},
	},
	{
		slug: "cs2",
		keywords: []weightedKeyword{
			{phrase: "counter-strike", weight: 3},
			{phrase: "counter strike", weight: 3},
			{phrase: "cs2", weight: 3},
			{phrase: "csgo", weight: 2},
			{phrase: "premier mode", weight: 1},
		},
	},
	{
		slug: "dota2",
		keywords: []weightedKeyword{
			{phrase: "dota 2", weight: 3},
			{phrase: "dota", weight: 2},
			{phrase: "the international", weight: 2},
			{phrase: "battle pass", weight: 1},
		},
	},
}

// Упоминание игры вне поддерживаемого набора отклоняет статью,
// если балл поддерживаемой игры не дотянул до уверенного порога.
var foreignGameKeywords = []string{
	"fortnite",
	"apex legends",
	"league of legends",
	"overwatch",
	"rocket league",
	"minecraft",
	"roblox",
	"warzone",
	"ea fc",
	"fifa",
	"gta",
}

// KeywordClassifier определяет игру по взвешенным ключевым словам.
// Дизайн precision-over-recall: неоднозначные статьи отбрасываются,
// а не помечаются наугад.
type KeywordClassifier struct {
	games   []gameProfile
	foreign []string
}

var _ domain.GameClassifier = (*KeywordClassifier)(nil)

// NewKeywordClassifier создаёт классификатор со встроенными таблицами.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{games: supportedGames, foreign: foreignGameKeywords}
}

// Match возвращает игру с максимальным баллом либо nil:
//  1. балл >= confidentScore — принимаем независимо от чужих тайтлов;
//  2. иначе упоминание чужой игры — отклоняем;
//  3. иначе балл >= weakScore — принимаем слабое совпадение;
//  4. иначе совпадения нет.
func (c *KeywordClassifier) Match(title, content string) *domain.GameMatch {
	text := strings.ToLower(title + " " + content)

	best := domain.GameMatch{}
	for _, game := range c.games {
		score := 0
		for _, kw := range game.keywords {
			if strings.Contains(text, kw.phrase) {
				score += kw.weight
			}
		}
		if score > best.Score {
			best = domain.GameMatch{Slug: game.slug, Score: score}
		}
	}

	if best.Score >= confidentScore {
		return &best
	}
	for _, phrase := range c.foreign {
		if strings.Contains(text, phrase) {
			return nil
		}
	}
	if best.Score >= weakScore {
		return &best
	}
	return nil
}

// RelevanceScore нормализует сырой балл в диапазон 0..1.
func (c *KeywordClassifier) RelevanceScore(match domain.GameMatch) float64 {
	score := float64(match.Score) / scoreNorm
	if score > 1 {
		return 1
	}
	return score
}

// SupportedSlugs возвращает слаги поддерживаемых игр в порядке регистрации.
func SupportedSlugs() []string {
	slugs := make([]string, 0, len(supportedGames))
	for _, game := range supportedGames {
		slugs = append(slugs, game.slug)
	}
	return slugs
}
