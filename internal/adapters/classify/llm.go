package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gamepulse/internal/domain"
	"gamepulse/internal/infra/metrics"
	openai "gamepulse/internal/infra/openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMTagger размечает статью через Chat Completions. Любая ошибка пути —
// таймаут, кривой JSON, значение вне перечислений — приводит к откату на
// детерминированный разметчик и никогда не всплывает наружу.
type LLMTagger struct {
	client   chatClient
	model    string
	timeout  time.Duration
	fallback domain.TextClassifier
}

var _ domain.TextClassifier = (*LLMTagger)(nil)

// NewLLMTagger создаёт LLM-разметчик с обязательным откатом.
func NewLLMTagger(client chatClient, model string, timeout time.Duration, fallback domain.TextClassifier) *LLMTagger {
	if model == "" {
		model = "gpt-4.1-mini"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if fallback == nil {
		fallback = NewHeuristicTagger()
	}
	return &LLMTagger{client: client, model: model, timeout: timeout, fallback: fallback}
}

type classificationPayload struct {
	Category string   `json:"category"`
	Region   string   `json:"region"`
	Tags     []string `json:"tags"`
}

// Classify запрашивает у модели рубрику, регион и свободные теги.
// Региональный override источника всегда сильнее ответа модели.
func (t *LLMTagger) Classify(ctx context.Context, title, content, gameSlug string, sourceRegion *domain.Region) domain.Classification {
	result, err := t.classify(ctx, title, content, gameSlug)
	if err != nil {
		metrics.LLMFallbacks.WithLabelValues("classify").Inc()
		return t.fallback.Classify(ctx, title, content, gameSlug, sourceRegion)
	}
	if sourceRegion != nil && sourceRegion.Valid() {
		result.Region = *sourceRegion
	}
	return result
}

func (t *LLMTagger) classify(ctx context.Context, title, content, gameSlug string) (domain.Classification, error) {
	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf(`Classify an esports news article about the game %q.
Return JSON of the form {"category": "...", "region": "...", "tags": ["..."]} with no explanation.
category must be one of: patch, tournament, event, roster, meta, update, general.
region must be one of: india, global.
tags is a short list of free-form uppercase tags.
Title: %s
Content:
%s`, gameSlug, title, clipRunes(content, 2000))

	req := openai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: 0.2,
		MaxTokens:   200,
		Messages: []openai.ChatMessage{
			{
				Role:    openai.RoleSystem,
				Content: "You are a strict esports news classifier. Use only the provided enums and never invent new ones.",
			},
			{
				Role:    openai.RoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	}

	resp, err := t.client.CreateChatCompletion(reqCtx, req)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Classification{}, fmt.Errorf("openai completion: пустой ответ")
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	var parsed classificationPayload
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return domain.Classification{}, fmt.Errorf("распаковка ответа LLM: %w", err)
	}

	category := domain.Category(strings.ToLower(strings.TrimSpace(parsed.Category)))
	if !category.Valid() {
		return domain.Classification{}, fmt.Errorf("недопустимая рубрика %q", parsed.Category)
	}
	region := domain.Region(strings.ToLower(strings.TrimSpace(parsed.Region)))
	if !region.Valid() {
		return domain.Classification{}, fmt.Errorf("недопустимый регион %q", parsed.Region)
	}

	tags := SynthesizeTags(category, region)
	for _, tag := range parsed.Tags {
		trimmed := strings.ToUpper(strings.TrimSpace(tag))
		if trimmed == "" || containsTag(tags, trimmed) {
			continue
		}
		tags = append(tags, trimmed)
	}

	return domain.Classification{Category: category, Region: region, Tags: tags}, nil
}

func containsTag(tags []string, candidate string) bool {
	for _, tag := range tags {
		if tag == candidate {
			return true
		}
	}
	return false
}

func clipRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
