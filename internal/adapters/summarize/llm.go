package summarize

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

// LLMSummarizer строит редакторский черновик через Chat Completions.
// При любой ошибке возвращает результат детерминированного суммаризатора.
type LLMSummarizer struct {
	client   chatClient
	model    string
	timeout  time.Duration
	fallback domain.Summarizer
}

var _ domain.Summarizer = (*LLMSummarizer)(nil)

// NewLLM создаёт LLM-суммаризатор с обязательным откатом.
func NewLLM(client chatClient, model string, timeout time.Duration, fallback domain.Summarizer) *LLMSummarizer {
	if model == "" {
		model = "gpt-4.1-mini"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if fallback == nil {
		fallback = NewSimple()
	}
	return &LLMSummarizer{client: client, model: model, timeout: timeout, fallback: fallback}
}

type draftPayload struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Excerpt string `json:"excerpt"`
}

// Summarize запрашивает у модели заголовок, выжимку и превью.
func (s *LLMSummarizer) Summarize(ctx context.Context, title, content, gameSlug string) domain.ArticleDraft {
	draft, err := s.summarize(ctx, title, content, gameSlug)
	if err != nil {
		metrics.LLMFallbacks.WithLabelValues("summarize").Inc()
		return s.fallback.Summarize(ctx, title, content, gameSlug)
	}
	return draft
}

func (s *LLMSummarizer) summarize(ctx context.Context, title, content, gameSlug string) (domain.ArticleDraft, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf(`Rewrite an esports news article about the game %q for a gaming community site.
Return JSON of the form {"title": "...", "summary": "...", "excerpt": "..."} with no explanation.
title is a concise headline, summary is 2-3 sentences, excerpt is at most 280 characters.
Original title: %s
Original content:
%s`, gameSlug, title, clipRunes(content, 3000))

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.3,
		MaxTokens:   400,
		Messages: []openai.ChatMessage{
			{
				Role:    openai.RoleSystem,
				Content: "You are a news editor. Keep the facts of the original text and never invent new ones.",
			},
			{
				Role:    openai.RoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	}

	resp, err := s.client.CreateChatCompletion(reqCtx, req)
	if err != nil {
		return domain.ArticleDraft{}, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.ArticleDraft{}, fmt.Errorf("openai completion: пустой ответ")
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	var parsed draftPayload
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return domain.ArticleDraft{}, fmt.Errorf("распаковка ответа LLM: %w", err)
	}

	draft := domain.ArticleDraft{
		Title:   strings.TrimSpace(parsed.Title),
		Summary: strings.TrimSpace(parsed.Summary),
		Excerpt: truncate(strings.TrimSpace(parsed.Excerpt), excerptLimit),
	}
	if draft.Title == "" {
		draft.Title = strings.TrimSpace(title)
	}
	if draft.Excerpt == "" {
		draft.Excerpt = Excerpt(content)
	}
	return draft, nil
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
