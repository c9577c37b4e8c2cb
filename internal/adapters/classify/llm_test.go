package classify

import (
	"context"
	"errors"
	"testing"

	"gamepulse/internal/domain"
	openai "gamepulse/internal/infra/openai"
)

type fakeChatClient struct {
	content string
	err     error
}

func (f *fakeChatClient) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatMessage{Content: f.content}},
		},
	}, nil
}

func TestLLMTaggerClassify(t *testing.T) {
	client := &fakeChatClient{content: `{"category":"tournament","region":"india","tags":["vct","Skyesports"]}`}
	tagger := NewLLMTagger(client, "test-model", 0, nil)

	got := tagger.Classify(context.Background(), "Skyesports Masters", "финал в Дели", "valorant", nil)
	if got.Category != domain.CategoryTournament {
		t.Fatalf("ожидали tournament, получили %s", got.Category)
	}
	if got.Region != domain.RegionIndia {
		t.Fatalf("ожидали india, получили %s", got.Region)
	}
	// Синтезированные теги идут первыми, свободные теги модели нормализуются.
	want := []string{"TOURNAMENT", "INDIA", "VCT", "SKYESPORTS"}
	if len(got.Tags) != len(want) {
		t.Fatalf("ожидали теги %v, получили %v", want, got.Tags)
	}
	for i := range want {
		if got.Tags[i] != want[i] {
			t.Fatalf("тег %d: ожидали %s, получили %s", i, want[i], got.Tags[i])
		}
	}
}

func TestLLMTaggerFallbackOnError(t *testing.T) {
	client := &fakeChatClient{err: errors.New("timeout")}
	tagger := NewLLMTagger(client, "test-model", 0, NewHeuristicTagger())

	got := tagger.Classify(context.Background(), "Valorant patch notes", "", "valorant", nil)
	if got.Category != domain.CategoryPatch {
		t.Fatalf("ожидали откат на эвристику с patch, получили %s", got.Category)
	}
}

func TestLLMTaggerFallbackOnMalformedJSON(t *testing.T) {
	client := &fakeChatClient{content: "here is your classification: tournament"}
	tagger := NewLLMTagger(client, "test-model", 0, NewHeuristicTagger())

	got := tagger.Classify(context.Background(), "Masters finals", "", "valorant", nil)
	if got.Category != domain.CategoryTournament {
		t.Fatalf("ожидали откат на эвристику с tournament, получили %s", got.Category)
	}
}

func TestLLMTaggerFallbackOnInvalidEnum(t *testing.T) {
	client := &fakeChatClient{content: `{"category":"breaking-news","region":"global","tags":[]}`}
	tagger := NewLLMTagger(client, "test-model", 0, NewHeuristicTagger())

	got := tagger.Classify(context.Background(), "Valorant hotfix", "", "valorant", nil)
	if got.Category != domain.CategoryPatch {
		t.Fatalf("значение вне перечисления должно откатывать на эвристику, получили %s", got.Category)
	}
}

func TestLLMTaggerSourceRegionOverride(t *testing.T) {
	client := &fakeChatClient{content: `{"category":"general","region":"global","tags":[]}`}
	tagger := NewLLMTagger(client, "test-model", 0, nil)
	india := domain.RegionIndia

	got := tagger.Classify(context.Background(), "Interview", "", "valorant", &india)
	if got.Region != domain.RegionIndia {
		t.Fatalf("override источника должен быть сильнее ответа модели, получили %s", got.Region)
	}
}
