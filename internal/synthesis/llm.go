package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eli5/internal/domain"
)

type ChatClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

// LLM asks an OpenAI-compatible chat model for the explanation.
type LLM struct {
	client ChatClient
	model  string
}

func NewLLM(client ChatClient, model string) (*LLM, error) {
	if client == nil {
		return nil, errors.New("synthesis: chat client must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("synthesis: model must not be empty")
	}
	return &LLM{client: client, model: model}, nil
}

func (l *LLM) Name() string  { return "llm" }
func (l *LLM) Model() string { return l.model }

func (l *LLM) Synthesize(ctx context.Context, req domain.ExplainRequest) (string, error) {
	answer, err := l.client.Chat(ctx, l.model, buildMessages(req))
	if err != nil {
		return "", fmt.Errorf("synthesis: chat: %w", err)
	}
	return answer, nil
}

func buildMessages(req domain.ExplainRequest) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: "system", Content: systemPrompt(req.Level, req.Style)},
		{Role: "user", Content: userPrompt(req.Question, req.Context)},
	}
}

func systemPrompt(level domain.Level, style domain.Style) string {
	return fmt.Sprintf("You are a helpful explainer. %s%s Keep your answer focused and clear.",
		level.Instruction(), style.Instruction())
}

func userPrompt(question, context string) string {
	if domain.IsFallbackContext(context) {
		return question
	}
	return fmt.Sprintf("Context from Wikipedia:\n%s\n\nQuestion: %s", normalizePromptInput(context), question)
}

func normalizePromptInput(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}
