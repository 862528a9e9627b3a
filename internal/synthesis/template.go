package synthesis

import (
	"context"
	"fmt"
	"time"

	"eli5/internal/domain"
)

// DefaultDelay stands in for a generation round trip.
const DefaultDelay = 2 * time.Second

const contextPreviewRunes = 100

// Template is the deterministic placeholder synthesizer.
type Template struct {
	delay time.Duration
}

func NewTemplate(delay time.Duration) *Template {
	if delay < 0 {
		delay = 0
	}
	return &Template{delay: delay}
}

func (t *Template) Name() string { return "template" }

// Synthesize waits for the configured delay, then renders the template.
// It returns ctx.Err() if the context ends first.
func (t *Template) Synthesize(ctx context.Context, req domain.ExplainRequest) (string, error) {
	if t.delay > 0 {
		timer := time.NewTimer(t.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return Render(req), nil
}

// Render formats the placeholder explanation. Unknown levels or styles panic.
func Render(req domain.ExplainRequest) string {
	return fmt.Sprintf(`Here's an explanation %s%s

%s is a fascinating topic! Based on the context: %s...

This is a simulated AI response that would normally come from a language model like Mistral or GPT-4. In a full implementation, this would integrate with actual AI APIs to provide intelligent, contextual explanations at the requested difficulty level.

The explanation would be tailored to the %s level and formatted in a %s style, providing accurate and helpful information based on the Wikipedia context and the user's specific question.`,
		req.Level.Phrase(), req.Style.Suffix(),
		req.Question, preview(req.Context, contextPreviewRunes),
		req.Level, req.Style,
	)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
