package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"eli5/internal/domain"
)

const defaultMaxQuestion = 300

// Stage names the pipeline step an Ask call has entered.
type Stage string

const (
	StageFetchingContext Stage = "fetching_context"
	StageSynthesizing    Stage = "synthesizing"
)

// Fetcher returns background text for a question and never fails.
type Fetcher interface {
	FetchContext(ctx context.Context, topic string) string
}

// Synthesizer turns a question and its context into an explanation. It is
// the only place answer text is produced.
type Synthesizer interface {
	Synthesize(ctx context.Context, req domain.ExplainRequest) (string, error)
	Name() string
}

type modelReporter interface {
	Model() string
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type AskService struct {
	fetcher        Fetcher
	synth          Synthesizer
	logger         *slog.Logger
	maxQuestionLen int
}

type AskInput struct {
	Question     string
	Level        domain.Level
	Style        domain.Style
	UseWikipedia bool

	// OnStage, when set, is called as the pipeline moves between steps.
	OnStage func(Stage)
}

type AskOutput struct {
	Answer string
	// Summary is the context used for synthesis; HasSummary is false when
	// Wikipedia was not consulted.
	Summary    string
	HasSummary bool
}

// Health describes the configured synthesis backend.
type Health struct {
	Synthesizer string
	Model       string
}

func NewAskService(f Fetcher, s Synthesizer, logger *slog.Logger, maxQuestionLen int) (*AskService, error) {
	if f == nil {
		return nil, errors.New("usecase: context fetcher must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: synthesizer must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if maxQuestionLen <= 0 {
		maxQuestionLen = defaultMaxQuestion
	}
	return &AskService{
		fetcher:        f,
		synth:          s,
		logger:         logger,
		maxQuestionLen: maxQuestionLen,
	}, nil
}

// Ask validates the question, gathers context and synthesizes an answer.
func (s *AskService) Ask(ctx context.Context, in AskInput) (AskOutput, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return AskOutput{}, newError(ErrorInvalidInput, "empty_question", nil)
	}
	if utf8.RuneCountInString(question) > s.maxQuestionLen {
		return AskOutput{}, newError(ErrorInvalidInput, "question_too_long", nil)
	}
	if !in.Level.Valid() {
		return AskOutput{}, newError(ErrorInvalidInput, "invalid_difficulty", nil)
	}
	if !in.Style.Valid() {
		return AskOutput{}, newError(ErrorInvalidInput, "invalid_format_option", nil)
	}
	notify := in.OnStage
	if notify == nil {
		notify = func(Stage) {}
	}

	start := time.Now()
	var summary string
	if in.UseWikipedia {
		notify(StageFetchingContext)
		summary = s.fetcher.FetchContext(ctx, question)
	}

	notify(StageSynthesizing)
	answer, err := s.synth.Synthesize(ctx, domain.ExplainRequest{
		Question: question,
		Context:  summary,
		Level:    in.Level,
		Style:    in.Style,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return AskOutput{}, newError(ErrorInternal, "canceled", ctxErr)
		}
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return AskOutput{}, newError(ErrorRateLimited, "synthesis_rate_limited", err)
		}
		return AskOutput{}, newError(ErrorUpstream, "synthesis_error", err)
	}
	if strings.TrimSpace(answer) == "" {
		return AskOutput{}, newError(ErrorUpstream, "empty_answer", nil)
	}

	s.logger.InfoContext(ctx, "answer synthesized",
		"synthesizer", s.synth.Name(),
		"level", in.Level.String(),
		"style", in.Style.String(),
		"use_wikipedia", in.UseWikipedia,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return AskOutput{
		Answer:     answer,
		Summary:    summary,
		HasSummary: in.UseWikipedia,
	}, nil
}

func (s *AskService) Health() Health {
	h := Health{Synthesizer: s.synth.Name()}
	if m, ok := s.synth.(modelReporter); ok {
		h.Model = m.Model()
	}
	return h
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
