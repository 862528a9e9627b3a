package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"eli5/internal/domain"
	"eli5/internal/integrations/wikipedia"
)

type SummarySource interface {
	Summary(ctx context.Context, topic string) (string, error)
}

type SummaryCache interface {
	GetSummary(ctx context.Context, topic string) (string, bool, error)
	PutSummary(ctx context.Context, topic, extract string) error
}

// ContextFetcher resolves background text for a question. It never fails:
// every error is absorbed into one of the fallback texts.
type ContextFetcher struct {
	source SummarySource
	cache  SummaryCache
	logger *slog.Logger
}

// NewContextFetcher builds a fetcher; cache may be nil.
func NewContextFetcher(source SummarySource, cache SummaryCache, logger *slog.Logger) (*ContextFetcher, error) {
	if source == nil {
		return nil, errors.New("usecase: summary source must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextFetcher{source: source, cache: cache, logger: logger}, nil
}

func (f *ContextFetcher) FetchContext(ctx context.Context, topic string) string {
	topic = strings.TrimSpace(topic)

	if f.cache != nil {
		cached, ok, err := f.cache.GetSummary(ctx, topic)
		if err != nil {
			f.logger.WarnContext(ctx, "summary cache read failed", "topic", topic, "err", err)
		} else if ok {
			return cached
		}
	}

	extract, err := f.source.Summary(ctx, topic)
	switch {
	case errors.Is(err, wikipedia.ErrNoExtract):
		return domain.FallbackNoSummary
	case err != nil:
		f.logger.WarnContext(ctx, "wikipedia fetch failed", "topic", topic, "err", err)
		return domain.FallbackUnavailable
	}

	if f.cache != nil {
		if err := f.cache.PutSummary(ctx, topic, extract); err != nil {
			f.logger.WarnContext(ctx, "summary cache write failed", "topic", topic, "err", err)
		}
	}
	return extract
}
