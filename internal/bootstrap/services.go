// Package bootstrap wires configuration into running services and manages
// process lifecycle.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"eli5/internal/cache"
	"eli5/internal/config"
	"eli5/internal/integrations/openai"
	"eli5/internal/integrations/paramstore"
	"eli5/internal/integrations/wikipedia"
	"eli5/internal/repository"
	"eli5/internal/synthesis"
	"eli5/internal/usecase"
)

// Services holds the ask pipeline and the resources it owns.
type Services struct {
	Ask *usecase.AskService

	closers []func() error
}

func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type awsLoader func(ctx context.Context) (aws.Config, error)

// BuildServices assembles the ask pipeline from cfg. AWS configuration is
// only loaded when the parameter store or the DynamoDB cache is in use.
func BuildServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	return buildServices(ctx, cfg, logger, func(ctx context.Context) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
}

func buildServices(ctx context.Context, cfg *config.Config, logger *slog.Logger, loadAWS awsLoader) (*Services, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		awsCfg    aws.Config
		awsLoaded bool
	)
	getAWS := func() (aws.Config, error) {
		if awsLoaded {
			return awsCfg, nil
		}
		c, err := loadAWS(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("bootstrap: load AWS config: %w", err)
		}
		awsCfg, awsLoaded = c, true
		return awsCfg, nil
	}

	svc := &Services{}

	summaryCache, err := buildSummaryCache(cfg.Cache, getAWS, svc, logger)
	if err != nil {
		return nil, err
	}

	wiki := wikipedia.NewClient(
		wikipedia.WithBaseURL(cfg.Wikipedia.BaseURL),
		wikipedia.WithTimeout(cfg.Wikipedia.Timeout),
	)
	fetcher, err := usecase.NewContextFetcher(wiki, summaryCache, logger)
	if err != nil {
		return nil, err
	}

	synth, err := buildSynthesizer(cfg, getAWS)
	if err != nil {
		return nil, err
	}

	ask, err := usecase.NewAskService(fetcher, synth, logger, cfg.Ask.MaxQuestionLength)
	if err != nil {
		return nil, err
	}
	svc.Ask = ask
	return svc, nil
}

// buildSummaryCache prefers Redis over DynamoDB; nil means no cache.
func buildSummaryCache(cfg config.CacheConfig, getAWS func() (aws.Config, error), svc *Services, logger *slog.Logger) (usecase.SummaryCache, error) {
	switch {
	case cfg.RedisAddr != "":
		rdb, err := cache.NewRedisClient(cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, rdb.Close)
		return cache.NewRedisCache(rdb, cfg.TTL, cache.WithLogger(logger))
	case cfg.Table != "":
		awsCfg, err := getAWS()
		if err != nil {
			return nil, err
		}
		return repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.Table, cfg.TTL)
	default:
		return nil, nil
	}
}

func buildSynthesizer(cfg *config.Config, getAWS func() (aws.Config, error)) (usecase.Synthesizer, error) {
	if cfg.Synthesis.Kind != config.SynthesizerLLM {
		return synthesis.NewTemplate(cfg.Synthesis.Delay), nil
	}

	opts := []openai.Option{
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithMaxRetries(cfg.LLM.MaxRetries),
	}
	switch {
	case cfg.LLM.APIKey != "":
		opts = append(opts, openai.WithAPIKey(cfg.LLM.APIKey))
	case cfg.AWS.ParamPrefix != "":
		awsCfg, err := getAWS()
		if err != nil {
			return nil, err
		}
		params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return nil, err
		}
		opts = append(opts, openai.WithParamStore(params, cfg.AWS.ParamPrefix))
	default:
		return nil, errors.New("bootstrap: llm synthesizer needs LLM_API_KEY or PARAM_PREFIX")
	}

	client, err := openai.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	return synthesis.NewLLM(client, cfg.LLM.Model)
}
