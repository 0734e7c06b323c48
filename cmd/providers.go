package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/opportunity-matcher/internal/ai"
	"github.com/spigell/opportunity-matcher/internal/ai/gemini"
	"github.com/spigell/opportunity-matcher/internal/ai/openai"
	"github.com/spigell/opportunity-matcher/internal/catalog"
	"github.com/spigell/opportunity-matcher/internal/logger"
	"github.com/spigell/opportunity-matcher/internal/prompt"
	"github.com/spigell/opportunity-matcher/internal/query"
	"github.com/spigell/opportunity-matcher/internal/ranking"
	"github.com/spigell/opportunity-matcher/internal/recommend"
	"github.com/spigell/opportunity-matcher/internal/secrets"

	"go.uber.org/zap"
)

const (
	providerOpenAI = "openai"
	providerGemini = "gemini"
)

func providerName(provider string) (string, error) {
	switch p := strings.TrimSpace(strings.ToLower(provider)); p {
	case "", providerOpenAI:
		return providerOpenAI, nil
	case providerGemini:
		return providerGemini, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}
}

func newGenerator(ctx context.Context, cfg LLMConfig, log *zap.Logger) (ai.Generator, error) {
	provider, err := providerName(cfg.Provider)
	if err != nil {
		return nil, err
	}

	sampling := ai.Sampling{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}

	switch provider {
	case providerGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.Gemini.APIKeyFile,
			Env:  cfg.Gemini.APIKeyEnv,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set llm.gemini.api-key-file or %s)", err, cfg.Gemini.APIKeyEnv)
		}

		client, err := gemini.NewClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}

		return gemini.NewGenerator(client, cfg.Gemini.Model, sampling, cfg.MaxLogLength, log)
	default:
		apiKey, err := secrets.Optional(secrets.Source{
			Name: "llm api key",
			File: cfg.OpenAI.APIKeyFile,
			Env:  cfg.OpenAI.APIKeyEnv,
		})
		if err != nil {
			return nil, err
		}

		return openai.New(openai.Config{
			BaseURL:      cfg.OpenAI.BaseURL,
			APIKey:       apiKey,
			Model:        cfg.OpenAI.Model,
			Sampling:     sampling,
			Timeout:      cfg.Timeout,
			MaxLogLength: cfg.MaxLogLength,
		}, log), nil
	}
}

func newEmbedder(ctx context.Context, cfg EmbeddingConfig, maxLogLength int, log *zap.Logger) (ai.Embedder, error) {
	provider, err := providerName(cfg.Provider)
	if err != nil {
		return nil, err
	}

	switch provider {
	case providerGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.Gemini.APIKeyFile,
			Env:  cfg.Gemini.APIKeyEnv,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set embedding.gemini.api-key-file or %s)", err, cfg.Gemini.APIKeyEnv)
		}

		client, err := gemini.NewClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}

		return gemini.NewEmbedder(client, cfg.Gemini.Model)
	default:
		apiKey, err := secrets.Optional(secrets.Source{
			Name: "embedding api key",
			File: cfg.OpenAI.APIKeyFile,
			Env:  cfg.OpenAI.APIKeyEnv,
		})
		if err != nil {
			return nil, err
		}

		return openai.New(openai.Config{
			BaseURL:        cfg.OpenAI.BaseURL,
			APIKey:         apiKey,
			EmbeddingModel: cfg.OpenAI.Model,
			Timeout:        cfg.Timeout,
			MaxLogLength:   maxLogLength,
		}, log), nil
	}
}

// newService loads the catalog and wires the whole recommendation pipeline.
func newService(ctx context.Context, config *Config, log *zap.Logger) (*recommend.Service, *catalog.Catalog, error) {
	c, err := catalog.Load(config.Catalog, log)
	if err != nil {
		return nil, nil, err
	}

	counts := c.Len()
	log.Info("catalog loaded",
		zap.String("path", config.Catalog),
		zap.Int("subteams", counts[catalog.CategoryStudentTeams]),
		zap.Int("hackathons", counts[catalog.CategoryHackathons]),
		zap.Int("courses", counts[catalog.CategoryCourses]),
	)

	embedder, err := newEmbedder(ctx, config.Embedding, config.LLM.MaxLogLength, log)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding provider: %w", err)
	}

	generator, err := newGenerator(ctx, config.LLM, log)
	if err != nil {
		return nil, nil, fmt.Errorf("llm provider: %w", err)
	}

	provider, _ := providerName(config.LLM.Provider)
	serviceLogger := logger.WithCommonFields(log, provider, generator.Model())

	svc := recommend.New(
		c,
		query.NewEncoder(embedder, config.Vocabulary, log),
		ranking.NewSelector(ranking.NewScorer(config.Ranking.Weights), config.Ranking.Limits, log),
		prompt.NewBuilder(config.Prompt),
		generator,
		recommend.Options{
			LLMTimeout:       config.LLM.Timeout,
			EmbeddingTimeout: config.Embedding.Timeout,
			FallbackReason:   config.LLM.FallbackReason,
			MaxLogLength:     config.LLM.MaxLogLength,
		},
		serviceLogger,
	)

	return svc, c, nil
}
