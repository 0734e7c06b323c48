package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spigell/opportunity-matcher/internal/ai"
	"github.com/spigell/opportunity-matcher/internal/catalog"
	"github.com/spigell/opportunity-matcher/internal/prompt"
	"github.com/spigell/opportunity-matcher/internal/query"
	"github.com/spigell/opportunity-matcher/internal/ranking"
	"github.com/spigell/opportunity-matcher/internal/reconcile"
	"github.com/spigell/opportunity-matcher/internal/utils"
	"go.uber.org/zap"
)

const (
	DefaultLLMTimeout       = 30 * time.Second
	DefaultEmbeddingTimeout = 15 * time.Second
	DefaultMaxLogLength     = 2000
)

// Options tune a Service. Zero values take the defaults above.
type Options struct {
	LLMTimeout       time.Duration
	EmbeddingTimeout time.Duration
	FallbackReason   string
	MaxLogLength     int
}

// Service runs the recommendation pipeline for one job description at a
// time. It holds no per-request state and is safe for concurrent use.
type Service struct {
	catalog    *catalog.Catalog
	encoder    *query.Encoder
	selector   *ranking.Selector
	builder    *prompt.Builder
	generator  ai.Generator
	reconciler *reconcile.Reconciler
	opts       Options
	logger     *zap.Logger
}

// New wires a Service.
func New(
	c *catalog.Catalog,
	encoder *query.Encoder,
	selector *ranking.Selector,
	builder *prompt.Builder,
	generator ai.Generator,
	opts Options,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = DefaultLLMTimeout
	}
	if opts.EmbeddingTimeout <= 0 {
		opts.EmbeddingTimeout = DefaultEmbeddingTimeout
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = DefaultMaxLogLength
	}

	return &Service{
		catalog:    c,
		encoder:    encoder,
		selector:   selector,
		builder:    builder,
		generator:  generator,
		reconciler: reconcile.New(c, opts.FallbackReason, opts.MaxLogLength, logger),
		opts:       opts,
		logger:     logger,
	}
}

// Recommend returns justified recommendations for a job description. Every
// error it returns is an *Error.
func (s *Service) Recommend(ctx context.Context, description string) (*reconcile.Result, error) {
	result, err := s.recommend(ctx, description)
	if err != nil {
		classified := Classify(err, s.opts.MaxLogLength)
		s.logger.Warn("recommendation failed",
			zap.String("code", string(classified.Code)),
			zap.Error(err),
		)
		return nil, classified
	}
	return result, nil
}

func (s *Service) recommend(ctx context.Context, description string) (*reconcile.Result, error) {
	started := time.Now()

	q, err := s.encode(ctx, description)
	if err != nil {
		return nil, err
	}

	candidates := s.selector.Select(s.catalog, q).Flatten()
	text := s.builder.Build(q.Raw, candidates)

	s.logger.Debug("prompt built",
		zap.Int("student_teams", len(candidates[catalog.CategoryStudentTeams])),
		zap.Int("hackathons", len(candidates[catalog.CategoryHackathons])),
		zap.Int("courses", len(candidates[catalog.CategoryCourses])),
		zap.String("prompt", utils.TruncateForLog(text, s.opts.MaxLogLength)),
	)

	raw, err := s.generate(ctx, text)
	if err != nil {
		return nil, err
	}

	result, err := s.reconciler.Reconcile(raw, candidates)
	if err != nil {
		return nil, err
	}

	s.logger.Info("recommendation ready",
		zap.Int("student_teams", len(result.StudentTeams)),
		zap.Int("hackathons", len(result.Hackathons)),
		zap.Int("courses", len(result.Courses)),
		zap.Duration("took", time.Since(started)),
	)

	return result, nil
}

func (s *Service) encode(ctx context.Context, description string) (*query.Query, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.EmbeddingTimeout)
	defer cancel()

	q, err := s.encoder.Encode(ctx, description)
	if err != nil {
		if errors.Is(err, query.ErrInvalidInput) || errors.Is(err, ai.ErrEmbedding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ai.ErrEmbedding, err)
	}

	return q, nil
}

func (s *Service) generate(ctx context.Context, text string) (string, error) {
	if s.generator == nil {
		return "", fmt.Errorf("%w: generator is not configured", ai.ErrModelCall)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.LLMTimeout)
	defer cancel()

	raw, err := s.generator.Generate(ctx, prompt.SystemInstruction, text)
	if err != nil {
		if errors.Is(err, ai.ErrModelCall) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ai.ErrModelCall, err)
	}

	s.logger.Debug("model responded",
		zap.String("model", s.generator.Model()),
		zap.String("response", utils.TruncateForLog(raw, s.opts.MaxLogLength)),
	)

	return raw, nil
}
