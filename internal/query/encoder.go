package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/opportunity-matcher/internal/ai"
	"go.uber.org/zap"
)

// ErrInvalidInput is returned for an empty job description.
var ErrInvalidInput = errors.New("no job description provided")

// Query is the encoded form of one job description. It is immutable once
// returned by Encode.
type Query struct {
	Raw            string
	Embedding      []float32
	RequiredSkills TermSet
	RequiredTools  TermSet
	// Topics holds the course tags this description activates.
	Topics TermSet
}

// Encoder turns job descriptions into queries.
type Encoder struct {
	embedder ai.Embedder
	skills   TermSet
	tools    TermSet
	topics   map[string][][]string
	logger   *zap.Logger
}

// NewEncoder creates an encoder. Empty vocabulary lists fall back to the defaults.
func NewEncoder(embedder ai.Embedder, vocabulary Vocabulary, logger *zap.Logger) *Encoder {
	if logger == nil {
		logger = zap.NewNop()
	}

	vocabulary = vocabulary.withDefaults()

	topics := make(map[string][][]string, len(vocabulary.Topics))
	for tag, phrases := range vocabulary.Topics {
		tag = normalizeTerm(tag)
		if tag == "" {
			continue
		}
		for _, phrase := range phrases {
			if words := topicWords(Tokenize(phrase)); len(words) > 0 {
				topics[tag] = append(topics[tag], words)
			}
		}
	}

	return &Encoder{
		embedder: embedder,
		skills:   NewTermSet(vocabulary.Skills...),
		tools:    NewTermSet(vocabulary.Tools...),
		topics:   topics,
		logger:   logger,
	}
}

// Encode validates the description, extracts the keyword sets and embeds it.
func (e *Encoder) Encode(ctx context.Context, raw string) (*Query, error) {
	q, err := e.Classify(raw)
	if err != nil {
		return nil, err
	}

	if e.embedder == nil {
		return nil, fmt.Errorf("%w: embedder is not configured", ai.ErrEmbedding)
	}

	vectors, err := e.embedder.Embed(ctx, []string{q.Raw})
	if err != nil {
		return nil, fmt.Errorf("embed job description: %w", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for one input", ai.ErrEmbedding, len(vectors))
	}

	q.Embedding = vectors[0]

	e.logger.Debug("job description encoded",
		zap.Strings("required_skills", q.RequiredSkills.Sorted()),
		zap.Strings("required_tools", q.RequiredTools.Sorted()),
		zap.Strings("topics", q.Topics.Sorted()),
		zap.Int("dimension", len(q.Embedding)),
	)

	return q, nil
}

// Classify builds the keyword part of a query without embedding it. It is
// deterministic and side-effect free.
func (e *Encoder) Classify(raw string) (*Query, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidInput
	}

	tokens := Tokenize(raw)

	q := &Query{
		Raw:            raw,
		RequiredSkills: make(TermSet),
		RequiredTools:  make(TermSet),
		Topics:         make(TermSet),
	}

	for _, token := range tokens {
		if e.skills.Has(token) {
			q.RequiredSkills[token] = struct{}{}
		}
		if e.tools.Has(token) {
			q.RequiredTools[token] = struct{}{}
		}
	}

	words := topicWords(tokens)
	for tag, phrases := range e.topics {
		for _, phrase := range phrases {
			if containsPhrase(words, phrase) {
				q.Topics[tag] = struct{}{}
				break
			}
		}
	}

	return q, nil
}
