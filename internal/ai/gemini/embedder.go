package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/opportunity-matcher/internal/ai"
	"google.golang.org/genai"
)

const (
	defaultEmbeddingModel = "text-embedding-004"
	embeddingTaskType     = "SEMANTIC_SIMILARITY"
)

type embedModels interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder produces embeddings through the Gemini embedding models.
type Embedder struct {
	models embedModels
	model  string
}

// NewEmbedder creates an Embedder on top of an existing genai client.
func NewEmbedder(client *genai.Client, model string) (*Embedder, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	return newEmbedder(client.Models, model), nil
}

func newEmbedder(models embedModels, model string) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultEmbeddingModel
	}
	return &Embedder{models: models, model: model}
}

// Embed returns one vector per text, in order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		if text = strings.TrimSpace(text); text == "" {
			text = " "
		}
		contents[i] = &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}}
	}

	resp, err := e.models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{TaskType: embeddingTaskType})
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embed content: %w", ai.ErrEmbedding, err)
	}

	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d inputs", ai.ErrEmbedding, got, len(texts))
	}

	out := make([][]float32, len(texts))
	for i, embedding := range resp.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, fmt.Errorf("%w: gemini returned an empty embedding at index %d", ai.ErrEmbedding, i)
		}
		out[i] = embedding.Values
	}

	return out, nil
}
