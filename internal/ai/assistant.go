package ai

import (
	"context"
	"errors"
)

var (
	// ErrModelCall marks failures of the chat-completion call: transport
	// errors, timeouts, non-success statuses and empty completions.
	ErrModelCall = errors.New("model call failed")
	// ErrEmbedding marks failures of the embedding call.
	ErrEmbedding = errors.New("embedding failed")
)

// Generator produces one text completion for a system instruction and a prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// Embedder maps texts to vectors in the catalog's embedding space. The
// result has one vector per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Sampling holds the generation knobs shared by every provider.
type Sampling struct {
	Temperature float32
	MaxTokens   int
}

const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 2048
)

// WithDefaults fills zero values with the defaults. A negative temperature
// requests greedy decoding and is sent as 0.
func (s Sampling) WithDefaults() Sampling {
	if s.Temperature < 0 {
		s.Temperature = 0
	} else if s.Temperature == 0 {
		s.Temperature = DefaultTemperature
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = DefaultMaxTokens
	}
	return s
}
