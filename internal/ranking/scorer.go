package ranking

import (
	"errors"
	"math"

	"github.com/spigell/opportunity-matcher/internal/catalog"
	"github.com/spigell/opportunity-matcher/internal/query"
)

var (
	errNoEmbedding       = errors.New("candidate has no embedding")
	errDimensionMismatch = errors.New("embedding dimension mismatch")
	errDegenerateVector  = errors.New("zero-norm or non-finite vector")
)

// Weights blend the three similarity signals.
type Weights struct {
	Semantic float64 `mapstructure:"semantic"`
	Skills   float64 `mapstructure:"skills"`
	Tools    float64 `mapstructure:"tools"`
}

// DefaultWeights are the stock blend: half semantic, the rest keyword overlap.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.5, Skills: 0.3, Tools: 0.2}
}

// Scorer computes the blended relevance of a candidate for a query.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer. All-zero weights fall back to DefaultWeights.
func NewScorer(weights Weights) *Scorer {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Score returns the blended score. A candidate whose similarity cannot be
// computed scores exactly 0, whatever its keyword overlap.
func (s *Scorer) Score(candidate *catalog.Attributes, q *query.Query) float64 {
	score, _ := s.score(candidate, q)
	return score
}

func (s *Scorer) score(candidate *catalog.Attributes, q *query.Query) (float64, error) {
	if candidate == nil || q == nil || !candidate.HasEmbedding() {
		return 0, errNoEmbedding
	}

	sim, err := Cosine(q.Embedding, candidate.Embedding)
	if err != nil {
		return 0, err
	}

	skillRatio := ratio(q.RequiredSkills.CountIn(candidate.Skills), q.RequiredSkills.Len())
	toolRatio := ratio(q.RequiredTools.CountIn(candidate.Tools), q.RequiredTools.Len())

	return s.weights.Semantic*sim + s.weights.Skills*skillRatio + s.weights.Tools*toolRatio, nil
}

func ratio(matched, required int) float64 {
	return float64(matched) / float64(max(required, 1))
}

// Cosine returns the cosine similarity of two vectors of equal length.
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, errNoEmbedding
	}
	if len(a) != len(b) {
		return 0, errDimensionMismatch
	}

	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}

	if na == 0 || nb == 0 {
		return 0, errDegenerateVector
	}

	// sqrt(na*nb) rather than sqrt(na)*sqrt(nb): identical vectors then give exactly 1.
	sim := dot / math.Sqrt(na*nb)
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, errDegenerateVector
	}

	return sim, nil
}
