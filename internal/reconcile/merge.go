package reconcile

import (
	"strings"

	"github.com/spigell/opportunity-matcher/internal/catalog"
	"github.com/spigell/opportunity-matcher/internal/ranking"
	"github.com/spigell/opportunity-matcher/internal/utils"
	"go.uber.org/zap"
)

// DefaultFallbackReason is used for candidates the model did not justify.
const DefaultFallbackReason = "Relevant opportunity."

const defaultMaxLogLength = 2000

// Recommendation is one entry of the final result.
type Recommendation struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	URL    string `json:"url"`
}

// Result is the response returned to callers. Lists are never nil so they
// serialize as [] when empty.
type Result struct {
	StudentTeams []Recommendation `json:"student_teams"`
	Hackathons   []Recommendation `json:"hackathons"`
	Courses      []Recommendation `json:"courses"`
}

// URLResolver returns the verified URL for a flattened display name.
// *catalog.Catalog implements it.
type URLResolver interface {
	URL(name string) (string, bool)
}

// Merge joins candidates with the model's reasons. Every candidate appears
// in the result exactly once and in order. URLs always come from the
// resolver or the candidate itself, never from the model.
func Merge(candidates map[catalog.Category][]ranking.Candidate, reasons Reasons, urls URLResolver, fallback string) *Result {
	if fallback = strings.TrimSpace(fallback); fallback == "" {
		fallback = DefaultFallbackReason
	}

	merge := func(category catalog.Category) []Recommendation {
		list := candidates[category]
		out := make([]Recommendation, 0, len(list))
		byName := reasons[category]

		for _, candidate := range list {
			reason := byName[candidate.Name]
			if reason == "" {
				reason = fallback
			}

			url := candidate.URL
			if urls != nil {
				if verified, ok := urls.URL(candidate.Name); ok {
					url = verified
				}
			}

			out = append(out, Recommendation{Name: candidate.Name, Reason: reason, URL: url})
		}

		return out
	}

	return &Result{
		StudentTeams: merge(catalog.CategoryStudentTeams),
		Hackathons:   merge(catalog.CategoryHackathons),
		Courses:      merge(catalog.CategoryCourses),
	}
}

// Reconciler turns raw model output into a Result for a fixed candidate set.
type Reconciler struct {
	urls      URLResolver
	fallback  string
	maxLogLen int
	logger    *zap.Logger
}

// New creates a reconciler.
func New(urls URLResolver, fallback string, maxLogLength int, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Reconciler{
		urls:      urls,
		fallback:  fallback,
		maxLogLen: maxLogLength,
		logger:    logger,
	}
}

// Reconcile extracts reasons from raw and merges them with candidates. The
// only error it returns is *ExtractionError.
func (r *Reconciler) Reconcile(raw string, candidates map[catalog.Category][]ranking.Candidate) (*Result, error) {
	doc, strategy, err := Extract(raw)
	if err != nil {
		r.logger.Warn("model output could not be parsed",
			zap.String("raw", utils.TruncateForLog(raw, r.maxLogLen)),
			zap.Error(err),
		)
		return nil, err
	}

	reasons := Decode(doc)
	result := Merge(candidates, reasons, r.urls, r.fallback)

	r.logger.Debug("model output reconciled",
		zap.String("strategy", strategy),
		zap.Int("student_teams", len(result.StudentTeams)),
		zap.Int("hackathons", len(result.Hackathons)),
		zap.Int("courses", len(result.Courses)),
		zap.Int("unexplained", countFallbacks(candidates, reasons)),
	)

	return result, nil
}

func countFallbacks(candidates map[catalog.Category][]ranking.Candidate, reasons Reasons) int {
	n := 0
	for category, list := range candidates {
		for _, candidate := range list {
			if reasons[category][candidate.Name] == "" {
				n++
			}
		}
	}
	return n
}
