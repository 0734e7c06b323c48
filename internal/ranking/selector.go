package ranking

import (
	"sort"

	"github.com/spigell/opportunity-matcher/internal/catalog"
	"github.com/spigell/opportunity-matcher/internal/query"
	"go.uber.org/zap"
)

// Limits are the top-k sizes of the selection.
type Limits struct {
	SubteamsPerTeam int `mapstructure:"subteams-per-team"`
	Teams           int `mapstructure:"teams"`
	Hackathons      int `mapstructure:"hackathons"`
}

// DefaultLimits keeps 2 subteams for each of the 3 best teams, and 3 hackathons.
func DefaultLimits() Limits {
	return Limits{SubteamsPerTeam: 2, Teams: 3, Hackathons: 3}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.SubteamsPerTeam <= 0 {
		l.SubteamsPerTeam = def.SubteamsPerTeam
	}
	if l.Teams <= 0 {
		l.Teams = def.Teams
	}
	if l.Hackathons <= 0 {
		l.Hackathons = def.Hackathons
	}
	return l
}

// Candidate is one flattened, reason-less recommendation.
type Candidate struct {
	Category catalog.Category
	Name     string
	URL      string
	Score    float64
}

// ScoredSubteam pairs a subteam with its score.
type ScoredSubteam struct {
	Subteam *catalog.Subteam
	Score   float64
}

// RankedTeam is a team narrowed to its best subteams.
type RankedTeam struct {
	Team     *catalog.Team
	Subteams []ScoredSubteam
}

// Score is the score of the team's best subteam.
func (t RankedTeam) Score() float64 {
	if len(t.Subteams) == 0 {
		return 0
	}
	return t.Subteams[0].Score
}

// Selection is the bounded candidate set for one query.
type Selection struct {
	Teams      []RankedTeam
	Hackathons []*catalog.Item
	Courses    []*catalog.Item
}

// Flatten turns the selection into per-category candidate lists. Every
// selected subteam becomes its own "<Team> – <Subteam>" candidate.
func (s *Selection) Flatten() map[catalog.Category][]Candidate {
	teams := make([]Candidate, 0, len(s.Teams)*2)
	for _, ranked := range s.Teams {
		for _, sub := range ranked.Subteams {
			teams = append(teams, Candidate{
				Category: catalog.CategoryStudentTeams,
				Name:     catalog.SubteamName(ranked.Team, sub.Subteam),
				URL:      ranked.Team.URL,
				Score:    sub.Score,
			})
		}
	}

	return map[catalog.Category][]Candidate{
		catalog.CategoryStudentTeams: teams,
		catalog.CategoryHackathons:   itemCandidates(catalog.CategoryHackathons, s.Hackathons),
		catalog.CategoryCourses:      itemCandidates(catalog.CategoryCourses, s.Courses),
	}
}

func itemCandidates(category catalog.Category, items []*catalog.Item) []Candidate {
	out := make([]Candidate, 0, len(items))
	for _, item := range items {
		out = append(out, Candidate{Category: category, Name: item.Name, URL: item.URL})
	}
	return out
}

// Step describes the result of one selection step.
type Step struct {
	Initial  int
	Dropped  int
	Selected int
}

// Selector applies the per-category selection policy.
type Selector struct {
	scorer *Scorer
	limits Limits
	logger *zap.Logger
}

// NewSelector creates a selector; non-positive limits fall back to DefaultLimits.
func NewSelector(scorer *Scorer, limits Limits, logger *zap.Logger) *Selector {
	if scorer == nil {
		scorer = NewScorer(Weights{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{scorer: scorer, limits: limits.withDefaults(), logger: logger}
}

// Select runs every category step against the catalog.
func (s *Selector) Select(c *catalog.Catalog, q *query.Query) *Selection {
	teams, teamStep := s.SelectTeams(c.Teams, q)
	s.logStep("student_teams", teamStep)

	hackathons, hackStep := s.SelectHackathons(c.Hackathons)
	s.logStep("hackathons", hackStep)

	courses, courseStep := s.SelectCourses(c.Courses, q)
	s.logStep("courses", courseStep)

	return &Selection{Teams: teams, Hackathons: hackathons, Courses: courses}
}

// SelectTeams ranks subteams within each team, then teams by their best
// subteam. Teams without any embedded subteam are dropped. Equal scores
// keep catalog order.
func (s *Selector) SelectTeams(teams []*catalog.Team, q *query.Query) ([]RankedTeam, Step) {
	ranked := make([]RankedTeam, 0, len(teams))

	for _, team := range teams {
		scored := make([]ScoredSubteam, 0, len(team.Subteams))
		for _, sub := range team.Subteams {
			if !sub.HasEmbedding() {
				continue
			}

			score, err := s.scorer.score(&sub.Attributes, q)
			if err != nil {
				s.logger.Debug("subteam scored as zero",
					zap.String("candidate", catalog.SubteamName(team, sub)),
					zap.Error(err),
				)
			}
			scored = append(scored, ScoredSubteam{Subteam: sub, Score: score})
		}

		if len(scored) == 0 {
			continue
		}

		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
		if len(scored) > s.limits.SubteamsPerTeam {
			scored = scored[:s.limits.SubteamsPerTeam]
		}

		ranked = append(ranked, RankedTeam{Team: team, Subteams: scored})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score() > ranked[j].Score() })
	if len(ranked) > s.limits.Teams {
		ranked = ranked[:s.limits.Teams]
	}

	return ranked, Step{Initial: len(teams), Dropped: len(teams) - len(ranked), Selected: len(ranked)}
}

// SelectHackathons takes a fixed window from the start of the catalog.
func (s *Selector) SelectHackathons(items []*catalog.Item) ([]*catalog.Item, Step) {
	selected := items
	if len(selected) > s.limits.Hackathons {
		selected = selected[:s.limits.Hackathons]
	}
	return selected, Step{Initial: len(items), Dropped: len(items) - len(selected), Selected: len(selected)}
}

// SelectCourses keeps courses tagged with any topic the query activates.
func (s *Selector) SelectCourses(items []*catalog.Item, q *query.Query) ([]*catalog.Item, Step) {
	selected := make([]*catalog.Item, 0, len(items))
	for _, item := range items {
		for _, tag := range item.Tags {
			if q.Topics.Has(tag) {
				selected = append(selected, item)
				break
			}
		}
	}
	return selected, Step{Initial: len(items), Dropped: len(items) - len(selected), Selected: len(selected)}
}

func (s *Selector) logStep(name string, step Step) {
	s.logger.Debug("selection step",
		zap.String("name", name),
		zap.Int("initial", step.Initial),
		zap.Int("dropped", step.Dropped),
		zap.Int("selected", step.Selected),
	)
}
