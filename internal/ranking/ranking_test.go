package ranking

import (
	"fmt"
	"testing"

	"github.com/spigell/opportunity-matcher/internal/catalog"
	"github.com/spigell/opportunity-matcher/internal/query"
	"go.uber.org/zap"
)

func testQuery(embedding []float32) *query.Query {
	return &query.Query{
		Raw:            "robotics engineer with python and ros",
		Embedding:      embedding,
		RequiredSkills: query.NewTermSet("robotics"),
		RequiredTools:  query.NewTermSet("python", "ros"),
		Topics:         query.NewTermSet(),
	}
}

func TestScoreIdenticalEmbeddingFullOverlapIsOne(t *testing.T) {
	candidate := &catalog.Attributes{
		Skills:    []string{"robotics", "design"},
		Tools:     []string{"python", "ros", "cad"},
		Embedding: []float32{1, 2, 2},
	}

	got := NewScorer(Weights{}).Score(candidate, testQuery([]float32{1, 2, 2}))
	if got != 1.0 {
		t.Fatalf("expected exactly 1.0, got %v", got)
	}
}

func TestScoreWithoutUsableEmbeddingIsZero(t *testing.T) {
	scorer := NewScorer(DefaultWeights())
	q := testQuery([]float32{1, 0, 0})

	tests := []struct {
		name      string
		embedding []float32
	}{
		{name: "missing", embedding: nil},
		{name: "dimension mismatch", embedding: []float32{1, 0}},
		{name: "zero norm", embedding: []float32{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := &catalog.Attributes{
				Skills:    []string{"robotics"},
				Tools:     []string{"python", "ros"},
				Embedding: tt.embedding,
			}
			if got := scorer.Score(candidate, q); got != 0.0 {
				t.Fatalf("expected exactly 0.0, got %v", got)
			}
		})
	}
}

func TestScoreEmptyRequiredSetsContributeNothing(t *testing.T) {
	q := &query.Query{
		Embedding:      []float32{1, 0},
		RequiredSkills: query.NewTermSet(),
		RequiredTools:  query.NewTermSet(),
	}
	candidate := &catalog.Attributes{Skills: []string{"robotics"}, Tools: []string{"python"}, Embedding: []float32{1, 0}}

	if got := NewScorer(DefaultWeights()).Score(candidate, q); got != 0.5 {
		t.Fatalf("expected semantic part only, got %v", got)
	}
}

func TestScorePartialOverlap(t *testing.T) {
	candidate := &catalog.Attributes{
		Tools:     []string{"python", "python"},
		Embedding: []float32{0, 1},
	}

	// orthogonal vectors, no skills, one of two tools
	got := NewScorer(DefaultWeights()).Score(candidate, testQuery([]float32{1, 0}))
	if got != 0.1 {
		t.Fatalf("expected 0.1, got %v", got)
	}
}

func sub(name string, embedding ...float32) *catalog.Subteam {
	return &catalog.Subteam{Name: name, Attributes: catalog.Attributes{Embedding: embedding}}
}

func TestSelectTeamsCapsAndOrders(t *testing.T) {
	teams := make([]*catalog.Team, 0, 5)
	for i := 0; i < 5; i++ {
		// team i is closer to the query the larger i is
		w := float32(i + 1)
		teams = append(teams, &catalog.Team{
			Name: fmt.Sprintf("Team %d", i),
			Subteams: []*catalog.Subteam{
				sub("low", 1, 0),
				sub("high", w, 1),
				sub("mid", w, 2),
			},
		})
	}

	selector := NewSelector(nil, Limits{}, zap.NewNop())
	ranked, step := selector.SelectTeams(teams, testQuery([]float32{1, 1}))

	if len(ranked) != 3 {
		t.Fatalf("expected 3 teams, got %d", len(ranked))
	}
	if step.Initial != 5 || step.Selected != 3 || step.Dropped != 2 {
		t.Fatalf("unexpected step: %+v", step)
	}

	for i, r := range ranked {
		if len(r.Subteams) > 2 {
			t.Fatalf("team %s kept %d subteams", r.Team.Name, len(r.Subteams))
		}
		if i > 0 && r.Score() > ranked[i-1].Score() {
			t.Fatalf("teams not sorted by best score")
		}
		for j := 1; j < len(r.Subteams); j++ {
			if r.Subteams[j].Score > r.Subteams[j-1].Score {
				t.Fatalf("subteams not sorted within %s", r.Team.Name)
			}
		}
	}
}

func TestSelectTeamsDropsTeamsWithoutEmbeddings(t *testing.T) {
	teams := []*catalog.Team{
		{Name: "Empty"},
		{Name: "Unembedded", Subteams: []*catalog.Subteam{sub("a"), sub("b")}},
		{Name: "Scored", Subteams: []*catalog.Subteam{sub("a"), sub("b", 1, 0)}},
	}

	ranked, _ := NewSelector(nil, Limits{}, zap.NewNop()).SelectTeams(teams, testQuery([]float32{1, 0}))

	if len(ranked) != 1 || ranked[0].Team.Name != "Scored" {
		t.Fatalf("expected only the scored team, got %+v", ranked)
	}
	if len(ranked[0].Subteams) != 1 || ranked[0].Subteams[0].Subteam.Name != "b" {
		t.Fatalf("unembedded subteam must not be ranked")
	}
}

func TestSelectTeamsIsStableOnTies(t *testing.T) {
	teams := []*catalog.Team{
		{Name: "First", Subteams: []*catalog.Subteam{sub("x", 1, 0), sub("y", 1, 0)}},
		{Name: "Second", Subteams: []*catalog.Subteam{sub("x", 1, 0)}},
		{Name: "Third", Subteams: []*catalog.Subteam{sub("x", 1, 0)}},
		{Name: "Fourth", Subteams: []*catalog.Subteam{sub("x", 1, 0)}},
	}

	ranked, _ := NewSelector(nil, Limits{}, zap.NewNop()).SelectTeams(teams, testQuery([]float32{1, 0}))

	names := []string{ranked[0].Team.Name, ranked[1].Team.Name, ranked[2].Team.Name}
	if names[0] != "First" || names[1] != "Second" || names[2] != "Third" {
		t.Fatalf("ties must keep catalog order, got %v", names)
	}

	if ranked[0].Subteams[0].Subteam.Name != "x" || ranked[0].Subteams[1].Subteam.Name != "y" {
		t.Fatalf("subteam ties must keep catalog order")
	}
}

func TestSelectHackathonsWindow(t *testing.T) {
	items := []*catalog.Item{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}}

	selected, step := NewSelector(nil, Limits{}, zap.NewNop()).SelectHackathons(items)
	if len(selected) != 3 || selected[0].Name != "A" || selected[2].Name != "C" {
		t.Fatalf("unexpected hackathons: %+v", selected)
	}
	if step.Dropped != 1 {
		t.Fatalf("unexpected step: %+v", step)
	}
}

func TestSelectCoursesByTopic(t *testing.T) {
	encoder := query.NewEncoder(nil, query.DefaultVocabulary(), zap.NewNop())
	q, err := encoder.Classify("Machine learning engineer, Python required")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	courses := []*catalog.Item{
		{Name: "Intro to AI", Attributes: catalog.Attributes{Tags: []string{"ai"}}},
		{Name: "Web Design", Attributes: catalog.Attributes{Tags: []string{"design"}}},
		{Name: "Python 101", Attributes: catalog.Attributes{Tags: []string{"python", "beginner"}}},
		{Name: "Untagged"},
	}

	selected, _ := NewSelector(nil, Limits{}, zap.NewNop()).SelectCourses(courses, q)
	if len(selected) != 2 || selected[0].Name != "Intro to AI" || selected[1].Name != "Python 101" {
		t.Fatalf("unexpected courses: %+v", selected)
	}

	q, _ = encoder.Classify("Mechanical engineer maintaining email servers")
	if selected, _ := NewSelector(nil, Limits{}, zap.NewNop()).SelectCourses(courses, q); len(selected) != 0 {
		t.Fatalf("expected no courses, got %+v", selected)
	}
}

func TestSelectionFlatten(t *testing.T) {
	team := &catalog.Team{Name: "MetRocketry", URL: "https://rocketry.example"}
	selection := &Selection{
		Teams: []RankedTeam{{
			Team: team,
			Subteams: []ScoredSubteam{
				{Subteam: &catalog.Subteam{Name: "Avionics"}, Score: 0.8},
				{Subteam: &catalog.Subteam{}, Score: 0.4},
			},
		}},
		Hackathons: []*catalog.Item{{Name: "Lunaris Hacks", URL: "https://lunaris.example"}},
	}

	flat := selection.Flatten()

	teams := flat[catalog.CategoryStudentTeams]
	if len(teams) != 2 {
		t.Fatalf("expected 2 flattened subteams, got %d", len(teams))
	}
	if teams[0].Name != "MetRocketry – Avionics" || teams[0].URL != "https://rocketry.example" {
		t.Fatalf("unexpected candidate: %+v", teams[0])
	}
	if teams[1].Name != "MetRocketry – Subteam" {
		t.Fatalf("expected default subteam name, got %q", teams[1].Name)
	}

	if len(flat[catalog.CategoryHackathons]) != 1 || flat[catalog.CategoryCourses] == nil {
		t.Fatalf("unexpected flattened selection: %+v", flat)
	}
}
