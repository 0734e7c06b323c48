package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/spigell/opportunity-matcher/internal/catalog"
	"github.com/spigell/opportunity-matcher/internal/ranking"
)

func candidates(category catalog.Category, names ...string) []ranking.Candidate {
	out := make([]ranking.Candidate, 0, len(names))
	for _, name := range names {
		out = append(out, ranking.Candidate{Category: category, Name: name})
	}
	return out
}

func TestBuildListsCandidatesAndSchema(t *testing.T) {
	b := NewBuilder(Limits{})

	prompt := b.Build("  Seeking robotics engineer  ", map[catalog.Category][]ranking.Candidate{
		catalog.CategoryStudentTeams: candidates(catalog.CategoryStudentTeams, "MetRocketry – Avionics"),
		catalog.CategoryHackathons:   candidates(catalog.CategoryHackathons, "Lunaris Hacks"),
	})

	for _, want := range []string{
		"Seeking robotics engineer\n",
		"Student Teams:\n- MetRocketry – Avionics\n",
		"Hackathons:\n- Lunaris Hacks\n",
		"Courses:\n(none)\n",
		`"student_teams", "hackathons" and "courses"`,
		"Example:",
		"Do not write any text before or after the JSON object.",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt is missing %q:\n%s", want, prompt)
		}
	}

	if strings.Contains(prompt, "{{") {
		t.Fatalf("unrendered placeholder left in prompt:\n%s", prompt)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	b := NewBuilder(Limits{})
	input := map[catalog.Category][]ranking.Candidate{
		catalog.CategoryCourses: candidates(catalog.CategoryCourses, "Intro to AI", "Python 101"),
	}

	if b.Build("job", input) != b.Build("job", input) {
		t.Fatalf("expected identical prompts for identical input")
	}
}

func TestRenderListTruncatesItems(t *testing.T) {
	b := NewBuilder(Limits{})

	names := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		names = append(names, fmt.Sprintf("Course %d", i))
	}

	list := b.renderList(candidates(catalog.CategoryCourses, names...))
	if lines := strings.Split(list, "\n"); len(lines) != DefaultMaxItems {
		t.Fatalf("expected %d lines, got %d", DefaultMaxItems, len(lines))
	}
	if strings.Contains(list, "Course 5") {
		t.Fatalf("sixth item must be dropped")
	}
}

func TestRenderListTruncatesCharacters(t *testing.T) {
	b := NewBuilder(Limits{MaxItems: 5, MaxChars: 30})

	list := b.renderList(candidates(catalog.CategoryCourses, strings.Repeat("x", 50), "second"))
	if got := len([]rune(list)); got != 30 {
		t.Fatalf("expected 30 characters, got %d", got)
	}
}
