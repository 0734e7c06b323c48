package prompt

import (
	_ "embed"
	"strings"

	"github.com/spigell/opportunity-matcher/internal/catalog"
	"github.com/spigell/opportunity-matcher/internal/ranking"
	"github.com/spigell/opportunity-matcher/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

// SystemInstruction accompanies every rendered prompt.
const SystemInstruction = "You are an assistant that provides short reasons why opportunities are relevant. You always answer with a single JSON object."

const (
	DefaultMaxItems = 5
	DefaultMaxChars = 1000

	emptyList = "(none)"
)

var placeholders = map[catalog.Category]string{
	catalog.CategoryStudentTeams: "{{STUDENT_TEAMS}}",
	catalog.CategoryHackathons:   "{{HACKATHONS}}",
	catalog.CategoryCourses:      "{{COURSES}}",
}

// Limits bound every candidate list embedded in the prompt.
type Limits struct {
	MaxItems int `mapstructure:"max-items"`
	MaxChars int `mapstructure:"max-chars"`
}

// Builder renders grounding prompts. It is stateless and safe for concurrent use.
type Builder struct {
	template string
	limits   Limits
}

// NewBuilder creates a builder with the embedded template.
func NewBuilder(limits Limits) *Builder {
	if limits.MaxItems <= 0 {
		limits.MaxItems = DefaultMaxItems
	}
	if limits.MaxChars <= 0 {
		limits.MaxChars = DefaultMaxChars
	}
	return &Builder{template: promptTemplate, limits: limits}
}

// Build renders the prompt for a job description and its flattened candidates.
func (b *Builder) Build(jobDescription string, candidates map[catalog.Category][]ranking.Candidate) string {
	prompt := strings.ReplaceAll(b.template, "{{JOB_DESCRIPTION}}", strings.TrimSpace(jobDescription))

	for _, category := range catalog.Categories {
		prompt = strings.ReplaceAll(prompt, placeholders[category], b.renderList(candidates[category]))
	}

	return prompt
}

// renderList writes one "- name" line per candidate, keeping at most
// MaxItems lines and MaxChars characters.
func (b *Builder) renderList(candidates []ranking.Candidate) string {
	if len(candidates) == 0 {
		return emptyList
	}

	if len(candidates) > b.limits.MaxItems {
		candidates = candidates[:b.limits.MaxItems]
	}

	lines := make([]string, 0, len(candidates))
	for _, c := range candidates {
		lines = append(lines, "- "+c.Name)
	}

	return utils.TruncateRunes(strings.Join(lines, "\n"), b.limits.MaxChars)
}
