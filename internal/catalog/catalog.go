package catalog

import (
	"fmt"
	"strings"
)

// Category names a recommendation section. The values double as the keys of
// the catalog snapshot, the model response and the final result.
type Category string

const (
	CategoryStudentTeams Category = "student_teams"
	CategoryHackathons   Category = "hackathons"
	CategoryCourses      Category = "courses"
)

// Categories lists every category in result order.
var Categories = []Category{CategoryStudentTeams, CategoryHackathons, CategoryCourses}

// DefaultSubteamName is used when a subteam entry carries no name.
const DefaultSubteamName = "Subteam"

// Attributes are the scoring inputs shared by every catalog entry.
type Attributes struct {
	Tags      []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Skills    []string  `json:"skills,omitempty" yaml:"skills,omitempty"`
	Tools     []string  `json:"tools,omitempty" yaml:"tools,omitempty"`
	Embedding []float32 `json:"embedding,omitempty" yaml:"embedding,omitempty"`
}

// HasEmbedding reports whether the entry can take part in semantic scoring.
func (a *Attributes) HasEmbedding() bool {
	return a != nil && len(a.Embedding) > 0
}

// Item is a hackathon or a course.
type Item struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
	Attributes  `yaml:",inline"`
}

// Subteam belongs to exactly one Team.
type Subteam struct {
	Name       string `json:"name" yaml:"name"`
	Focus      string `json:"focus,omitempty" yaml:"focus,omitempty"`
	Attributes `yaml:",inline"`
}

// DisplayName returns the subteam name, falling back to DefaultSubteamName.
func (s *Subteam) DisplayName() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return DefaultSubteamName
}

// Team is a student organization with its ordered subteams.
type Team struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string     `json:"url,omitempty" yaml:"url,omitempty"`
	Tags        []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Embedding   []float32  `json:"embedding,omitempty" yaml:"embedding,omitempty"`
	Subteams    []*Subteam `json:"subteams" yaml:"subteams"`
}

// SubteamName renders the flattened display name of a subteam.
func SubteamName(team *Team, sub *Subteam) string {
	return fmt.Sprintf("%s – %s", team.Name, sub.DisplayName())
}

// Catalog is the read-only opportunity catalog. It is built once by Load or
// New and must not be mutated afterwards; sharing it between goroutines
// needs no locking.
type Catalog struct {
	Teams      []*Team `json:"student_teams" yaml:"student_teams"`
	Hackathons []*Item `json:"hackathons" yaml:"hackathons"`
	Courses    []*Item `json:"courses" yaml:"courses"`

	dimension int
	urls      map[string]string
}

// New finalizes a catalog assembled in memory: it normalizes attribute
// lists, records the embedding dimensionality and builds the URL lookup.
func New(teams []*Team, hackathons, courses []*Item) *Catalog {
	c := &Catalog{Teams: teams, Hackathons: hackathons, Courses: courses}
	c.index()
	return c
}

// Dimension is the embedding length of the catalog, or 0 when nothing is embedded.
func (c *Catalog) Dimension() int {
	return c.dimension
}

// URL returns the catalog-verified URL for a flattened display name.
func (c *Catalog) URL(name string) (string, bool) {
	url, ok := c.urls[name]
	return url, ok && url != ""
}

// Len returns the number of entries per category. Teams are counted by subteam.
func (c *Catalog) Len() map[Category]int {
	subteams := 0
	for _, team := range c.Teams {
		subteams += len(team.Subteams)
	}
	return map[Category]int{
		CategoryStudentTeams: subteams,
		CategoryHackathons:   len(c.Hackathons),
		CategoryCourses:      len(c.Courses),
	}
}

// MismatchedEmbeddings lists display names whose embedding length differs
// from the catalog dimension. Such entries always score zero semantically.
func (c *Catalog) MismatchedEmbeddings() []string {
	var names []string
	check := func(name string, vec []float32) {
		if len(vec) > 0 && len(vec) != c.dimension {
			names = append(names, name)
		}
	}

	for _, team := range c.Teams {
		for _, sub := range team.Subteams {
			check(SubteamName(team, sub), sub.Embedding)
		}
	}
	for _, item := range c.Hackathons {
		check(item.Name, item.Embedding)
	}
	for _, item := range c.Courses {
		check(item.Name, item.Embedding)
	}

	return names
}

func (c *Catalog) index() {
	c.urls = make(map[string]string)
	c.dimension = 0

	observe := func(vec []float32) {
		if c.dimension == 0 && len(vec) > 0 {
			c.dimension = len(vec)
		}
	}

	for _, team := range c.Teams {
		team.Tags = normalizeTerms(team.Tags)
		for _, sub := range team.Subteams {
			sub.Attributes.normalize()
			observe(sub.Embedding)
			c.urls[SubteamName(team, sub)] = team.URL
		}
	}

	for _, items := range [][]*Item{c.Hackathons, c.Courses} {
		for _, item := range items {
			item.Attributes.normalize()
			observe(item.Embedding)
			if _, exists := c.urls[item.Name]; !exists || c.urls[item.Name] == "" {
				c.urls[item.Name] = item.URL
			}
		}
	}
}

func (a *Attributes) normalize() {
	a.Tags = normalizeTerms(a.Tags)
	a.Skills = normalizeTerms(a.Skills)
	a.Tools = normalizeTerms(a.Tools)
}

// normalizeTerms lower-cases, trims and de-duplicates terms, keeping first-seen order.
func normalizeTerms(terms []string) []string {
	if len(terms) == 0 {
		return terms
	}

	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}
