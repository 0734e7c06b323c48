package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a catalog snapshot.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the snapshot format from a file extension. Anything
// that is not .yaml/.yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// teamRecord keeps subteams undecoded so a single malformed entry can be
// skipped without rejecting its team.
type teamRecord struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Tags        []string  `json:"tags"`
	Embedding   []float32 `json:"embedding"`
	Subteams    []any     `json:"subteams"`
}

// Load reads a catalog snapshot from disk.
func Load(path string, logger *zap.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %q: %w", path, err)
	}

	c, err := Decode(data, FormatFromPath(path), logger)
	if err != nil {
		return nil, fmt.Errorf("decode catalog %q: %w", path, err)
	}

	return c, nil
}

// Decode parses a snapshot. Only a document that is not an object at all is
// an error; malformed entries inside it are skipped with a warning.
func Decode(data []byte, format Format, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var doc map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}

	if doc == nil {
		return nil, fmt.Errorf("catalog snapshot is empty")
	}

	teams := decodeTeams(section(doc, CategoryStudentTeams, logger), logger)
	hackathons := decodeItems(section(doc, CategoryHackathons, logger), CategoryHackathons, logger)
	courses := decodeItems(section(doc, CategoryCourses, logger), CategoryCourses, logger)

	c := New(teams, hackathons, courses)

	if mismatched := c.MismatchedEmbeddings(); len(mismatched) > 0 {
		logger.Warn("catalog entries with unexpected embedding dimension will score zero",
			zap.Int("dimension", c.Dimension()),
			zap.Strings("entries", mismatched),
		)
	}

	counts := c.Len()
	logger.Debug("catalog decoded",
		zap.Int("teams", len(c.Teams)),
		zap.Int("subteams", counts[CategoryStudentTeams]),
		zap.Int("hackathons", counts[CategoryHackathons]),
		zap.Int("courses", counts[CategoryCourses]),
		zap.Int("dimension", c.Dimension()),
	)

	return c, nil
}

func section(doc map[string]any, category Category, logger *zap.Logger) []any {
	raw, ok := doc[string(category)]
	if !ok || raw == nil {
		return nil
	}

	entries, ok := raw.([]any)
	if !ok {
		logger.Warn("skipping malformed catalog section",
			zap.String("section", string(category)),
			zap.String("type", fmt.Sprintf("%T", raw)),
		)
		return nil
	}

	return entries
}

func decodeTeams(entries []any, logger *zap.Logger) []*Team {
	teams := make([]*Team, 0, len(entries))

	for i, entry := range entries {
		var record teamRecord
		if err := decodeEntry(entry, &record); err != nil {
			logger.Warn("skipping malformed team",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}

		team := &Team{
			Name:        record.Name,
			Description: record.Description,
			URL:         record.URL,
			Tags:        record.Tags,
			Embedding:   record.Embedding,
			Subteams:    make([]*Subteam, 0, len(record.Subteams)),
		}

		for j, rawSub := range record.Subteams {
			var sub Subteam
			if err := decodeEntry(rawSub, &sub); err != nil {
				logger.Warn("skipping malformed subteam",
					zap.String("team", team.Name),
					zap.Int("index", j),
					zap.Error(err),
				)
				continue
			}
			team.Subteams = append(team.Subteams, &sub)
		}

		teams = append(teams, team)
	}

	return teams
}

func decodeItems(entries []any, category Category, logger *zap.Logger) []*Item {
	items := make([]*Item, 0, len(entries))

	for i, entry := range entries {
		var item Item
		if err := decodeEntry(entry, &item); err != nil {
			logger.Warn("skipping malformed catalog entry",
				zap.String("section", string(category)),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		items = append(items, &item)
	}

	return items
}

// decodeEntry maps one raw snapshot object onto a typed record.
func decodeEntry(raw any, target any) error {
	fields, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("entry is %T, not an object", raw)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "json",
		Squash:  true,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(fields)
}

// Save writes the catalog snapshot in the requested format.
func Save(path string, c *Catalog) error {
	var (
		data []byte
		err  error
	)

	switch FormatFromPath(path) {
	case FormatYAML:
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	return os.Rename(tmp, path)
}
