package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/opportunity-matcher/internal/ai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultEmbedWorkers = 4

// EmbedOptions control EmbedAll.
type EmbedOptions struct {
	Workers int
	// Force recomputes embeddings that are already present.
	Force bool
}

// EmbedStats reports what EmbedAll did.
type EmbedStats struct {
	Embedded int
	Skipped  int
}

type embedJob struct {
	name   string
	text   string
	target *[]float32
}

// EmbedAll computes embeddings for teams, subteams, hackathons and courses
// from their name, description (or focus) and tags. It is an offline build
// step: it mutates c and must not run while the catalog is being served.
func EmbedAll(ctx context.Context, c *Catalog, embedder ai.Embedder, opts EmbedOptions, logger *zap.Logger) (EmbedStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultEmbedWorkers
	}

	var (
		jobs  []embedJob
		stats EmbedStats
	)

	add := func(name, text string, target *[]float32) {
		if len(*target) > 0 && !opts.Force {
			stats.Skipped++
			return
		}
		jobs = append(jobs, embedJob{name: name, text: text, target: target})
	}

	for _, team := range c.Teams {
		add(team.Name, EmbeddingText(team.Name, team.Description, team.Tags), &team.Embedding)
		for _, sub := range team.Subteams {
			add(SubteamName(team, sub), EmbeddingText(sub.Name, sub.Focus, sub.Tags), &sub.Embedding)
		}
	}
	for _, items := range [][]*Item{c.Hackathons, c.Courses} {
		for _, item := range items {
			add(item.Name, EmbeddingText(item.Name, item.Description, item.Tags), &item.Embedding)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			vectors, err := embedder.Embed(gctx, []string{job.text})
			if err != nil {
				return fmt.Errorf("embed %q: %w", job.name, err)
			}
			if len(vectors) != 1 || len(vectors[0]) == 0 {
				return fmt.Errorf("embed %q: %w: got %d vectors", job.name, ai.ErrEmbedding, len(vectors))
			}

			// Each job owns its target slot.
			*job.target = vectors[0]

			logger.Debug("entry embedded",
				zap.String("name", job.name),
				zap.Int("dimension", len(vectors[0])),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	stats.Embedded = len(jobs)
	c.index()

	return stats, nil
}

// EmbeddingText joins the fields an entry is embedded from.
func EmbeddingText(name, description string, tags []string) string {
	parts := make([]string, 0, 2+len(tags))
	for _, part := range append([]string{name, description}, tags...) {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}
