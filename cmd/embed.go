package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/opportunity-matcher/internal/catalog"
	"github.com/spigell/opportunity-matcher/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Compute catalog embeddings and write the snapshot used by serve",
	Run: func(cmd *cobra.Command, _ []string) {
		embed(cmd)
	},
}

func init() {
	rootCmd.AddCommand(embedCmd)

	embedCmd.Flags().StringP("output", "o", "", "where to write the embedded catalog (default is the input catalog)")
	embedCmd.Flags().IntP("workers", "w", 0, "number of concurrent embedding requests")
	embedCmd.Flags().Bool("force", false, "recompute embeddings that are already present")

	viper.BindPFlag("embed.output", embedCmd.Flags().Lookup("output"))
	viper.BindPFlag("embed.workers", embedCmd.Flags().Lookup("workers"))
}

func embed(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	c, err := catalog.Load(config.Catalog, logger)
	if err != nil {
		logger.Fatal("loading the catalog", zap.Error(err))
	}

	embedder, err := newEmbedder(ctx, config.Embedding, config.LLM.MaxLogLength, logger)
	if err != nil {
		logger.Fatal("embedding provider", zap.Error(err))
	}

	force, _ := cmd.Flags().GetBool("force")

	stats, err := catalog.EmbedAll(ctx, c, embedder, catalog.EmbedOptions{
		Workers: config.Embed.Workers,
		Force:   force,
	}, logger)
	if err != nil {
		logger.Fatal("embedding the catalog", zap.Error(err))
	}

	output := config.Embed.Output
	if output == "" {
		output = config.Catalog
	}

	if err := catalog.Save(output, c); err != nil {
		logger.Fatal("saving the catalog", zap.Error(err))
	}

	logger.Info("catalog embedded",
		zap.String("output", output),
		zap.Int("embedded", stats.Embedded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("dimension", c.Dimension()),
	)
}
