package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spigell/opportunity-matcher/internal/logger"
	"github.com/spigell/opportunity-matcher/internal/recommend"
	"github.com/spigell/opportunity-matcher/internal/reconcile"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptAnother = "Recommend for another description"
	PromptExit    = "Exit"
)

var errEmptyDescription = errors.New("job description must not be empty")

var recommendCmd = &cobra.Command{
	Use:   "recommend [job description]",
	Short: "Print recommendations for a single job description as JSON",
	Long: "Print recommendations for a job description given as arguments, read from --file, " +
		"or typed interactively when neither is provided.",
	Run: func(cmd *cobra.Command, args []string) {
		runRecommend(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringP("file", "f", "", "read the job description from a file ('-' for stdin)")
}

func runRecommend(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	svc, _, err := newService(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the recommendation pipeline", zap.Error(err))
	}

	description, interactive, err := readDescription(cmd, args)
	if err != nil {
		logger.Fatal("reading the job description", zap.Error(err))
	}

	for {
		if err := recommendOnce(ctx, svc, description, logger); err != nil && !interactive {
			os.Exit(1)
		}

		if !interactive {
			return
		}

		next := promptui.Select{
			Label: "Next?",
			Items: []string{PromptAnother, PromptExit},
		}
		_, action, err := next.Run()
		if err != nil || action == PromptExit {
			return
		}

		if description, err = askDescription(); err != nil {
			logger.Fatal("reading the job description", zap.Error(err))
		}
	}
}

func recommendOnce(ctx context.Context, svc *recommend.Service, description string, logger *zap.Logger) error {
	result, err := svc.Recommend(ctx, description)
	if err != nil {
		recErr := recommend.Classify(err, 0)
		printJSON(map[string]any{
			"error": recErr.Message,
			"code":  recErr.Code,
			"raw":   recErr.Raw,
		}, logger)
		return err
	}

	printJSON(result, logger)
	logSummary(result, logger)
	return nil
}

func printJSON(v any, logger *zap.Logger) {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Error("encoding output", zap.Error(err))
		return
	}
	fmt.Println(string(pretty))
}

func logSummary(result *reconcile.Result, logger *zap.Logger) {
	logger.Debug("recommendations",
		zap.Int("student_teams", len(result.StudentTeams)),
		zap.Int("hackathons", len(result.Hackathons)),
		zap.Int("courses", len(result.Courses)),
	)
}

// readDescription resolves the description from args, --file or an
// interactive prompt. The boolean reports whether the prompt was used.
func readDescription(cmd *cobra.Command, args []string) (string, bool, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), false, nil
	}

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		var (
			data []byte
			err  error
		)
		if path == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return "", false, fmt.Errorf("read %q: %w", path, err)
		}
		return string(data), false, nil
	}

	description, err := askDescription()
	return description, true, err
}

func askDescription() (string, error) {
	p := promptui.Prompt{
		Label: "Job description",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errEmptyDescription
			}
			return nil
		},
	}

	return p.Run()
}
