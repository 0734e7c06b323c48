package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spigell/opportunity-matcher/internal/ai/openai"
	"github.com/spigell/opportunity-matcher/internal/prompt"
	"github.com/spigell/opportunity-matcher/internal/query"
	"github.com/spigell/opportunity-matcher/internal/ranking"
	"github.com/spigell/opportunity-matcher/internal/reconcile"
	"github.com/spigell/opportunity-matcher/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "opportunity-matcher"
	envPrefix = "OPPORTUNITY"
)

type Config struct {
	Catalog    string           `mapstructure:"catalog"`
	Server     server.Config    `mapstructure:"server"`
	Vocabulary query.Vocabulary `mapstructure:"vocabulary"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
	Prompt     prompt.Limits    `mapstructure:"prompt"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Embed      EmbedConfig      `mapstructure:"embed"`
}

type RankingConfig struct {
	Weights        ranking.Weights `mapstructure:"weights"`
	ranking.Limits `mapstructure:",squash"`
}

type LLMConfig struct {
	Provider       string         `mapstructure:"provider"`
	Timeout        time.Duration  `mapstructure:"timeout"`
	Temperature    float32        `mapstructure:"temperature"`
	MaxTokens      int            `mapstructure:"max-tokens"`
	FallbackReason string         `mapstructure:"fallback-reason"`
	MaxLogLength   int            `mapstructure:"max-log-length"`
	OpenAI         ProviderConfig `mapstructure:"openai"`
	Gemini         ProviderConfig `mapstructure:"gemini"`
}

type EmbeddingConfig struct {
	Provider string         `mapstructure:"provider"`
	Timeout  time.Duration  `mapstructure:"timeout"`
	OpenAI   ProviderConfig `mapstructure:"openai"`
	Gemini   ProviderConfig `mapstructure:"gemini"`
}

// ProviderConfig is shared by every model provider. BaseURL only applies to
// OpenAI-compatible endpoints.
type ProviderConfig struct {
	BaseURL    string `mapstructure:"base-url"`
	Model      string `mapstructure:"model"`
	APIKeyFile string `mapstructure:"api-key-file"`
	APIKeyEnv  string `mapstructure:"api-key-env"`
}

type EmbedConfig struct {
	Workers int    `mapstructure:"workers"`
	Output  string `mapstructure:"output"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "opportunity-matcher recommends student teams, hackathons and courses for a job description",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is opportunity-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().StringP("catalog", "c", "", "catalog snapshot (json or yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("catalog", rootCmd.PersistentFlags().Lookup("catalog"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	vocabulary := query.DefaultVocabulary()
	weights := ranking.DefaultWeights()
	limits := ranking.DefaultLimits()

	v.SetDefault("catalog", "teams_with_embeddings.json")

	v.SetDefault("server.listen", server.DefaultListen)
	v.SetDefault("server.allowed-origins", []string{})

	v.SetDefault("vocabulary.skills", vocabulary.Skills)
	v.SetDefault("vocabulary.tools", vocabulary.Tools)
	v.SetDefault("vocabulary.topics", vocabulary.Topics)

	v.SetDefault("ranking.weights.semantic", weights.Semantic)
	v.SetDefault("ranking.weights.skills", weights.Skills)
	v.SetDefault("ranking.weights.tools", weights.Tools)
	v.SetDefault("ranking.subteams-per-team", limits.SubteamsPerTeam)
	v.SetDefault("ranking.teams", limits.Teams)
	v.SetDefault("ranking.hackathons", limits.Hackathons)

	v.SetDefault("prompt.max-items", prompt.DefaultMaxItems)
	v.SetDefault("prompt.max-chars", prompt.DefaultMaxChars)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max-tokens", 2048)
	v.SetDefault("llm.fallback-reason", reconcile.DefaultFallbackReason)
	v.SetDefault("llm.max-log-length", 2000)
	v.SetDefault("llm.openai.base-url", openai.DefaultBaseURL)
	v.SetDefault("llm.openai.model", "wizardlm-2-7b")
	v.SetDefault("llm.openai.api-key-file", "")
	v.SetDefault("llm.openai.api-key-env", "OPENAI_API_KEY")
	v.SetDefault("llm.gemini.model", "gemini-2.5-flash")
	v.SetDefault("llm.gemini.api-key-file", "")
	v.SetDefault("llm.gemini.api-key-env", "GEMINI_API_KEY")

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.timeout", 15*time.Second)
	v.SetDefault("embedding.openai.base-url", openai.DefaultBaseURL)
	v.SetDefault("embedding.openai.model", "all-MiniLM-L6-v2")
	v.SetDefault("embedding.openai.api-key-file", "")
	v.SetDefault("embedding.openai.api-key-env", "OPENAI_API_KEY")
	v.SetDefault("embedding.gemini.model", "text-embedding-004")
	v.SetDefault("embedding.gemini.api-key-file", "")
	v.SetDefault("embedding.gemini.api-key-env", "GEMINI_API_KEY")

	v.SetDefault("embed.workers", 4)
	v.SetDefault("embed.output", "")
}

// bindEnv maps every key onto OPPORTUNITY_<KEY>, e.g. llm.openai.base-url
// becomes OPPORTUNITY_LLM_OPENAI_BASE_URL.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func initConfig() {
	bindEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	err := viper.ReadInConfig()
	if err == nil {
		return
	}

	// Without an explicit --config every key has a usable default.
	var notFound viper.ConfigFileNotFoundError
	if cfgFile == "" && errors.As(err, &notFound) {
		return
	}

	// We can't proceed if the config file parsed with error.
	log.Fatal(err)
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}

	return config, nil
}
