package cmd

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDecodeConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	config, err := decodeConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Catalog != "teams_with_embeddings.json" {
		t.Fatalf("unexpected catalog %q", config.Catalog)
	}
	if config.Server.Listen != ":3000" || len(config.Server.AllowedOrigins) != 0 {
		t.Fatalf("unexpected server config %+v", config.Server)
	}
	if config.Ranking.Weights.Semantic != 0.5 || config.Ranking.Weights.Skills != 0.3 || config.Ranking.Weights.Tools != 0.2 {
		t.Fatalf("unexpected weights %+v", config.Ranking.Weights)
	}
	if config.Ranking.SubteamsPerTeam != 2 || config.Ranking.Teams != 3 || config.Ranking.Hackathons != 3 {
		t.Fatalf("unexpected limits %+v", config.Ranking.Limits)
	}
	if config.Prompt.MaxItems != 5 || config.Prompt.MaxChars != 1000 {
		t.Fatalf("unexpected prompt limits %+v", config.Prompt)
	}
	if config.LLM.Timeout != 30*time.Second || config.LLM.MaxTokens != 2048 || config.LLM.Temperature != 0.3 {
		t.Fatalf("unexpected llm config %+v", config.LLM)
	}
	if config.LLM.FallbackReason != "Relevant opportunity." {
		t.Fatalf("unexpected fallback reason %q", config.LLM.FallbackReason)
	}
	if config.LLM.OpenAI.BaseURL != "http://127.0.0.1:1234/v1" || config.LLM.OpenAI.Model != "wizardlm-2-7b" {
		t.Fatalf("unexpected openai config %+v", config.LLM.OpenAI)
	}
	if config.Embedding.Timeout != 15*time.Second || config.Embedding.OpenAI.Model != "all-MiniLM-L6-v2" {
		t.Fatalf("unexpected embedding config %+v", config.Embedding)
	}
	if len(config.Vocabulary.Topics["ai"]) == 0 || len(config.Vocabulary.Tools) != 5 {
		t.Fatalf("unexpected vocabulary %+v", config.Vocabulary)
	}
}

func TestDecodeConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("OPPORTUNITY_LLM_PROVIDER", "gemini")
	t.Setenv("OPPORTUNITY_RANKING_SUBTEAMS_PER_TEAM", "4")
	t.Setenv("OPPORTUNITY_LLM_TIMEOUT", "5s")

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	config, err := decodeConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.LLM.Provider != "gemini" {
		t.Fatalf("expected provider override, got %q", config.LLM.Provider)
	}
	if config.Ranking.SubteamsPerTeam != 4 {
		t.Fatalf("expected subteams override, got %d", config.Ranking.SubteamsPerTeam)
	}
	if config.LLM.Timeout != 5*time.Second {
		t.Fatalf("expected timeout override, got %s", config.LLM.Timeout)
	}
}

func TestProviderName(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "", want: providerOpenAI},
		{input: "OpenAI", want: providerOpenAI},
		{input: " gemini ", want: providerGemini},
		{input: "anthropic", wantErr: true},
	}

	for _, tt := range tests {
		got, err := providerName(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("providerName(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
		}
	}
}
