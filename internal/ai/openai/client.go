package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/opportunity-matcher/internal/ai"
	"github.com/spigell/opportunity-matcher/internal/logger"
	"github.com/spigell/opportunity-matcher/internal/utils"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL        = "http://127.0.0.1:1234/v1"
	defaultChatModel      = "wizardlm-2-7b"
	defaultEmbeddingModel = "all-MiniLM-L6-v2"
	defaultTimeout        = 30 * time.Second
	defaultMaxLogLength   = 200
	providerName          = "openai"
	contentType           = "application/json"
)

// Config describes an OpenAI-compatible endpoint.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	Sampling       ai.Sampling
	// Timeout bounds every HTTP exchange on top of the caller's context.
	Timeout      time.Duration
	MaxLogLength int
}

// Client talks to any server exposing /chat/completions and /embeddings in
// the OpenAI wire format (OpenAI, OpenRouter, LM Studio, llama.cpp).
type Client struct {
	HTTPClient *http.Client

	baseURL        string
	apiKey         string
	model          string
	embeddingModel string
	sampling       ai.Sampling
	maxLogLen      int
	logger         *zap.Logger
}

// New creates a client, applying defaults for empty fields.
func New(cfg Config, log *zap.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultChatModel
	}

	embeddingModel := strings.TrimSpace(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Client{
		HTTPClient:     &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		model:          model,
		embeddingModel: embeddingModel,
		sampling:       cfg.Sampling.WithDefaults(),
		maxLogLen:      maxLogLen,
		logger:         logger.WithCommonFields(log, providerName, model),
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Generate sends a single chat completion request and returns the first
// choice's content.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt must not be empty", ai.ErrModelCall)
	}

	messages := make([]message, 0, 2)
	if system = strings.TrimSpace(system); system != "" {
		messages = append(messages, message{Role: "system", Content: system})
	}
	messages = append(messages, message{Role: "user", Content: prompt})

	req := chatCompletionsRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.sampling.Temperature,
		MaxTokens:   c.sampling.MaxTokens,
	}

	c.logger.Debug("chat completion request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
	)

	var resp chatCompletionsResponse
	if err := c.post(ctx, "/chat/completions", req, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", ai.ErrModelCall, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned by model", ai.ErrModelCall)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: model returned empty content (finish reason %q)", ai.ErrModelCall, resp.Choices[0].FinishReason)
	}

	c.logger.Debug("chat completion response",
		zap.String("finish_reason", resp.Choices[0].FinishReason),
		zap.Int("response_length", utf8.RuneCountInString(content)),
		zap.String("response_preview", utils.TruncateForLog(content, c.maxLogLen)),
	)

	return content, nil
}

// Model returns the chat model name.
func (c *Client) Model() string {
	return c.model
}

// Embed returns one vector per input text, ordered by the response indices.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	clean := make([]string, len(texts))
	for i, text := range texts {
		if text = strings.TrimSpace(text); text == "" {
			text = " "
		}
		clean[i] = text
	}

	var resp embeddingsResponse
	if err := c.post(ctx, "/embeddings", embeddingsRequest{Model: c.embeddingModel, Input: clean}, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrEmbedding, err)
	}

	out := make([][]float32, len(clean))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[d.Index] = vec
	}

	for i := range out {
		if len(out[i]) == 0 {
			return nil, fmt.Errorf("%w: embeddings missing index %d: requested=%d returned=%d model=%s",
				ai.ErrEmbedding, i, len(clean), len(resp.Data), c.embeddingModel)
		}
	}

	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bad status %s: %s", resp.Status, utils.TruncateForLog(string(payload), c.maxLogLen))
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
