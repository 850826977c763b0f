package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

type OllamaOptions struct {
	BaseURL        string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
}

// OllamaClient is the local-model adapter.
type OllamaClient struct {
	http           *resty.Client
	model          string
	embeddingModel string
	breaker        *Breaker
}

func NewOllamaClient(opts OllamaOptions, logger *logrus.Logger) *OllamaClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:11434"
	}
	if opts.Model == "" {
		opts.Model = "llama3.1"
	}
	if opts.EmbeddingModel == "" {
		opts.EmbeddingModel = "nomic-embed-text"
	}
	return &OllamaClient{
		http: resty.New().
			SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
			SetHeader("Content-Type", "application/json"),
		model:          opts.Model,
		embeddingModel: opts.EmbeddingModel,
		breaker:        NewBreaker("ollama", opts.Timeout, logger),
	}
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (o *OllamaClient) Complete(ctx context.Context, req Completion) (string, error) {
	return Call(ctx, o.breaker, func(ctx context.Context) (string, error) {
		var out ollamaGenerateResponse
		resp, err := o.http.R().
			SetContext(ctx).
			SetBody(ollamaGenerateRequest{
				Model:   o.model,
				Prompt:  req.Prompt,
				System:  req.System,
				Stream:  false,
				Options: map[string]any{"temperature": req.Temperature},
			}).
			SetResult(&out).
			Post("/api/generate")
		if err != nil {
			return "", fmt.Errorf("calling ollama: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return "", fmt.Errorf("ollama returned status %d", resp.StatusCode())
		}
		text := strings.TrimSpace(out.Response)
		if text == "" {
			return "", errors.New("ollama returned an empty response")
		}
		return text, nil
	})
}

func (o *OllamaClient) Generate(ctx context.Context, instruction string, context string) (string, error) {
	return o.Complete(ctx, Completion{System: instruction, Prompt: context, Temperature: defaultTemperature})
}

// Embed ignores the task; Ollama embedding models take no task hint.
func (o *OllamaClient) Embed(ctx context.Context, text string, _ EmbeddingTask) ([]float32, error) {
	return Call(ctx, o.breaker, func(ctx context.Context) ([]float32, error) {
		var out ollamaEmbedResponse
		resp, err := o.http.R().
			SetContext(ctx).
			SetBody(ollamaEmbedRequest{Model: o.embeddingModel, Prompt: text}).
			SetResult(&out).
			Post("/api/embeddings")
		if err != nil {
			return nil, fmt.Errorf("calling ollama embeddings: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("ollama embeddings returned status %d", resp.StatusCode())
		}
		if len(out.Embedding) == 0 {
			return nil, errors.New("ollama returned an empty embedding")
		}
		return out.Embedding, nil
	})
}
