// Package llm holds the language-model adapters: text generation, embeddings
// and the turn classifier built on top of them.
package llm

import (
	"context"
	"fmt"

	"github.com/matraxtyres/tyre_assistant/config"
	"github.com/sirupsen/logrus"
)

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"

	defaultTemperature = 0.3
)

type EmbeddingTask string

const (
	TaskRetrievalQuery    EmbeddingTask = "RETRIEVAL_QUERY"
	TaskRetrievalDocument EmbeddingTask = "RETRIEVAL_DOCUMENT"
)

// Completion is one single-turn request to a text model.
type Completion struct {
	System      string
	Prompt      string
	Temperature float64
}

type TextGenerator interface {
	Complete(ctx context.Context, req Completion) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string, task EmbeddingTask) ([]float32, error)
}

// Client is what a provider adapter offers: completions, embeddings and the
// instruction/context Generate call used by the composer.
type Client interface {
	TextGenerator
	Embedder
	Generate(ctx context.Context, instruction string, context string) (string, error)
}

// NewClient picks the provider named by LLM_PROVIDER.
func NewClient(cfg *config.Config, logger *logrus.Logger) (Client, error) {
	switch cfg.LLMProvider {
	case ProviderGemini, "":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for provider %q", ProviderGemini)
		}
		return NewGeminiClient(GeminiOptions{
			BaseURL:        cfg.GeminiBaseURL,
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			EmbeddingModel: cfg.GeminiEmbeddingModel,
			Dimension:      cfg.EmbeddingDimension,
			Timeout:        cfg.LLMTimeout(),
		}, logger), nil
	case ProviderOllama:
		return NewOllamaClient(OllamaOptions{
			BaseURL:        cfg.OllamaURL,
			Model:          cfg.OllamaModel,
			EmbeddingModel: cfg.OllamaEmbeddingModel,
			Timeout:        cfg.LLMTimeout(),
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
