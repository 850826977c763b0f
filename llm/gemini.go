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

type GeminiOptions struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	// Dimension is sent as outputDimensionality when > 0.
	Dimension int
	Timeout   time.Duration
}

// GeminiClient talks to the Generative Language REST API.
type GeminiClient struct {
	http           *resty.Client
	model          string
	embeddingModel string
	dimension      int
	breaker        *Breaker
}

func NewGeminiClient(opts GeminiOptions, logger *logrus.Logger) *GeminiClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.EmbeddingModel == "" {
		opts.EmbeddingModel = "models/gemini-embedding-001"
	}
	if !strings.HasPrefix(opts.EmbeddingModel, "models/") {
		opts.EmbeddingModel = "models/" + opts.EmbeddingModel
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", opts.APIKey)
	return &GeminiClient{
		http:           client,
		model:          opts.Model,
		embeddingModel: opts.EmbeddingModel,
		dimension:      opts.Dimension,
		breaker:        NewBreaker("gemini", opts.Timeout, logger),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiGenerateRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

type geminiEmbedRequest struct {
	Model                string        `json:"model"`
	Content              geminiContent `json:"content"`
	TaskType             string        `json:"taskType,omitempty"`
	OutputDimensionality int           `json:"outputDimensionality,omitempty"`
}

type geminiEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (g *GeminiClient) Complete(ctx context.Context, req Completion) (string, error) {
	return Call(ctx, g.breaker, func(ctx context.Context) (string, error) {
		body := geminiGenerateRequest{
			Contents:         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
			GenerationConfig: geminiGenerationConfig{Temperature: req.Temperature},
		}
		if req.System != "" {
			body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
		}
		var out geminiGenerateResponse
		resp, err := g.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&out).
			SetPathParam("model", g.model).
			Post("/models/{model}:generateContent")
		if err != nil {
			return "", fmt.Errorf("calling gemini: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode(), resp.String())
		}
		if len(out.Candidates) == 0 {
			return "", errors.New("gemini returned no candidates")
		}
		var sb strings.Builder
		for _, p := range out.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			return "", errors.New("gemini returned an empty candidate")
		}
		return text, nil
	})
}

func (g *GeminiClient) Generate(ctx context.Context, instruction string, context string) (string, error) {
	return g.Complete(ctx, Completion{System: instruction, Prompt: context, Temperature: defaultTemperature})
}

func (g *GeminiClient) Embed(ctx context.Context, text string, task EmbeddingTask) ([]float32, error) {
	return Call(ctx, g.breaker, func(ctx context.Context) ([]float32, error) {
		body := geminiEmbedRequest{
			Model:                g.embeddingModel,
			Content:              geminiContent{Parts: []geminiPart{{Text: text}}},
			TaskType:             string(task),
			OutputDimensionality: g.dimension,
		}
		var out geminiEmbedResponse
		resp, err := g.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&out).
			Post("/" + g.embeddingModel + ":embedContent")
		if err != nil {
			return nil, fmt.Errorf("calling gemini embed: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("gemini embed returned status %d: %s", resp.StatusCode(), resp.String())
		}
		if len(out.Embedding.Values) == 0 {
			return nil, errors.New("gemini returned an empty embedding")
		}
		return out.Embedding.Values, nil
	})
}
