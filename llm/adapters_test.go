package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestGeminiGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/test-model:generateContent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "secret" {
			t.Errorf("missing api key header")
		}
		var body geminiGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.SystemInstruction == nil || body.SystemInstruction.Parts[0].Text != "be brief" {
			t.Errorf("system instruction not sent: %+v", body.SystemInstruction)
		}
		writeJSON(w, map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{
					map[string]any{"text": "Hello "},
					map[string]any{"text": "there!"},
				}}},
			},
		})
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiOptions{BaseURL: server.URL, APIKey: "secret", Model: "test-model", Timeout: time.Second}, nil)
	got, err := client.Generate(context.Background(), "be brief", "say hi")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "Hello there!" {
		t.Fatalf("unexpected response: %q", got)
	}
}

func TestGeminiEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/embed-model:embedContent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body geminiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.TaskType != string(TaskRetrievalQuery) {
			t.Errorf("task type = %q", body.TaskType)
		}
		if body.OutputDimensionality != 3 {
			t.Errorf("dimension = %d", body.OutputDimensionality)
		}
		writeJSON(w, map[string]any{"embedding": map[string]any{"values": []float32{0.1, 0.2, 0.3}}})
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiOptions{BaseURL: server.URL, APIKey: "k", EmbeddingModel: "embed-model", Dimension: 3}, nil)
	vec, err := client.Embed(context.Background(), "bmw 320i", TaskRetrievalQuery)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("embedding length = %d", len(vec))
	}
}

func TestGeminiServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiOptions{BaseURL: server.URL, APIKey: "k"}, nil)
	if _, err := client.Generate(context.Background(), "x", "y"); err == nil {
		t.Fatalf("should error on 500")
	}
}

func TestOllamaGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Stream {
			t.Errorf("stream should be off")
		}
		writeJSON(w, map[string]any{"response": "Hello there!", "done": true})
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaOptions{BaseURL: server.URL, Model: "test-model"}, nil)
	got, err := client.Complete(context.Background(), Completion{Prompt: "Hi"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if got != "Hello there!" {
		t.Fatalf("unexpected response: %s", got)
	}
}

func TestOllamaEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		writeJSON(w, map[string]any{"embedding": []float32{1, 0}})
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaOptions{BaseURL: server.URL}, nil)
	vec, err := client.Embed(context.Background(), "x", TaskRetrievalDocument)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("embedding length = %d", len(vec))
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaOptions{BaseURL: server.URL}, nil)
	for i := 0; i < 3; i++ {
		if _, err := client.Complete(context.Background(), Completion{Prompt: "x"}); err == nil {
			t.Fatalf("call %d should fail", i)
		}
	}
	_, err := client.Complete(context.Background(), Completion{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "open") {
		t.Fatalf("expected open breaker error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("server calls = %d, want 3", calls)
	}
}
