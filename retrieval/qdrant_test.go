package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/matraxtyres/tyre_assistant/llm"
	"github.com/matraxtyres/tyre_assistant/models"
)

type fixedEmbedder struct {
	mu    sync.Mutex
	tasks []llm.EmbeddingTask
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string, task llm.EmbeddingTask) ([]float32, error) {
	f.mu.Lock()
	f.tasks = append(f.tasks, task)
	f.mu.Unlock()
	return []float32{0.1, 0.2, 0.3}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestQdrantSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/tyres/points/search" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("api-key") != "secret" {
			t.Errorf("missing api key")
		}
		var body qdrantSearchRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Limit != 5 || !body.WithPayload || len(body.Vector) != 3 {
			t.Errorf("unexpected body: %+v", body)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"result": []any{
				map[string]any{"id": 12, "score": 0.81, "payload": map[string]any{"model": "Pilot Sport 5"}},
				map[string]any{"id": "a-uuid", "score": 0.3, "payload": map[string]any{"model": "Primacy 4"}},
			},
		})
	}))
	defer server.Close()

	embedder := &fixedEmbedder{}
	searcher := NewQdrantSearcher(QdrantOptions{BaseURL: server.URL, APIKey: "secret", Timeout: time.Second}, embedder, nil)
	hits, err := searcher.Search(context.Background(), models.CollectionTyres, "michelin", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d", len(hits))
	}
	if hits[0].Id != "12" || hits[1].Id != "a-uuid" {
		t.Fatalf("ids = %q, %q", hits[0].Id, hits[1].Id)
	}
	if hits[0].Score != 0.81 || hits[0].Collection != models.CollectionTyres {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}
	if len(embedder.tasks) != 1 || embedder.tasks[0] != llm.TaskRetrievalQuery {
		t.Fatalf("query must be embedded with the query task: %v", embedder.tasks)
	}
}

func TestQdrantSearchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": map[string]any{"error": "Not found"}})
	}))
	defer server.Close()

	searcher := NewQdrantSearcher(QdrantOptions{BaseURL: server.URL}, &fixedEmbedder{}, nil)
	if _, err := searcher.Search(context.Background(), "missing", "x", 5); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestQdrantIndexRecords(t *testing.T) {
	var mu sync.Mutex
	created := map[string]bool{}
	upserted := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/car_brands":
			writeJSON(w, http.StatusOK, map[string]any{"result": map[string]any{}})
		case r.Method == http.MethodGet:
			writeJSON(w, http.StatusNotFound, map[string]any{})
		case r.Method == http.MethodPut && r.URL.Path == "/collections/tyres":
			var body qdrantCreateCollectionRequest
			json.NewDecoder(r.Body).Decode(&body)
			if body.Vectors.Size != 3 || body.Vectors.Distance != "Cosine" {
				t.Errorf("unexpected create body: %+v", body)
			}
			created["tyres"] = true
			writeJSON(w, http.StatusOK, map[string]any{"result": true})
		case r.Method == http.MethodPut:
			if r.URL.Query().Get("wait") != "true" {
				t.Errorf("upsert should wait")
			}
			var body qdrantUpsertRequest
			json.NewDecoder(r.Body).Decode(&body)
			upserted[r.URL.Path] += len(body.Points)
			writeJSON(w, http.StatusOK, map[string]any{"result": map[string]any{"status": "completed"}})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	embedder := &fixedEmbedder{}
	searcher := NewQdrantSearcher(QdrantOptions{BaseURL: server.URL}, embedder, nil)
	n, err := searcher.IndexRecords(context.Background(), []models.IndexRecord{
		{Collection: models.CollectionCarBrands, Id: 1, Text: "BMW", Payload: map[string]any{"name": "BMW"}},
		{Collection: models.CollectionTyres, Id: 1, Text: "Michelin Pilot Sport 5 225/45R18"},
		{Collection: models.CollectionTyres, Id: 2, Text: "Michelin Primacy 4 225/50R17"},
	}, 3)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if n != 3 {
		t.Fatalf("indexed = %d", n)
	}
	if !created["tyres"] {
		t.Fatalf("missing collection was not created")
	}
	if upserted["/collections/tyres/points"] != 2 || upserted["/collections/car_brands/points"] != 1 {
		t.Fatalf("unexpected upserts: %v", upserted)
	}
	for _, task := range embedder.tasks {
		if task != llm.TaskRetrievalDocument {
			t.Fatalf("records must be embedded as documents, got %q", task)
		}
	}
}
