package retrieval

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/matraxtyres/tyre_assistant/llm"
	"github.com/matraxtyres/tyre_assistant/models"
)

type memoryPoint struct {
	id      string
	vector  []float32
	payload map[string]any
}

// MemorySearcher is an in-process vector store for local runs and tests.
type MemorySearcher struct {
	embedder llm.Embedder

	mu          sync.RWMutex
	collections map[string][]memoryPoint
}

func NewMemorySearcher(embedder llm.Embedder) *MemorySearcher {
	return &MemorySearcher{
		embedder:    embedder,
		collections: make(map[string][]memoryPoint),
	}
}

// IndexRecords embeds and stores every record, replacing points with the same id.
func (m *MemorySearcher) IndexRecords(ctx context.Context, records []models.IndexRecord) (int, error) {
	for _, r := range records {
		vector, err := m.embedder.Embed(ctx, r.Text, llm.TaskRetrievalDocument)
		if err != nil {
			return 0, err
		}
		m.store(r.Collection, memoryPoint{id: strconv.Itoa(r.Id), vector: vector, payload: r.Payload})
	}
	return len(records), nil
}

func (m *MemorySearcher) store(collection string, p memoryPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	points := m.collections[collection]
	for i := range points {
		if points[i].id == p.id {
			points[i] = p
			return
		}
	}
	m.collections[collection] = append(points, p)
}

func (m *MemorySearcher) Search(ctx context.Context, collection string, query string, limit int) ([]models.RetrievalHit, error) {
	vector, err := m.embedder.Embed(ctx, query, llm.TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	points := m.collections[collection]
	hits := make([]models.RetrievalHit, 0, len(points))
	for _, p := range points {
		hits = append(hits, models.RetrievalHit{
			Collection: collection,
			Id:         p.id,
			Score:      cosineSimilarity(vector, p.vector),
			Payload:    p.payload,
		})
	}
	m.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
