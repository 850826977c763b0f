package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/matraxtyres/tyre_assistant/llm"
	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/sirupsen/logrus"
)

type QdrantOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// QdrantSearcher embeds the query and searches a Qdrant collection over REST.
type QdrantSearcher struct {
	http     *resty.Client
	embedder llm.Embedder
	breaker  *llm.Breaker
}

func NewQdrantSearcher(opts QdrantOptions, embedder llm.Embedder, logger *logrus.Logger) *QdrantSearcher {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:6333"
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Content-Type", "application/json")
	if opts.APIKey != "" {
		client.SetHeader("api-key", opts.APIKey)
	}
	return &QdrantSearcher{
		http:     client,
		embedder: embedder,
		breaker:  llm.NewBreaker("qdrant", opts.Timeout, logger),
	}
}

type qdrantSearchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type qdrantScoredPoint struct {
	Id      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

type qdrantSearchResponse struct {
	Result []qdrantScoredPoint `json:"result"`
	Status any                 `json:"status"`
}

type QdrantPoint struct {
	Id      int            `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type qdrantUpsertRequest struct {
	Points []QdrantPoint `json:"points"`
}

type qdrantCreateCollectionRequest struct {
	Vectors struct {
		Size     int    `json:"size"`
		Distance string `json:"distance"`
	} `json:"vectors"`
}

func (q *QdrantSearcher) Search(ctx context.Context, collection string, query string, limit int) ([]models.RetrievalHit, error) {
	vector, err := q.embedder.Embed(ctx, query, llm.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return llm.Call(ctx, q.breaker, func(ctx context.Context) ([]models.RetrievalHit, error) {
		var out qdrantSearchResponse
		resp, err := q.http.R().
			SetContext(ctx).
			SetPathParam("collection", collection).
			SetBody(qdrantSearchRequest{Vector: vector, Limit: limit, WithPayload: true}).
			SetResult(&out).
			Post("/collections/{collection}/points/search")
		if err != nil {
			return nil, fmt.Errorf("calling qdrant: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("qdrant search %s returned status %d: %s", collection, resp.StatusCode(), resp.String())
		}
		hits := make([]models.RetrievalHit, 0, len(out.Result))
		for _, p := range out.Result {
			hits = append(hits, models.RetrievalHit{
				Collection: collection,
				Id:         strings.Trim(string(p.Id), `"`),
				Score:      p.Score,
				Payload:    p.Payload,
			})
		}
		return hits, nil
	})
}

// EnsureCollection creates a cosine collection of the given dimension when missing.
func (q *QdrantSearcher) EnsureCollection(ctx context.Context, collection string, dimension int) (bool, error) {
	resp, err := q.http.R().
		SetContext(ctx).
		SetPathParam("collection", collection).
		Get("/collections/{collection}")
	if err != nil {
		return false, fmt.Errorf("calling qdrant: %w", err)
	}
	if resp.StatusCode() == http.StatusOK {
		return false, nil
	}
	if resp.StatusCode() != http.StatusNotFound {
		return false, fmt.Errorf("qdrant get collection %s returned status %d", collection, resp.StatusCode())
	}

	var body qdrantCreateCollectionRequest
	body.Vectors.Size = dimension
	body.Vectors.Distance = "Cosine"
	resp, err = q.http.R().
		SetContext(ctx).
		SetPathParam("collection", collection).
		SetBody(body).
		Put("/collections/{collection}")
	if err != nil {
		return false, fmt.Errorf("calling qdrant: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return false, fmt.Errorf("qdrant create collection %s returned status %d: %s", collection, resp.StatusCode(), resp.String())
	}
	return true, nil
}

// Upsert writes points and waits for them to be indexed.
func (q *QdrantSearcher) Upsert(ctx context.Context, collection string, points []QdrantPoint) error {
	if len(points) == 0 {
		return nil
	}
	resp, err := q.http.R().
		SetContext(ctx).
		SetPathParam("collection", collection).
		SetQueryParam("wait", "true").
		SetBody(qdrantUpsertRequest{Points: points}).
		Put("/collections/{collection}/points")
	if err != nil {
		return fmt.Errorf("calling qdrant: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("qdrant upsert %s returned status %d: %s", collection, resp.StatusCode(), resp.String())
	}
	return nil
}

// IndexRecords embeds each record as a document and upserts it, one collection at a time.
func (q *QdrantSearcher) IndexRecords(ctx context.Context, records []models.IndexRecord, dimension int) (int, error) {
	byCollection := make(map[string][]QdrantPoint)
	var order []string
	for _, r := range records {
		if _, ok := byCollection[r.Collection]; !ok {
			order = append(order, r.Collection)
			if _, err := q.EnsureCollection(ctx, r.Collection, dimension); err != nil {
				return 0, err
			}
		}
		vector, err := q.embedder.Embed(ctx, r.Text, llm.TaskRetrievalDocument)
		if err != nil {
			return 0, fmt.Errorf("embed %s/%d: %w", r.Collection, r.Id, err)
		}
		byCollection[r.Collection] = append(byCollection[r.Collection], QdrantPoint{Id: r.Id, Vector: vector, Payload: r.Payload})
	}
	indexed := 0
	for _, collection := range order {
		points := byCollection[collection]
		if err := q.Upsert(ctx, collection, points); err != nil {
			return indexed, err
		}
		indexed += len(points)
	}
	return indexed, nil
}
