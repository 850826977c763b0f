// Package retrieval fans a query out over the catalog collections and keeps
// the hits that are relevant enough to show the language model.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/matraxtyres/tyre_assistant/metrics"
	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// Hits at or below MinScore are dropped.
	MinScore = 0.25
	// Hits above ExactScore are tagged as exact matches.
	ExactScore = 0.7

	noMatchesText = "No relevant matches found."
)

var tracer = otel.Tracer("github.com/matraxtyres/tyre_assistant/retrieval")

// Searcher runs one similarity search against one collection.
type Searcher interface {
	Search(ctx context.Context, collection string, query string, limit int) ([]models.RetrievalHit, error)
}

type Fusion struct {
	searcher    Searcher
	collections []string
	logger      *logrus.Logger
}

func NewFusion(searcher Searcher, collections []string, logger *logrus.Logger) *Fusion {
	if len(collections) == 0 {
		collections = models.DefaultCollections
	}
	return &Fusion{searcher: searcher, collections: collections, logger: logger}
}

func (f *Fusion) Collections() []string {
	return f.collections
}

// Search queries every collection concurrently. A failing collection yields an
// empty list and never fails the whole search.
func (f *Fusion) Search(ctx context.Context, query string, limit int) models.FusedResults {
	ctx, span := tracer.Start(ctx, "Fusion.Search")
	defer span.End()

	results := make([][]models.FusedHit, len(f.collections))
	var wg sync.WaitGroup
	for i, collection := range f.collections {
		wg.Add(1)
		go func(i int, collection string) {
			defer wg.Done()
			hits, err := f.searcher.Search(ctx, collection, query, limit)
			if err != nil {
				metrics.RetrievalCollectionErrors.WithLabelValues(collection).Inc()
				if f.logger != nil {
					f.logger.WithFields(logrus.Fields{
						"field":      "Fusion",
						"collection": collection,
					}).Warn("collection search failed: " + err.Error())
				}
				results[i] = []models.FusedHit{}
				return
			}
			results[i] = FilterAndTag(hits)
		}(i, collection)
	}
	wg.Wait()

	fused := make(models.FusedResults, len(f.collections))
	for i, collection := range f.collections {
		fused[collection] = results[i]
		for _, hit := range results[i] {
			metrics.RetrievalHitsTotal.WithLabelValues(collection, string(hit.Match)).Inc()
		}
	}
	span.SetAttributes(attribute.Int("retrieval.hits", fused.Total()))
	return fused
}

// FilterAndTag drops weak hits and labels the rest, keeping the searcher's order.
func FilterAndTag(hits []models.RetrievalHit) []models.FusedHit {
	out := make([]models.FusedHit, 0, len(hits))
	for _, hit := range hits {
		if hit.Score <= MinScore {
			continue
		}
		match := models.MatchTypeSimilar
		if hit.Score > ExactScore {
			match = models.MatchTypeExact
		}
		out = append(out, models.FusedHit{RetrievalHit: hit, Match: match})
	}
	return out
}

// RenderContext turns fused results into the prompt block. Ids and scores are
// never rendered.
func RenderContext(results models.FusedResults, collections []string) string {
	if len(collections) == 0 {
		collections = models.DefaultCollections
	}
	var lines []string
	for _, collection := range collections {
		hits := results[collection]
		if len(hits) == 0 {
			continue
		}
		lines = append(lines, strings.ToUpper(collection)+":")
		for _, hit := range hits {
			lines = append(lines, fmt.Sprintf("  • [%s] %s", hit.Match, describeHit(collection, hit.Payload)))
		}
	}
	if len(lines) == 0 {
		return noMatchesText
	}
	return strings.Join(lines, "\n")
}

func describeHit(collection string, p map[string]any) string {
	switch collection {
	case models.CollectionCarModels:
		return fmt.Sprintf("%s %s %s - Compatible sizes: %s",
			payloadString(p, "brand_name"), payloadString(p, "name"), payloadString(p, "year"),
			strings.Join(payloadStrings(p, "tyre_sizes"), ", "))
	case models.CollectionTyres:
		return fmt.Sprintf("%s %s - %s | %s | £%s",
			payloadString(p, "brand_name"), payloadString(p, "model"), payloadString(p, "size"),
			payloadString(p, "type"), payloadPrice(p, "price"))
	case models.CollectionCarBrands:
		if country := payloadString(p, "country"); country != "" {
			return fmt.Sprintf("%s (from %s)", payloadString(p, "name"), country)
		}
		return payloadString(p, "name")
	default:
		if name := payloadString(p, "name"); name != "" {
			return name
		}
		return payloadString(p, "model")
	}
}

func payloadString(p map[string]any, key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

func payloadPrice(p map[string]any, key string) string {
	switch t := p[key].(type) {
	case float64:
		return fmt.Sprintf("%.2f", t)
	case string:
		return t
	default:
		return payloadString(p, key)
	}
}

func payloadStrings(p map[string]any, key string) []string {
	switch t := p[key].(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			out = append(out, fmt.Sprint(v))
		}
		return out
	default:
		return nil
	}
}
