package models

const (
	CollectionCarBrands  = "car_brands"
	CollectionCarModels  = "car_models"
	CollectionTyreBrands = "tyre_brands"
	CollectionTyres      = "tyres"
)

// DefaultCollections is the fan-out order used when rendering fused results.
var DefaultCollections = []string{
	CollectionCarBrands,
	CollectionCarModels,
	CollectionTyreBrands,
	CollectionTyres,
}

type RetrievalHit struct {
	Collection string         `json:"collection"`
	Id         string         `json:"id"`
	Score      float64        `json:"score"`
	Payload    map[string]any `json:"payload"`
}

type FusedHit struct {
	RetrievalHit
	Match MatchType `json:"match"`
}

// FusedResults maps a collection name to its filtered, tagged hits in search order.
type FusedResults map[string][]FusedHit

func (r FusedResults) Total() int {
	n := 0
	for _, hits := range r {
		n += len(hits)
	}
	return n
}
