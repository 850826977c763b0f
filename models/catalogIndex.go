package models

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// IndexRecord is one catalog row prepared for the vector index: the text to embed
// and the payload returned with search hits.
type IndexRecord struct {
	Collection string
	Id         int
	Text       string
	Payload    map[string]any
}

// CatalogIndexRecords builds index records for every catalog row, collection by collection.
func (s *InventoryReadService) CatalogIndexRecords(ctx context.Context) ([]IndexRecord, error) {
	db := s.db.WithContext(ctx)
	var records []IndexRecord

	var carBrands []CarBrand
	if err := db.Order("id ASC").Find(&carBrands).Error; err != nil {
		return nil, err
	}
	carBrandNames := make(map[int]string, len(carBrands))
	for _, b := range carBrands {
		carBrandNames[b.ID] = b.Name
		records = append(records, IndexRecord{
			Collection: CollectionCarBrands,
			Id:         b.ID,
			Text:       b.Name,
			Payload:    map[string]any{"id": b.ID, "name": b.Name, "country": b.Country},
		})
	}

	var carModels []CarModel
	if err := db.Order("id ASC").Find(&carModels).Error; err != nil {
		return nil, err
	}
	for _, m := range carModels {
		brandName := carBrandNames[m.BrandId]
		sizes := []string(m.TyreSizes)
		if sizes == nil {
			sizes = []string{}
		}
		records = append(records, IndexRecord{
			Collection: CollectionCarModels,
			Id:         m.ID,
			Text:       fmt.Sprintf("%s %s %d", brandName, m.Name, m.Year),
			Payload: map[string]any{
				"id":         m.ID,
				"brand_id":   m.BrandId,
				"brand_name": brandName,
				"name":       m.Name,
				"year":       m.Year,
				"tyre_sizes": sizes,
			},
		})
	}

	var tyreBrands []TyreBrand
	if err := db.Order("id ASC").Find(&tyreBrands).Error; err != nil {
		return nil, err
	}
	for _, b := range tyreBrands {
		records = append(records, IndexRecord{
			Collection: CollectionTyreBrands,
			Id:         b.ID,
			Text:       b.Name,
			Payload:    map[string]any{"id": b.ID, "name": b.Name, "country": b.Country},
		})
	}

	var tyres []TyreView
	if err := s.tyreViews(ctx).Order("tyres.id ASC").Scan(&tyres).Error; err != nil {
		return nil, err
	}
	for _, t := range tyres {
		records = append(records, IndexRecord{
			Collection: CollectionTyres,
			Id:         t.ID,
			Text:       fmt.Sprintf("%s %s %s", t.BrandName, t.Model, t.Size),
			Payload: map[string]any{
				"id":         t.ID,
				"brand_id":   t.BrandId,
				"brand_name": t.BrandName,
				"model":      t.Model,
				"size":       t.Size,
				"type":       t.Type,
				"price":      t.Price.Round(2).InexactFloat64(),
				"stock":      t.Stock,
			},
		})
	}
	return records, nil
}

// PriceLabel formats a money amount the way replies show it.
func PriceLabel(d decimal.Decimal) string {
	return "£" + d.StringFixed(2)
}
