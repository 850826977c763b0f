package models

import "strings"

// ExtractedSlots are the classifier's per-turn extractions. Every field is optional.
type ExtractedSlots struct {
	CarBrand          *string `json:"car_brand"`
	CarModel          *string `json:"car_model"`
	CarYear           *string `json:"car_year"`
	SelectedSize      *string `json:"selected_size"`
	SelectedTyreBrand *string `json:"selected_tyre_brand"`
	SelectedTyreModel *string `json:"selected_tyre_model"`
	Quantity          *int    `json:"quantity"`
	CustomerName      *string `json:"customer_name"`
	WantsOrder        bool    `json:"wants_order"`
}

// MissingForPlacement lists the slots an order cannot be placed without.
func (s ExtractedSlots) MissingForPlacement() []string {
	var missing []string
	if isBlank(s.CustomerName) {
		missing = append(missing, "customer_name")
	}
	if isBlank(s.SelectedTyreBrand) {
		missing = append(missing, "selected_tyre_brand")
	}
	if s.Quantity == nil || *s.Quantity < 1 {
		missing = append(missing, "quantity")
	}
	return missing
}

type Classification struct {
	State DialogState    `json:"state"`
	Slots ExtractedSlots `json:"slots"`
}

// FallbackClassification is used whenever the classifier cannot be trusted for a turn.
func FallbackClassification() Classification {
	return Classification{State: DialogStateGeneral, Slots: ExtractedSlots{WantsOrder: false}}
}

func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
