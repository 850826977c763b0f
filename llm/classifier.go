package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/matraxtyres/tyre_assistant/utils"
)

const classifierSystemPrompt = "You are a JSON-only classifier. Output raw JSON only. Never use markdown."

const classifierHistoryWindow = 8

const classifierPromptTemplate = `Analyze this tyre shop conversation and classify the current state.

CONVERSATION:
%s
Customer: %s

Respond ONLY with valid JSON. No markdown, no code blocks, no extra text.
{
  "state": "greeting|car_identification|size_selection|order_intent|order_placement|order_status|general",
  "car_brand": "brand or null",
  "car_model": "model or null",
  "car_year": "year or null",
  "selected_size": "tyre size like 225/45R17 or null",
  "selected_tyre_brand": "tyre brand if customer chose one or null",
  "selected_tyre_model": "tyre model if customer chose one or null",
  "quantity": null,
  "customer_name": "name or null",
  "wants_order": false
}

STATE RULES:
- "greeting": First message or general hello
- "car_identification": Customer mentions a car, agent needs to find it and show tyre sizes
- "size_selection": Customer is choosing/has chosen a tyre size from options (e.g. "first one", "1", "225/45R17", "the first size"). IMPORTANT: You MUST extract the actual tyre size value into selected_size by looking at what sizes the agent listed.
- "order_intent": Customer wants to buy/order tyres. Extract tyre details, quantity, and customer name if available. If ALL of (customer_name, selected_tyre_brand, quantity) are known, use "order_placement" instead.
- "order_placement": We have customer_name AND selected_tyre_brand AND quantity - ready to place order.
- "order_status": Customer is asking about order status or tracking. They may provide an order code like MTX-00001.
- "general": Anything else

CRITICAL: For "size_selection", look at the Agent's previous message to find the actual tyre sizes listed, and map the customer's choice (first/second/1/2) to the correct size string.`

// Classifier asks a text model to tag a turn and extract slots. Its output is
// untrusted; the dialog router verifies it before acting.
type Classifier struct {
	gen TextGenerator
}

func NewClassifier(gen TextGenerator) *Classifier {
	return &Classifier{gen: gen}
}

func (c *Classifier) Classify(ctx context.Context, utterance string, history models.History) (models.Classification, error) {
	prompt := BuildClassifierPrompt(utterance, history)
	text, err := c.gen.Complete(ctx, Completion{
		System:      classifierSystemPrompt,
		Prompt:      prompt,
		Temperature: 0,
	})
	if err != nil {
		return models.Classification{}, fmt.Errorf("classifier call: %w", err)
	}
	return ParseClassification(text)
}

func BuildClassifierPrompt(utterance string, history models.History) string {
	return fmt.Sprintf(classifierPromptTemplate, history.Last(classifierHistoryWindow).Transcript(), utterance)
}

type rawClassification struct {
	State             string          `json:"state"`
	CarBrand          json.RawMessage `json:"car_brand"`
	CarModel          json.RawMessage `json:"car_model"`
	CarYear           json.RawMessage `json:"car_year"`
	SelectedSize      json.RawMessage `json:"selected_size"`
	SelectedTyreBrand json.RawMessage `json:"selected_tyre_brand"`
	SelectedTyreModel json.RawMessage `json:"selected_tyre_model"`
	Quantity          json.RawMessage `json:"quantity"`
	CustomerName      json.RawMessage `json:"customer_name"`
	WantsOrder        json.RawMessage `json:"wants_order"`
}

// ParseClassification decodes the model's reply. Fenced blocks and prose around the
// object are tolerated; anything that is not a JSON object is an error.
func ParseClassification(text string) (models.Classification, error) {
	obj, err := utils.ExtractJSONObject(text)
	if err != nil {
		return models.Classification{}, err
	}
	var raw rawClassification
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return models.Classification{}, fmt.Errorf("decode classification: %w", err)
	}

	state, ok := models.ParseDialogState(raw.State)
	if !ok {
		state = models.DialogStateGeneral
	}
	return models.Classification{
		State: state,
		Slots: models.ExtractedSlots{
			CarBrand:          slotString(raw.CarBrand),
			CarModel:          slotString(raw.CarModel),
			CarYear:           slotString(raw.CarYear),
			SelectedSize:      slotString(raw.SelectedSize),
			SelectedTyreBrand: slotString(raw.SelectedTyreBrand),
			SelectedTyreModel: slotString(raw.SelectedTyreModel),
			Quantity:          slotInt(raw.Quantity),
			CustomerName:      slotString(raw.CustomerName),
			WantsOrder:        slotBool(raw.WantsOrder),
		},
	}, nil
}

// slotString accepts a JSON string or number. Placeholder values the model copies
// from the template are treated as absent.
func slotString(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return nil
	}
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "none", "unknown", "n/a":
		return nil
	}
	return &s
}

func slotInt(raw json.RawMessage) *int {
	s := slotString(raw)
	if s == nil {
		return nil
	}
	digits := strings.TrimSpace(*s)
	if i := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		digits = digits[:i]
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

func slotBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.EqualFold(strings.TrimSpace(s), "true")
	}
	return false
}
