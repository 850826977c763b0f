// Package dialog turns one customer message plus the conversation so far into
// a reply: classify, verify, route to a handler, compose.
package dialog

import (
	"context"
	"regexp"
	"strings"

	"github.com/matraxtyres/tyre_assistant/appctx"
	"github.com/matraxtyres/tyre_assistant/metrics"
	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/matraxtyres/tyre_assistant/utils"
	"github.com/matraxtyres/tyre_assistant/workflow"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	classifierHistoryWindow = 8
	shortUtteranceTokens    = 3
	augmentationTurns       = 2
	defaultRetrievalLimit   = 5
)

const (
	AgentCustomer       = "customer"
	AgentInventory      = "inventory"
	AgentRecommendation = "recommendation"
	AgentOrder          = "order"
)

var tracer = otel.Tracer("github.com/matraxtyres/tyre_assistant/dialog")

var tyreSizePattern = regexp.MustCompile(`^\d{3}/\d{2}Z?R\d{2}$`)

type Classifier interface {
	Classify(ctx context.Context, utterance string, history models.History) (models.Classification, error)
}

type Retriever interface {
	Search(ctx context.Context, query string, limit int) models.FusedResults
}

type Inventory interface {
	ByExactSize(ctx context.Context, size string) ([]models.TyreView, error)
	FindForOrder(ctx context.Context, brand, model, size string) (*models.TyreView, error)
}

type Orders interface {
	Create(ctx context.Context, input workflow.CreateOrderInput) (*models.OrderResult, error)
	Get(ctx context.Context, orderId int) (*models.OrderView, error)
}

// Reply is the router's answer to one turn.
type Reply struct {
	Text      string             `json:"response"`
	Agent     string             `json:"agent"`
	State     models.DialogState `json:"state"`
	OrderCode string             `json:"order_code,omitempty"`
}

type RouterOptions struct {
	RetrievalLimit int
}

type Router struct {
	classifier Classifier
	retriever  Retriever
	inventory  Inventory
	orders     Orders
	composer   *Composer
	logger     *logrus.Logger
	limit      int
}

func NewRouter(classifier Classifier, retriever Retriever, inventory Inventory, orders Orders, composer *Composer, logger *logrus.Logger, opts RouterOptions) *Router {
	limit := opts.RetrievalLimit
	if limit <= 0 {
		limit = defaultRetrievalLimit
	}
	return &Router{
		classifier: classifier,
		retriever:  retriever,
		inventory:  inventory,
		orders:     orders,
		composer:   composer,
		logger:     logger,
		limit:      limit,
	}
}

// HandleTurn answers one message. history is read only; the caller persists both turns.
func (r *Router) HandleTurn(ctx context.Context, message string, history models.History) (Reply, error) {
	ctx, span := tracer.Start(ctx, "Router.HandleTurn")
	defer span.End()
	if sessionId, ok := appctx.GetSessionId(ctx); ok {
		span.SetAttributes(attribute.Int("chat.session_id", sessionId))
	}

	classification := r.classify(ctx, message, history)
	classification = r.verify(classification)
	span.SetAttributes(attribute.String("dialog.state", string(classification.State)))
	metrics.DialogTurnsTotal.WithLabelValues(string(classification.State)).Inc()

	t := turn{message: message, history: history, slots: classification.Slots}
	var (
		reply Reply
		err   error
	)
	switch classification.State {
	case models.DialogStateSizeSelection:
		reply, err = r.handleSizeSelection(ctx, t)
	case models.DialogStateOrderIntent:
		reply, err = r.handleClarification(ctx, t)
	case models.DialogStateOrderPlacement:
		reply, err = r.handleOrderPlacement(ctx, t)
	case models.DialogStateOrderStatus:
		reply, err = r.handleOrderStatus(ctx, t)
	default:
		reply, err = r.handleDefault(ctx, t)
	}
	if err != nil {
		span.RecordError(err)
		return Reply{}, err
	}
	reply.State = classification.State
	return reply, nil
}

// classify never fails: any classifier problem becomes a General turn.
func (r *Router) classify(ctx context.Context, message string, history models.History) models.Classification {
	classification, err := r.classifier.Classify(ctx, message, history.Last(classifierHistoryWindow))
	if err != nil {
		metrics.ClassifierFallbacksTotal.WithLabelValues("error").Inc()
		if r.logger != nil {
			fields := logrus.Fields{"field": "Router"}
			if sessionId, ok := appctx.GetSessionId(ctx); ok {
				fields["session_id"] = sessionId
			}
			r.logger.WithFields(fields).Warn("classifier failed, falling back to general: " + err.Error())
		}
		return models.FallbackClassification()
	}
	if _, ok := models.ParseDialogState(string(classification.State)); !ok {
		classification.State = models.DialogStateGeneral
	}
	return classification
}

// verify only lets OrderPlacement through when every slot an order needs is present.
func (r *Router) verify(c models.Classification) models.Classification {
	if c.State != models.DialogStateOrderPlacement {
		return c
	}
	missing := c.Slots.MissingForPlacement()
	if len(missing) == 0 {
		return c
	}
	metrics.ClassifierFallbacksTotal.WithLabelValues("downgraded").Inc()
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"field":   "Router",
			"missing": missing,
		}).Warn("order placement downgraded to order intent")
	}
	c.State = models.DialogStateOrderIntent
	return c
}

// RetrievalQuery widens very short messages ("first one", "yes") with the last
// two turns so the similarity search has something to match.
func RetrievalQuery(message string, history models.History) string {
	if utils.TokenCount(message) > shortUtteranceTokens {
		return message
	}
	parts := append([]string{message}, history.Last(augmentationTurns).Texts()...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// NormalizeTyreSize upper-cases and strips spaces, returning false for anything
// that is not a tyre size such as 225/45R17.
func NormalizeTyreSize(size string) (string, bool) {
	s := strings.ToUpper(strings.Join(strings.Fields(size), ""))
	if !tyreSizePattern.MatchString(s) {
		return "", false
	}
	return s, true
}

type turn struct {
	message string
	history models.History
	slots   models.ExtractedSlots
}
