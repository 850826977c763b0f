package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/matraxtyres/tyre_assistant/config"
	"github.com/matraxtyres/tyre_assistant/metrics"
	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/matraxtyres/tyre_assistant/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tracer = otel.Tracer("github.com/matraxtyres/tyre_assistant/workflow")

const (
	orderIdempotencyScope = "order.create"
	// maxLineQuantity must match the max in OrderLineInput's validate tag.
	maxLineQuantity = 10000
)

var (
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrQuantityTooLarge        = fmt.Errorf("quantity per tyre must not exceed %d", maxLineQuantity)
)

// InsufficientStockError names the first line that could not be covered.
type InsufficientStockError struct {
	TyreId    int
	TyreName  string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock on hand for %s (available=%d, requested=%d)", e.TyreName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

type OrderLineInput struct {
	TyreId   int `json:"tyre_id" validate:"required,gt=0"`
	Quantity int `json:"quantity" validate:"required,min=1,max=10000"`
}

type CreateOrderInput struct {
	CustomerName    string           `json:"customer_name" validate:"required,max=255"`
	ShippingAddress *string          `json:"shipping_address"`
	PaymentMethod   *string          `json:"payment_method" validate:"omitempty,max=50"`
	Items           []OrderLineInput `json:"items" validate:"required,min=1,dive"`
	// IdempotencyKey makes a resend of the same request return the first result.
	IdempotencyKey string `json:"-"`
}

type orderCreatedEvent struct {
	OrderId      int                `json:"order_id"`
	OrderCode    string             `json:"order_code"`
	CustomerName string             `json:"customer_name"`
	Total        decimal.Decimal    `json:"total_amount"`
	Lines        []orderCreatedLine `json:"lines"`
	Status       models.OrderStatus `json:"status"`
}

type orderCreatedLine struct {
	TyreId         int             `json:"tyre_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	StockRemaining int             `json:"stock_remaining"`
}

type orderStatusChangedEvent struct {
	OrderId   int                `json:"order_id"`
	OrderCode string             `json:"order_code"`
	From      models.OrderStatus `json:"from"`
	To        models.OrderStatus `json:"to"`
}

// OrderWorkflow owns every stock mutation in the system.
type OrderWorkflow struct {
	db       *gorm.DB
	logger   *logrus.Logger
	validate *validator.Validate
}

func NewOrderWorkflow(db *gorm.DB, logger *logrus.Logger) *OrderWorkflow {
	return &OrderWorkflow{
		db:       db,
		logger:   logger,
		validate: validator.New(),
	}
}

// Create places the whole order or nothing. Tyre rows are locked in id order for
// the duration of the transaction, so concurrent orders cannot oversell.
func (w *OrderWorkflow) Create(ctx context.Context, input CreateOrderInput) (*models.OrderResult, error) {
	ctx, span := tracer.Start(ctx, "OrderWorkflow.Create")
	defer span.End()

	input.CustomerName = strings.TrimSpace(input.CustomerName)
	if err := w.validate.Struct(input); err != nil {
		return nil, err
	}
	lines, err := mergeOrderLines(input.Items)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("order.lines", len(lines)))

	var result *models.OrderResult
	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.IdempotencyKey != "" {
			existing, err := beginIdempotency(tx, orderIdempotencyScope, input.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				replayed, err := loadOrderResult(tx, existing.ResourceId)
				if err != nil {
					return err
				}
				replayed.Replayed = true
				result = replayed
				return nil
			}
		}

		tyreIds := make([]int, 0, len(lines))
		for _, line := range lines {
			tyreIds = append(tyreIds, line.TyreId)
		}
		var tyres []models.Tyre
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", tyreIds).
			Order("id ASC").
			Find(&tyres).Error; err != nil {
			return err
		}
		tyresById := make(map[int]models.Tyre, len(tyres))
		for _, t := range tyres {
			tyresById[t.ID] = t
		}

		// Check every line before touching any stock.
		for _, line := range lines {
			tyre, ok := tyresById[line.TyreId]
			if !ok {
				return fmt.Errorf("tyre %d: %w", line.TyreId, utils.ErrorRecordNotFound)
			}
			if tyre.Stock < line.Quantity {
				return w.insufficientStock(ctx, tx, tyre, line.Quantity)
			}
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(lines))
		eventLines := make([]orderCreatedLine, 0, len(lines))
		for _, line := range lines {
			tyre := tyresById[line.TyreId]
			res := tx.Model(&models.Tyre{}).
				Where("id = ? AND stock >= ?", tyre.ID, line.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", line.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return w.insufficientStock(ctx, tx, tyre, line.Quantity)
			}

			unitPrice := tyre.Price
			total = total.Add(unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
			items = append(items, models.OrderItem{
				TyreId:    tyre.ID,
				Quantity:  line.Quantity,
				UnitPrice: unitPrice,
			})
			eventLines = append(eventLines, orderCreatedLine{
				TyreId:         tyre.ID,
				Quantity:       line.Quantity,
				UnitPrice:      unitPrice,
				StockRemaining: tyre.Stock - line.Quantity,
			})
		}

		order := models.Order{
			CustomerName:    input.CustomerName,
			Status:          models.OrderStatusPending,
			TotalAmount:     total,
			ShippingAddress: input.ShippingAddress,
			PaymentMethod:   input.PaymentMethod,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderId = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		code := models.FormatOrderCode(order.ID)
		if err := models.RecordOutboxEvent(ctx, tx, models.AggregateTypeOrder, order.ID, models.EventTypeOrderCreated, orderCreatedEvent{
			OrderId:      order.ID,
			OrderCode:    code,
			CustomerName: order.CustomerName,
			Total:        total,
			Lines:        eventLines,
			Status:       order.Status,
		}); err != nil {
			return err
		}
		if input.IdempotencyKey != "" {
			if err := markIdempotencySucceeded(tx, orderIdempotencyScope, input.IdempotencyKey, order.ID); err != nil {
				return err
			}
		}

		result = &models.OrderResult{
			OrderId:   order.ID,
			OrderCode: code,
			Status:    order.Status,
			Total:     total,
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientStock):
			metrics.OrdersTotal.WithLabelValues("rejected").Inc()
		case errors.Is(err, utils.ErrorRecordNotFound), errors.Is(err, ErrIdempotencyInProgress):
			metrics.OrdersTotal.WithLabelValues("rejected").Inc()
		default:
			metrics.OrdersTotal.WithLabelValues("failed").Inc()
			config.LogError(w.logger, "OrderWorkflow", "Create", "order transaction failed", input.Items, err)
		}
		span.RecordError(err)
		return nil, err
	}

	if result.Replayed {
		metrics.OrdersTotal.WithLabelValues("replayed").Inc()
	} else {
		metrics.OrdersTotal.WithLabelValues("created").Inc()
	}
	w.logger.WithFields(logrus.Fields{
		"field":      "OrderWorkflow",
		"order_code": result.OrderCode,
		"total":      result.Total.StringFixed(2),
		"replayed":   result.Replayed,
	}).Info("order placed")
	return result, nil
}

func (w *OrderWorkflow) insufficientStock(ctx context.Context, tx *gorm.DB, tyre models.Tyre, requested int) error {
	name := fmt.Sprintf("tyre %d", tyre.ID)
	if view, err := models.NewInventoryReadService(tx).ById(ctx, tyre.ID); err == nil {
		name = fmt.Sprintf("%s %s (%s)", view.BrandName, view.Model, view.Size)
	}
	return &InsufficientStockError{
		TyreId:    tyre.ID,
		TyreName:  name,
		Available: tyre.Stock,
		Requested: requested,
	}
}

// Get is a pure read of the order and its lines.
func (w *OrderWorkflow) Get(ctx context.Context, orderId int) (*models.OrderView, error) {
	var order models.Order
	err := w.db.WithContext(ctx).Where("id = ?", orderId).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	linesByOrder, err := w.orderLines(ctx, []int{order.ID})
	if err != nil {
		return nil, err
	}
	view := newOrderView(order, linesByOrder[order.ID])
	return &view, nil
}

// GetByCode accepts MTX-00001, mtx 1 and similar spellings.
func (w *OrderWorkflow) GetByCode(ctx context.Context, code string) (*models.OrderView, error) {
	orderId, ok := models.ParseOrderCode(code)
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return w.Get(ctx, orderId)
}

// List returns every order, newest first.
func (w *OrderWorkflow) List(ctx context.Context) ([]models.OrderView, error) {
	var orders []models.Order
	if err := w.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []models.OrderView{}, nil
	}
	ids := make([]int, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	linesByOrder, err := w.orderLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]models.OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o, linesByOrder[o.ID]))
	}
	return views, nil
}

// UpdateStatus is the hook used by back-office tooling. Moves must follow the lifecycle.
func (w *OrderWorkflow) UpdateStatus(ctx context.Context, orderId int, next models.OrderStatus) (*models.OrderView, error) {
	if !next.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidStatusTransition, next)
	}
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", orderId).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorRecordNotFound
		}
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, order.Status, next)
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", next).Error; err != nil {
			return err
		}
		return models.RecordOutboxEvent(ctx, tx, models.AggregateTypeOrder, order.ID, models.EventTypeOrderStatusChanged, orderStatusChangedEvent{
			OrderId:   order.ID,
			OrderCode: models.FormatOrderCode(order.ID),
			From:      order.Status,
			To:        next,
		})
	})
	if err != nil {
		if !errors.Is(err, utils.ErrorRecordNotFound) && !errors.Is(err, ErrInvalidStatusTransition) {
			config.LogError(w.logger, "OrderWorkflow", "UpdateStatus", "status update failed", orderId, err)
		}
		return nil, err
	}
	return w.Get(ctx, orderId)
}

type orderLineRow struct {
	OrderId   int
	ID        int
	TyreId    int
	BrandName string
	Model     string
	Size      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (w *OrderWorkflow) orderLines(ctx context.Context, orderIds []int) (map[int][]models.OrderLineView, error) {
	var rows []orderLineRow
	err := w.db.WithContext(ctx).
		Table("order_items").
		Select("order_items.order_id, order_items.id, order_items.tyre_id, tyre_brands.name AS brand_name, " +
			"tyres.model, tyres.size, order_items.quantity, order_items.unit_price").
		Joins("JOIN tyres ON tyres.id = order_items.tyre_id").
		Joins("JOIN tyre_brands ON tyre_brands.id = tyres.brand_id").
		Where("order_items.order_id IN ?", orderIds).
		Order("order_items.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int][]models.OrderLineView, len(orderIds))
	for _, r := range rows {
		out[r.OrderId] = append(out[r.OrderId], models.OrderLineView{
			ID:        r.ID,
			TyreId:    r.TyreId,
			TyreName:  fmt.Sprintf("%s %s %s", r.BrandName, r.Model, r.Size),
			BrandName: r.BrandName,
			Model:     r.Model,
			Size:      r.Size,
			Quantity:  r.Quantity,
			UnitPrice: r.UnitPrice,
		})
	}
	return out, nil
}

func newOrderView(order models.Order, lines []models.OrderLineView) models.OrderView {
	if lines == nil {
		lines = []models.OrderLineView{}
	}
	return models.OrderView{
		ID:              order.ID,
		OrderCode:       models.FormatOrderCode(order.ID),
		CustomerName:    order.CustomerName,
		Status:          order.Status,
		TotalAmount:     order.TotalAmount,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		ItemsCount:      len(lines),
		Items:           lines,
		CreatedAt:       order.CreatedAt,
	}
}

func loadOrderResult(tx *gorm.DB, orderId int) (*models.OrderResult, error) {
	var order models.Order
	if err := tx.Where("id = ?", orderId).First(&order).Error; err != nil {
		return nil, err
	}
	return &models.OrderResult{
		OrderId:   order.ID,
		OrderCode: models.FormatOrderCode(order.ID),
		Status:    order.Status,
		Total:     order.TotalAmount,
	}, nil
}

// mergeOrderLines folds repeated tyre ids together and sorts by id, which is
// also the row lock order. A merged quantity above maxLineQuantity is rejected.
func mergeOrderLines(items []OrderLineInput) ([]OrderLineInput, error) {
	qty := make(map[int]int, len(items))
	for _, item := range items {
		if item.Quantity < 1 || item.Quantity > maxLineQuantity-qty[item.TyreId] {
			return nil, fmt.Errorf("%w: tyre %d", ErrQuantityTooLarge, item.TyreId)
		}
		qty[item.TyreId] += item.Quantity
	}
	lines := make([]OrderLineInput, 0, len(qty))
	for id, q := range qty {
		lines = append(lines, OrderLineInput{TyreId: id, Quantity: q})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].TyreId < lines[j].TyreId })
	return lines, nil
}
