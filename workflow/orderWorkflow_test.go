package workflow

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/matraxtyres/tyre_assistant/config"
	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/matraxtyres/tyre_assistant/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type testCatalog struct {
	db      *gorm.DB
	pilot   models.Tyre
	primacy models.Tyre
}

func newTestCatalog(t *testing.T) *testCatalog {
	t.Helper()
	db, err := config.OpenSqlite(filepath.Join(t.TempDir(), "workflow.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	brand := models.TyreBrand{Name: "Michelin", Country: "France"}
	if err := db.Create(&brand).Error; err != nil {
		t.Fatalf("create brand: %v", err)
	}
	c := &testCatalog{
		db: db,
		pilot: models.Tyre{BrandId: brand.ID, Model: "Pilot Sport 5", Size: "225/50R17", Type: "Performance",
			Price: decimal.RequireFromString("150.00"), Stock: 10, MinStockLevel: 50},
		primacy: models.Tyre{BrandId: brand.ID, Model: "Primacy 4", Size: "225/45R18", Type: "Comfort",
			Price: decimal.RequireFromString("120.50"), Stock: 3, MinStockLevel: 50},
	}
	for _, tyre := range []*models.Tyre{&c.pilot, &c.primacy} {
		if err := db.Create(tyre).Error; err != nil {
			t.Fatalf("create tyre: %v", err)
		}
	}
	return c
}

func (c *testCatalog) stock(t *testing.T, tyreId int) int {
	t.Helper()
	var tyre models.Tyre
	if err := c.db.First(&tyre, tyreId).Error; err != nil {
		t.Fatalf("load tyre: %v", err)
	}
	return tyre.Stock
}

func (c *testCatalog) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := c.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func newWorkflow(c *testCatalog) *OrderWorkflow {
	return NewOrderWorkflow(c.db, config.NewLogger(nil))
}

func TestCreateOrderDecrementsStockAndRecordsEvent(t *testing.T) {
	c := newTestCatalog(t)
	w := newWorkflow(c)

	result, err := w.Create(context.Background(), CreateOrderInput{
		CustomerName: "  Alex Morgan ",
		Items: []OrderLineInput{
			{TyreId: c.pilot.ID, Quantity: 2},
			{TyreId: c.primacy.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.OrderCode != "MTX-00001" || result.Status != models.OrderStatusPending {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !result.Total.Equal(decimal.RequireFromString("420.50")) {
		t.Fatalf("total = %s, want 420.50", result.Total)
	}
	if got := c.stock(t, c.pilot.ID); got != 8 {
		t.Fatalf("pilot stock = %d, want 8", got)
	}
	if got := c.stock(t, c.primacy.ID); got != 2 {
		t.Fatalf("primacy stock = %d, want 2", got)
	}

	view, err := w.Get(context.Background(), result.OrderId)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.CustomerName != "Alex Morgan" || view.ItemsCount != 2 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Items[0].TyreName != "Michelin Pilot Sport 5 225/50R17" {
		t.Fatalf("line name = %q", view.Items[0].TyreName)
	}
	if !view.Items[1].UnitPrice.Equal(decimal.RequireFromString("120.50")) {
		t.Fatalf("unit price snapshot = %s", view.Items[1].UnitPrice)
	}

	var events []models.OutboxEvent
	if err := c.db.Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 || events[0].EventType != models.EventTypeOrderCreated || events[0].AggregateId != result.OrderId {
		t.Fatalf("unexpected outbox events: %+v", events)
	}
	if events[0].PublishStatus != models.OutboxPublishStatusPending || events[0].CorrelationId == "" {
		t.Fatalf("event not pending: %+v", events[0])
	}
}

func TestCreateOrderIsAllOrNothing(t *testing.T) {
	c := newTestCatalog(t)
	w := newWorkflow(c)

	_, err := w.Create(context.Background(), CreateOrderInput{
		CustomerName: "Alex Morgan",
		Items: []OrderLineInput{
			{TyreId: c.pilot.ID, Quantity: 2},
			{TyreId: c.primacy.ID, Quantity: 4},
		},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) || stockErr.Available != 3 || stockErr.Requested != 4 {
		t.Fatalf("unexpected details: %+v", stockErr)
	}
	if stockErr.TyreName != "Michelin Primacy 4 (225/45R18)" {
		t.Fatalf("tyre name = %q", stockErr.TyreName)
	}
	if got := c.stock(t, c.pilot.ID); got != 10 {
		t.Fatalf("pilot stock = %d, want untouched 10", got)
	}
	if n := c.count(t, &models.Order{}); n != 0 {
		t.Fatalf("orders = %d", n)
	}
	if n := c.count(t, &models.OrderItem{}); n != 0 {
		t.Fatalf("order items = %d", n)
	}
	if n := c.count(t, &models.OutboxEvent{}); n != 0 {
		t.Fatalf("outbox events = %d", n)
	}
}

func TestCreateOrderMergesDuplicateLines(t *testing.T) {
	c := newTestCatalog(t)
	w := newWorkflow(c)

	_, err := w.Create(context.Background(), CreateOrderInput{
		CustomerName: "Alex Morgan",
		Items: []OrderLineInput{
			{TyreId: c.primacy.ID, Quantity: 2},
			{TyreId: c.primacy.ID, Quantity: 2},
		},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("merged quantity 4 should exceed stock 3, got %v", err)
	}
}

func TestCreateOrderRejectsOversizedQuantities(t *testing.T) {
	c := newTestCatalog(t)
	w := newWorkflow(c)

	cases := []struct {
		name  string
		items []OrderLineInput
	}{
		{"single line over the cap", []OrderLineInput{{TyreId: c.primacy.ID, Quantity: 10001}}},
		{"overflowing duplicates", []OrderLineInput{
			{TyreId: c.primacy.ID, Quantity: math.MaxInt},
			{TyreId: c.primacy.ID, Quantity: math.MaxInt},
		}},
		{"duplicates summing over the cap", []OrderLineInput{
			{TyreId: c.primacy.ID, Quantity: 6000},
			{TyreId: c.primacy.ID, Quantity: 6000},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := w.Create(context.Background(), CreateOrderInput{CustomerName: "Alex", Items: tc.items})
			if err == nil {
				t.Fatalf("expected rejection, got %+v", res)
			}
		})
	}

	if got := c.stock(t, c.primacy.ID); got != 3 {
		t.Fatalf("stock = %d, want 3", got)
	}
	if got := c.count(t, &models.Order{}); got != 0 {
		t.Fatalf("orders = %d, want 0", got)
	}
	if got := c.count(t, &models.OrderItem{}); got != 0 {
		t.Fatalf("order items = %d, want 0", got)
	}
}

func TestMergeOrderLinesCapsMergedQuantity(t *testing.T) {
	lines, err := mergeOrderLines([]OrderLineInput{
		{TyreId: 2, Quantity: 4000},
		{TyreId: 1, Quantity: 1},
		{TyreId: 2, Quantity: 6000},
	})
	if err != nil {
		t.Fatalf("merge at the cap: %v", err)
	}
	if len(lines) != 2 || lines[0].TyreId != 1 || lines[1].Quantity != maxLineQuantity {
		t.Fatalf("lines = %+v", lines)
	}

	_, err = mergeOrderLines([]OrderLineInput{{TyreId: 2, Quantity: 4000}, {TyreId: 2, Quantity: 6001}})
	if !errors.Is(err, ErrQuantityTooLarge) {
		t.Fatalf("err = %v, want ErrQuantityTooLarge", err)
	}
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	c := newTestCatalog(t)
	w := newWorkflow(c)

	cases := []struct {
		name  string
		input CreateOrderInput
	}{
		{"no name", CreateOrderInput{Items: []OrderLineInput{{TyreId: c.pilot.ID, Quantity: 1}}}},
		{"blank name", CreateOrderInput{CustomerName: "   ", Items: []OrderLineInput{{TyreId: c.pilot.ID, Quantity: 1}}}},
		{"no items", CreateOrderInput{CustomerName: "Alex"}},
		{"zero quantity", CreateOrderInput{CustomerName: "Alex", Items: []OrderLineInput{{TyreId: c.pilot.ID, Quantity: 0}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := w.Create(context.Background(), tc.input); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	_, err := w.Create(context.Background(), CreateOrderInput{
		CustomerName: "Alex",
		Items:        []OrderLineInput{{TyreId: 999, Quantity: 1}},
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("unknown tyre err = %v", err)
	}
	if got := c.stock(t, c.pilot.ID); got != 10 {
		t.Fatalf("stock changed: %d", got)
	}
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	c := newTestCatalog(t)
	w := newWorkflow(c)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.Create(context.Background(), CreateOrderInput{
				CustomerName: "Buyer",
				Items:        []OrderLineInput{{TyreId: c.pilot.ID, Quantity: 2}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 || rejected != 3 {
		t.Fatalf("succeeded=%d rejected=%d, want 5 and 3", succeeded, rejected)
	}
	if got := c.stock(t, c.pilot.ID); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
	if n := c.count(t, &models.Order{}); n != 5 {
		t.Fatalf("orders = %d, want 5", n)
	}
}

func TestCreateOrderReplaysIdempotencyKey(t *testing.T) {
	c := newTestCatalog(t)
	w := newWorkflow(c)
	input := CreateOrderInput{
		CustomerName:   "Alex Morgan",
		Items:          []OrderLineInput{{TyreId: c.pilot.ID, Quantity: 1}},
		IdempotencyKey: "req-1",
	}

	first, err := w.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := w.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.OrderId != first.OrderId || !second.Replayed || first.Replayed {
		t.Fatalf("first=%+v second=%+v", first, second)
	}
	if got := c.stock(t, c.pilot.ID); got != 9 {
		t.Fatalf("stock = %d, want 9", got)
	}
}

func TestGetIsARead(t *testing.T) {
	c := newTestCatalog(t)
	w := newWorkflow(c)
	result, err := w.Create(context.Background(), CreateOrderInput{
		CustomerName: "Alex",
		Items:        []OrderLineInput{{TyreId: c.pilot.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	a, err := w.Get(context.Background(), result.OrderId)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, err := w.GetByCode(context.Background(), "mtx-00001")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if a.ID != b.ID || a.Status != b.Status || !a.TotalAmount.Equal(b.TotalAmount) || len(a.Items) != len(b.Items) {
		t.Fatalf("reads differ: %+v vs %+v", a, b)
	}
	if got := c.stock(t, c.pilot.ID); got != 8 {
		t.Fatalf("stock = %d", got)
	}
	if _, err := w.Get(context.Background(), 404); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("missing order err = %v", err)
	}
	if _, err := w.GetByCode(context.Background(), "nonsense"); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("bad code err = %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	c := newTestCatalog(t)
	w := newWorkflow(c)
	for _, name := range []string{"First", "Second"} {
		if _, err := w.Create(context.Background(), CreateOrderInput{
			CustomerName: name,
			Items:        []OrderLineInput{{TyreId: c.pilot.ID, Quantity: 1}},
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	orders, err := w.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 2 || orders[0].CustomerName != "Second" || orders[0].ItemsCount != 1 {
		t.Fatalf("unexpected list: %+v", orders)
	}
}

func TestUpdateStatusFollowsLifecycle(t *testing.T) {
	c := newTestCatalog(t)
	w := newWorkflow(c)
	result, err := w.Create(context.Background(), CreateOrderInput{
		CustomerName: "Alex",
		Items:        []OrderLineInput{{TyreId: c.pilot.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := w.UpdateStatus(context.Background(), result.OrderId, models.OrderStatusShipped); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("pending -> shipped err = %v", err)
	}
	view, err := w.UpdateStatus(context.Background(), result.OrderId, models.OrderStatusConfirmed)
	if err != nil {
		t.Fatalf("pending -> confirmed: %v", err)
	}
	if view.Status != models.OrderStatusConfirmed {
		t.Fatalf("status = %q", view.Status)
	}
	if _, err := w.UpdateStatus(context.Background(), result.OrderId, models.OrderStatusCancelled); err != nil {
		t.Fatalf("confirmed -> cancelled: %v", err)
	}
	if _, err := w.UpdateStatus(context.Background(), result.OrderId, models.OrderStatusConfirmed); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("cancelled is terminal, err = %v", err)
	}
	if _, err := w.UpdateStatus(context.Background(), 99, models.OrderStatusConfirmed); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("missing order err = %v", err)
	}

	var changes int64
	c.db.Model(&models.OutboxEvent{}).Where("event_type = ?", models.EventTypeOrderStatusChanged).Count(&changes)
	if changes != 2 {
		t.Fatalf("status change events = %d, want 2", changes)
	}
	if got := c.stock(t, c.pilot.ID); got != 9 {
		t.Fatalf("cancellation must not restock, stock = %d", got)
	}
}
