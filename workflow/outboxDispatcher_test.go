package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/matraxtyres/tyre_assistant/config"
	"github.com/matraxtyres/tyre_assistant/models"
)

type fakePublisher struct {
	err       error
	published []config.PubSubMessage
}

func (p *fakePublisher) Publish(_ context.Context, msg config.PubSubMessage) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, msg)
	return "msg-1", nil
}

func placeOneOrder(t *testing.T, c *testCatalog) {
	t.Helper()
	if _, err := newWorkflow(c).Create(context.Background(), CreateOrderInput{
		CustomerName: "Alex",
		Items:        []OrderLineInput{{TyreId: c.pilot.ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("create order: %v", err)
	}
}

func loadEvent(t *testing.T, c *testCatalog) models.OutboxEvent {
	t.Helper()
	var event models.OutboxEvent
	if err := c.db.First(&event).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	return event
}

func TestDispatchOncePublishesPendingEvents(t *testing.T) {
	c := newTestCatalog(t)
	placeOneOrder(t, c)

	publisher := &fakePublisher{}
	d := NewOutboxDispatcher(c.db, publisher, config.NewLogger(nil))
	if sent := d.DispatchOnce(context.Background()); sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	if len(publisher.published) != 1 || publisher.published[0].EventType != models.EventTypeOrderCreated {
		t.Fatalf("published = %+v", publisher.published)
	}
	event := loadEvent(t, c)
	if event.PublishStatus != models.OutboxPublishStatusSent || event.MessageId == nil || *event.MessageId != "msg-1" {
		t.Fatalf("event not sent: %+v", event)
	}
	if sent := d.DispatchOnce(context.Background()); sent != 0 {
		t.Fatalf("sent events must not be published again, sent = %d", sent)
	}
}

func TestDispatchOnceBacksOffAfterFailure(t *testing.T) {
	c := newTestCatalog(t)
	placeOneOrder(t, c)

	publisher := &fakePublisher{err: errors.New("pubsub unavailable")}
	d := NewOutboxDispatcher(c.db, publisher, config.NewLogger(nil))
	if sent := d.DispatchOnce(context.Background()); sent != 0 {
		t.Fatalf("sent = %d", sent)
	}
	event := loadEvent(t, c)
	if event.PublishStatus != models.OutboxPublishStatusFailed || event.PublishAttempts != 1 {
		t.Fatalf("event = %+v", event)
	}
	if event.NextAttemptAt == nil || event.LastPublishError == nil {
		t.Fatalf("failure not recorded: %+v", event)
	}

	publisher.err = nil
	if sent := d.DispatchOnce(context.Background()); sent != 0 {
		t.Fatalf("event retried before its backoff elapsed")
	}
}

func TestDispatchOnceMovesExhaustedEventsToDead(t *testing.T) {
	c := newTestCatalog(t)
	placeOneOrder(t, c)

	d := NewOutboxDispatcher(c.db, &fakePublisher{err: errors.New("boom")}, config.NewLogger(nil))
	d.MaxAttempts = 1
	d.DispatchOnce(context.Background())

	if event := loadEvent(t, c); event.PublishStatus != models.OutboxPublishStatusDead {
		t.Fatalf("status = %q, want DEAD", event.PublishStatus)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	d := NewOutboxDispatcher(nil, nil, nil)
	if got := d.backoff(1); got != d.InitialBackoff {
		t.Fatalf("backoff(1) = %s", got)
	}
	if got := d.backoff(3); got != 4*d.InitialBackoff {
		t.Fatalf("backoff(3) = %s", got)
	}
	if got := d.backoff(30); got.Minutes() != 10 {
		t.Fatalf("backoff(30) = %s, want 10m", got)
	}
}
