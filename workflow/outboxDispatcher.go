package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matraxtyres/tyre_assistant/config"
	"github.com/matraxtyres/tyre_assistant/metrics"
	"github.com/matraxtyres/tyre_assistant/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxOutboxBackoff = 10 * time.Minute

// Publisher is satisfied by *config.PubSubPublisher.
type Publisher interface {
	Publish(ctx context.Context, msg config.PubSubMessage) (string, error)
}

type OutboxDispatcher struct {
	DB           *gorm.DB
	Publisher    Publisher
	Logger       *logrus.Logger
	DispatcherID string

	BatchSize      int
	PollInterval   time.Duration
	LockTimeout    time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

func NewOutboxDispatcher(db *gorm.DB, publisher Publisher, logger *logrus.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:             db,
		Publisher:      publisher,
		Logger:         logger,
		DispatcherID:   uuid.NewString(),
		BatchSize:      50,
		PollInterval:   500 * time.Millisecond,
		LockTimeout:    30 * time.Second,
		MaxAttempts:    20,
		InitialBackoff: 5 * time.Second,
	}
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

// DispatchOnce claims one batch and publishes it. It returns the number of events sent.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) int {
	if d.DB == nil || d.Publisher == nil {
		return 0
	}
	now := time.Now().UTC()
	staleBefore := now.Add(-d.LockTimeout)

	var claimed []models.OutboxEvent
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Ready PENDING/FAILED rows, plus PROCESSING rows whose claimer died.
		q := tx.
			Where(`(publish_status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?))
				OR (publish_status = ? AND locked_at IS NOT NULL AND locked_at <= ?)`,
				[]models.OutboxPublishStatus{models.OutboxPublishStatusPending, models.OutboxPublishStatusFailed}, now,
				models.OutboxPublishStatusProcessing, staleBefore).
			Order("id ASC").
			Limit(d.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		for i := range claimed {
			if d.exhausted(claimed[i].PublishAttempts) {
				claimed[i].PublishStatus = models.OutboxPublishStatusDead
				if err := markDead(tx, claimed[i].ID, fmt.Sprintf("max publish attempts exceeded (%d)", d.MaxAttempts)); err != nil {
					return err
				}
				continue
			}

			claimed[i].PublishStatus = models.OutboxPublishStatusProcessing
			claimed[i].PublishAttempts++
			if err := tx.Model(&models.OutboxEvent{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusProcessing,
				"locked_at":          &now,
				"locked_by":          &d.DispatcherID,
				"publish_attempts":   gorm.Expr("publish_attempts + 1"),
				"last_publish_error": nil,
				"next_attempt_at":    nil,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		config.LogError(d.Logger, "OutboxDispatcher", "DispatchOnce", "claim batch", d.DispatcherID, err)
		return 0
	}

	sent := 0
	for _, event := range claimed {
		if event.PublishStatus == models.OutboxPublishStatusDead {
			metrics.OutboxPublishedTotal.WithLabelValues("dead").Inc()
			continue
		}
		messageId, pubErr := d.publish(ctx, event)
		if pubErr != nil {
			d.markPublishFailed(ctx, event, pubErr)
			continue
		}
		d.markPublishSent(ctx, event.ID, messageId)
		sent++
	}
	return sent
}

func (d *OutboxDispatcher) publish(ctx context.Context, event models.OutboxEvent) (string, error) {
	ctx, span := tracer.Start(ctx, "OutboxDispatcher.Publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.Int("outbox.event_id", event.ID),
			attribute.String("outbox.event_type", event.EventType),
			attribute.Int("outbox.attempt", event.PublishAttempts),
		))
	defer span.End()

	messageId, err := d.Publisher.Publish(ctx, event.ToPubSubMessage())
	if err != nil {
		span.RecordError(err)
	}
	return messageId, err
}

func (d *OutboxDispatcher) markPublishSent(ctx context.Context, eventId int, messageId string) {
	now := time.Now().UTC()
	err := d.DB.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", eventId).
		Updates(map[string]interface{}{
			"publish_status":  models.OutboxPublishStatusSent,
			"published_at":    &now,
			"message_id":      &messageId,
			"locked_at":       nil,
			"locked_by":       nil,
			"next_attempt_at": nil,
		}).Error
	if err != nil {
		config.LogError(d.Logger, "OutboxDispatcher", "markPublishSent", "mark sent", eventId, err)
	}
	metrics.OutboxPublishedTotal.WithLabelValues("sent").Inc()
}

func (d *OutboxDispatcher) markPublishFailed(ctx context.Context, event models.OutboxEvent, pubErr error) {
	db := d.DB.WithContext(ctx)
	msg := pubErr.Error()
	attempt := event.PublishAttempts

	if d.exhausted(attempt) {
		if err := markDead(db, event.ID, msg); err != nil {
			config.LogError(d.Logger, "OutboxDispatcher", "markPublishFailed", "mark dead", event.ID, err)
		}
		metrics.OutboxPublishedTotal.WithLabelValues("dead").Inc()
		d.Logger.WithFields(logrus.Fields{
			"field":      "OutboxDispatcher",
			"event_id":   event.ID,
			"event_type": event.EventType,
			"attempt":    attempt,
		}).Error("outbox publish moved to DEAD after max attempts: " + msg)
		return
	}

	next := time.Now().UTC().Add(d.backoff(attempt))
	err := db.Model(&models.OutboxEvent{}).
		Where("id = ?", event.ID).
		Updates(map[string]interface{}{
			"publish_status":     models.OutboxPublishStatusFailed,
			"last_publish_error": &msg,
			"next_attempt_at":    &next,
			"locked_at":          nil,
			"locked_by":          nil,
		}).Error
	if err != nil {
		config.LogError(d.Logger, "OutboxDispatcher", "markPublishFailed", "schedule retry", event.ID, err)
	}
	metrics.OutboxPublishedTotal.WithLabelValues("failed").Inc()
	d.Logger.WithFields(logrus.Fields{
		"field":           "OutboxDispatcher",
		"event_id":        event.ID,
		"event_type":      event.EventType,
		"attempt":         attempt,
		"next_attempt_at": next.Format(time.RFC3339Nano),
	}).Error("outbox publish failed: " + msg)
}

func (d *OutboxDispatcher) exhausted(attempts int) bool {
	return d.MaxAttempts > 0 && attempts >= d.MaxAttempts
}

// markDead parks an event until an operator replays it.
func markDead(db *gorm.DB, eventId int, reason string) error {
	return db.Model(&models.OutboxEvent{}).
		Where("id = ?", eventId).
		Updates(map[string]interface{}{
			"publish_status":     models.OutboxPublishStatusDead,
			"last_publish_error": &reason,
			"next_attempt_at":    nil,
			"locked_at":          nil,
			"locked_by":          nil,
		}).Error
}

func (d *OutboxDispatcher) backoff(attempt int) time.Duration {
	backoff := d.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff > maxOutboxBackoff {
			return maxOutboxBackoff
		}
	}
	return backoff
}
