package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/matraxtyres/tyre_assistant/appctx"
	"github.com/matraxtyres/tyre_assistant/config"
	"gorm.io/gorm"
)

const (
	AggregateTypeOrder = "order"

	EventTypeOrderCreated       = "order.created"
	EventTypeOrderStatusChanged = "order.status_changed"
)

// OutboxEvent rows are written inside the business transaction and published after commit.
type OutboxEvent struct {
	ID               int                 `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	AggregateType    string              `gorm:"size:50;not null;index:idx_outbox_aggregate,priority:1" json:"aggregate_type"`
	AggregateId      int                 `gorm:"not null;index:idx_outbox_aggregate,priority:2" json:"aggregate_id"`
	EventType        string              `gorm:"size:100;not null" json:"event_type"`
	Payload          []byte              `gorm:"type:blob" json:"payload"`
	PublishStatus    OutboxPublishStatus `gorm:"size:20;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"`
	PublishAttempts  int                 `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time          `gorm:"index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time          `gorm:"index" json:"locked_at"`
	LockedBy         *string             `gorm:"size:100" json:"locked_by"`
	LastPublishError *string             `gorm:"type:text" json:"last_publish_error"`
	PublishedAt      *time.Time          `json:"published_at"`
	MessageId        *string             `gorm:"size:255" json:"message_id"`
	CorrelationId    string              `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// RecordOutboxEvent must be called with the caller's transaction so the event
// commits or rolls back together with the change it describes.
func RecordOutboxEvent(ctx context.Context, tx *gorm.DB, aggregateType string, aggregateId int, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := OutboxEvent{
		AggregateType: aggregateType,
		AggregateId:   aggregateId,
		EventType:     eventType,
		Payload:       data,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.WithContext(ctx).Create(&event).Error
}

func (e OutboxEvent) ToPubSubMessage() config.PubSubMessage {
	return config.PubSubMessage{
		ID:            e.ID,
		AggregateType: e.AggregateType,
		AggregateId:   e.AggregateId,
		EventType:     e.EventType,
		Payload:       json.RawMessage(e.Payload),
		CorrelationId: e.CorrelationId,
		OccurredAt:    e.CreatedAt,
	}
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if v, ok := appctx.GetCorrelationId(ctx); ok && v != "" {
		return v
	}
	return uuid.NewString()
}
