package models

import (
	"context"
	"time"

	"github.com/matraxtyres/tyre_assistant/utils"
	"gorm.io/gorm"
)

// ListOrderEvents returns the outbox rows written for one order, oldest first.
func ListOrderEvents(ctx context.Context, db *gorm.DB, orderId int) ([]OutboxEvent, error) {
	var events []OutboxEvent
	err := db.WithContext(ctx).
		Where("aggregate_type = ? AND aggregate_id = ?", AggregateTypeOrder, orderId).
		Order("id ASC").
		Find(&events).Error
	return events, err
}

// ReplayOutboxEvent puts a DEAD or FAILED event back in the dispatch queue with a
// fresh attempt budget. SENT and in-flight events are left alone.
func ReplayOutboxEvent(ctx context.Context, db *gorm.DB, eventId int) (*OutboxEvent, error) {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&OutboxEvent{}).
		Where("id = ? AND publish_status IN ?", eventId,
			[]OutboxPublishStatus{OutboxPublishStatusDead, OutboxPublishStatusFailed}).
		Updates(map[string]interface{}{
			"publish_status":     OutboxPublishStatusFailed,
			"publish_attempts":   0,
			"next_attempt_at":    &now,
			"locked_at":          nil,
			"locked_by":          nil,
			"last_publish_error": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, utils.ErrorRecordNotFound
	}

	var event OutboxEvent
	if err := db.WithContext(ctx).Where("id = ?", eventId).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
