package models

import "time"

// IdempotencyKey makes client retries of a write safe.
// Unique constraint: (scope, request_key).
type IdempotencyKey struct {
	ID         int               `gorm:"primary_key" json:"id"`
	Scope      string            `gorm:"size:100;not null;index:uniq_idem,unique" json:"scope"`
	RequestKey string            `gorm:"size:255;not null;index:uniq_idem,unique" json:"request_key"`
	Status     IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	ResourceId int               `json:"resource_id"`
	LastError  *string           `gorm:"type:text" json:"last_error"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
