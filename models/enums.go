package models

import "strings"

type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderAgent    Sender = "agent"
)

func (s Sender) IsValid() bool {
	return s == SenderCustomer || s == SenderAgent
}

// DialogState values are the tags the classifier is asked to emit.
type DialogState string

const (
	DialogStateGreeting          DialogState = "greeting"
	DialogStateCarIdentification DialogState = "car_identification"
	DialogStateSizeSelection     DialogState = "size_selection"
	DialogStateOrderIntent       DialogState = "order_intent"
	DialogStateOrderPlacement    DialogState = "order_placement"
	DialogStateOrderStatus       DialogState = "order_status"
	DialogStateGeneral           DialogState = "general"
)

var dialogStates = map[string]DialogState{
	string(DialogStateGreeting):          DialogStateGreeting,
	string(DialogStateCarIdentification): DialogStateCarIdentification,
	string(DialogStateSizeSelection):     DialogStateSizeSelection,
	string(DialogStateOrderIntent):       DialogStateOrderIntent,
	string(DialogStateOrderPlacement):    DialogStateOrderPlacement,
	string(DialogStateOrderStatus):       DialogStateOrderStatus,
	string(DialogStateGeneral):           DialogStateGeneral,
}

// ParseDialogState accepts the tag case-insensitively, with spaces or dashes for underscores.
func ParseDialogState(s string) (DialogState, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	state, ok := dialogStates[key]
	return state, ok
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusConfirmed  OrderStatus = "Confirmed"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusReady      OrderStatus = "Ready"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

type StockLevel string

const (
	StockLevelCritical StockLevel = "Critical"
	StockLevelLow      StockLevel = "Low"
)

type MatchType string

const (
	MatchTypeExact   MatchType = "Exact match"
	MatchTypeSimilar MatchType = "Similar match"
)

type OutboxPublishStatus string

const (
	OutboxPublishStatusPending    OutboxPublishStatus = "PENDING"
	OutboxPublishStatusProcessing OutboxPublishStatus = "PROCESSING"
	OutboxPublishStatusSent       OutboxPublishStatus = "SENT"
	OutboxPublishStatusFailed     OutboxPublishStatus = "FAILED"
	OutboxPublishStatusDead       OutboxPublishStatus = "DEAD"
)

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)
