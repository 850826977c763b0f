package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const OrderCodePrefix = "MTX"

type Order struct {
	ID              int             `gorm:"primary_key" json:"id"`
	CustomerName    string          `gorm:"size:255;not null" json:"customer_name"`
	Status          OrderStatus     `gorm:"size:20;not null;default:'Pending';index" json:"status"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	ShippingAddress *string         `gorm:"type:text" json:"shipping_address"`
	PaymentMethod   *string         `gorm:"size:50" json:"payment_method"`
	CreatedAt       time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type OrderItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	OrderId   int             `gorm:"index;not null" json:"order_id"`
	TyreId    int             `gorm:"index;not null" json:"tyre_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
}

type OrderLineView struct {
	ID        int             `json:"id"`
	TyreId    int             `json:"tyre_id"`
	TyreName  string          `json:"tyre_name"`
	BrandName string          `json:"brand_name"`
	Model     string          `json:"model"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l OrderLineView) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderView is an order header with its lines resolved to tyre and brand names.
type OrderView struct {
	ID              int             `json:"id"`
	OrderCode       string          `json:"order_code"`
	CustomerName    string          `json:"customer_name"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingAddress *string         `json:"shipping_address"`
	PaymentMethod   *string         `json:"payment_method"`
	ItemsCount      int             `json:"items_count"`
	Items           []OrderLineView `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
}

type OrderResult struct {
	OrderId   int             `json:"order_id"`
	OrderCode string          `json:"order_code"`
	Status    OrderStatus     `json:"status"`
	Total     decimal.Decimal `json:"total_amount"`
	Replayed  bool            `json:"replayed,omitempty"`
}

func FormatOrderCode(orderId int) string {
	return fmt.Sprintf("%s-%05d", OrderCodePrefix, orderId)
}

var orderCodePattern = regexp.MustCompile(`(?i)\b(?:mtx|mts)[-\s]?(\d+)\b`)

// ParseOrderCode extracts the order id from the first order code found in text.
func ParseOrderCode(text string) (int, bool) {
	m := orderCodePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
