package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CarBrand struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Country   string    `gorm:"size:100" json:"country"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type CarModel struct {
	ID        int                         `gorm:"primary_key" json:"id"`
	BrandId   int                         `gorm:"index;not null" json:"brand_id"`
	Name      string                      `gorm:"size:100;not null" json:"name"`
	Year      int                         `json:"year"`
	TyreSizes datatypes.JSONSlice[string] `json:"tyre_sizes"`
	CreatedAt time.Time                   `gorm:"autoCreateTime" json:"created_at"`
}

type TyreBrand struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Country   string    `gorm:"size:100" json:"country"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type Tyre struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BrandId       int             `gorm:"index;not null" json:"brand_id"`
	Model         string          `gorm:"size:150;not null" json:"model"`
	Size          string          `gorm:"size:20;not null;index" json:"size"`
	Type          string          `gorm:"size:50" json:"type"`
	Price         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price"`
	Cost          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost"`
	Stock         int             `gorm:"not null;default:0" json:"stock"`
	MinStockLevel int             `gorm:"not null;default:50" json:"min_stock_level"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TyreView is a tyre joined with its brand name.
type TyreView struct {
	ID            int             `json:"id"`
	BrandId       int             `json:"brand_id"`
	BrandName     string          `json:"brand_name"`
	Model         string          `json:"model"`
	Size          string          `json:"size"`
	Type          string          `json:"type"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	MinStockLevel int             `json:"min_stock_level"`
}

func (t TyreView) DisplayName() string {
	return fmt.Sprintf("%s %s", t.BrandName, t.Model)
}

type LowStockItem struct {
	TyreView
	Level StockLevel `json:"status"`
}

// StockLevelFor tags a tyre at or below its minimum; Critical is below half
// the minimum using integer division.
func StockLevelFor(stock, minStockLevel int) StockLevel {
	if stock < minStockLevel/2 {
		return StockLevelCritical
	}
	return StockLevelLow
}

type DashboardStats struct {
	TotalOrders  int64           `json:"total_orders"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TyresInStock int64           `json:"tyres_in_stock"`
	CarModels    int64           `json:"car_models"`
}
