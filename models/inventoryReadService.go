package models

import (
	"context"
	"strings"

	"github.com/matraxtyres/tyre_assistant/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryReadService answers stock and catalog questions. It never writes.
type InventoryReadService struct {
	db *gorm.DB
}

func NewInventoryReadService(db *gorm.DB) *InventoryReadService {
	return &InventoryReadService{db: db}
}

const tyreViewColumns = "tyres.id, tyres.brand_id, tyre_brands.name AS brand_name, tyres.model, tyres.size, " +
	"tyres.type, tyres.price, tyres.stock, tyres.min_stock_level"

func (s *InventoryReadService) tyreViews(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("tyres").
		Select(tyreViewColumns).
		Joins("JOIN tyre_brands ON tyre_brands.id = tyres.brand_id")
}

// ByExactSize lists in-stock tyres of exactly this size, ordered by brand then model.
func (s *InventoryReadService) ByExactSize(ctx context.Context, size string) ([]TyreView, error) {
	var views []TyreView
	err := s.tyreViews(ctx).
		Where("tyres.size = ? AND tyres.stock > 0", strings.TrimSpace(size)).
		Order("tyre_brands.name ASC").Order("tyres.model ASC").
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}

func (s *InventoryReadService) ById(ctx context.Context, tyreId int) (*TyreView, error) {
	var views []TyreView
	if err := s.tyreViews(ctx).Where("tyres.id = ?", tyreId).Limit(1).Scan(&views).Error; err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return &views[0], nil
}

func (s *InventoryReadService) LowStock(ctx context.Context) ([]LowStockItem, error) {
	var views []TyreView
	err := s.tyreViews(ctx).
		Where("tyres.stock <= tyres.min_stock_level").
		Order("tyres.stock ASC").Order("tyre_brands.name ASC").Order("tyres.model ASC").
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	items := make([]LowStockItem, 0, len(views))
	for _, v := range views {
		items = append(items, LowStockItem{TyreView: v, Level: StockLevelFor(v.Stock, v.MinStockLevel)})
	}
	return items, nil
}

// FindForOrder resolves a customer's tyre description: brand and model match
// case-insensitively as substrings, size must match exactly when given.
// Among several candidates the best-stocked one wins.
func (s *InventoryReadService) FindForOrder(ctx context.Context, brand, model, size string) (*TyreView, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return nil, utils.ErrorRecordNotFound
	}
	q := s.tyreViews(ctx).Where("LOWER(tyre_brands.name) LIKE ? ESCAPE '!'", likeContains(brand))
	if model = strings.TrimSpace(model); model != "" {
		q = q.Where("LOWER(tyres.model) LIKE ? ESCAPE '!'", likeContains(model))
	}
	if size = strings.TrimSpace(size); size != "" {
		q = q.Where("tyres.size = ?", size)
	}

	var views []TyreView
	if err := q.Order("tyres.stock DESC").Order("tyres.id ASC").Limit(1).Scan(&views).Error; err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return &views[0], nil
}

func (s *InventoryReadService) Stats(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	db := s.db.WithContext(ctx)
	if err := db.Model(&Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&CarModel{}).Count(&stats.CarModels).Error; err != nil {
		return stats, err
	}
	revenue := decimal.Zero
	if err := db.Model(&Order{}).Select("COALESCE(SUM(total_amount), 0)").Row().Scan(&revenue); err != nil {
		return stats, err
	}
	stats.TotalRevenue = revenue
	if err := db.Model(&Tyre{}).Select("COALESCE(SUM(stock), 0)").Row().Scan(&stats.TyresInStock); err != nil {
		return stats, err
	}
	return stats, nil
}

func likeContains(s string) string {
	escaped := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(strings.ToLower(s))
	return "%" + escaped + "%"
}
