package models

import "gorm.io/gorm"

// MigrateTable is for local and dev databases; production schema is managed outside this service.
func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&CarBrand{}, &CarModel{}, &TyreBrand{}, &Tyre{},
		&Order{}, &OrderItem{},
		&ChatSession{}, &ChatMessage{},
		&OutboxEvent{}, &IdempotencyKey{},
	)
}
