package workflow

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/matraxtyres/tyre_assistant/models"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("idempotency in progress")

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// beginIdempotency runs inside the caller's transaction. A committed row is always
// SUCCEEDED (failures roll the row back), so an existing row means "replay".
func beginIdempotency(tx *gorm.DB, scope, requestKey string) (*models.IdempotencyKey, error) {
	existing, err := findIdempotencyKey(tx, scope, requestKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == models.IdempotencyStatusSucceeded {
			return existing, nil
		}
		return nil, tx.Model(&models.IdempotencyKey{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
	}

	key := models.IdempotencyKey{
		Scope:      scope,
		RequestKey: requestKey,
		Status:     models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&key).Error; err != nil {
		if !isDuplicateKeyErr(err) {
			return nil, err
		}
		// Another request with the same key committed first.
		existing, findErr := findIdempotencyKey(tx, scope, requestKey)
		if findErr != nil {
			return nil, findErr
		}
		if existing != nil && existing.Status == models.IdempotencyStatusSucceeded {
			return existing, nil
		}
		return nil, ErrIdempotencyInProgress
	}
	return nil, nil
}

func markIdempotencySucceeded(tx *gorm.DB, scope, requestKey string, resourceId int) error {
	return tx.Model(&models.IdempotencyKey{}).
		Where("scope = ? AND request_key = ?", scope, requestKey).
		Updates(map[string]interface{}{
			"status":      models.IdempotencyStatusSucceeded,
			"resource_id": resourceId,
			"last_error":  nil,
		}).Error
}

func findIdempotencyKey(tx *gorm.DB, scope, requestKey string) (*models.IdempotencyKey, error) {
	var keys []models.IdempotencyKey
	if err := tx.Where("scope = ? AND request_key = ?", scope, requestKey).Limit(1).Find(&keys).Error; err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	return &keys[0], nil
}
