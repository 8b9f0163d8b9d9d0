package database

import (
	"fmt"

	"skyspark_sync/models"

	"gorm.io/gorm"
)

// Migrate creates or updates the tables for all registered models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
