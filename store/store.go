// Package store is the transactional unit-of-work over the dimension
// hierarchy. Dimension rows are looked up by parent id plus name and
// created on first encounter; value rows are append-only.
package store

import (
	"errors"
	"fmt"
	"time"

	"skyspark_sync/models"

	"gorm.io/gorm"
)

// Store wraps a gorm handle. Inside Transaction the wrapped handle is the
// transaction, so every find-or-create and append in one batch commits or
// rolls back together.
type Store struct {
	db *gorm.DB
}

// New creates a store over the given database handle
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn within a single database transaction.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// FindOrCreateBuilding returns the building with the given name, creating
// it if absent. Building names are unique across the whole dataset.
func (s *Store) FindOrCreateBuilding(name string) (*models.Building, error) {
	var building models.Building
	err := s.db.Where("name = ?", name).
		Attrs(models.Building{Name: name}).
		FirstOrCreate(&building).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find or create building %q: %w", name, err)
	}
	return &building, nil
}

// FindOrCreateLocation returns the location with the given name under the
// given building, creating it if absent.
func (s *Store) FindOrCreateLocation(buildingID uint, name string) (*models.Location, error) {
	var location models.Location
	err := s.db.Where("building_id = ? AND name = ?", buildingID, name).
		Attrs(models.Location{BuildingID: buildingID, Name: name}).
		FirstOrCreate(&location).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find or create location %q: %w", name, err)
	}
	return &location, nil
}

// FindOrCreateIndicator returns the indicator with the given name under
// the given location, creating it if absent.
func (s *Store) FindOrCreateIndicator(locationID uint, name string) (*models.Indicator, error) {
	var indicator models.Indicator
	err := s.db.Where("location_id = ? AND name = ?", locationID, name).
		Attrs(models.Indicator{LocationID: locationID, Name: name}).
		FirstOrCreate(&indicator).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find or create indicator %q: %w", name, err)
	}
	return &indicator, nil
}

// FindOrCreateUnit returns the unit with the given name under the given
// indicator, creating it if absent.
func (s *Store) FindOrCreateUnit(indicatorID uint, name string) (*models.Unit, error) {
	var unit models.Unit
	err := s.db.Where("indicator_id = ? AND name = ?", indicatorID, name).
		Attrs(models.Unit{IndicatorID: indicatorID, Name: name}).
		FirstOrCreate(&unit).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find or create unit %q: %w", name, err)
	}
	return &unit, nil
}

// AppendValue inserts one reading under the given unit. Values are never
// deduplicated: replaying a batch inserts a second row per reading.
func (s *Store) AppendValue(unitID uint, amount float64, timestamp time.Time) error {
	value := models.Value{
		UnitID:    unitID,
		Amount:    amount,
		Timestamp: timestamp,
	}
	if err := s.db.Create(&value).Error; err != nil {
		return fmt.Errorf("failed to append value for unit %d: %w", unitID, err)
	}
	return nil
}

// LastRecordedTimestamp returns the newest value timestamp, or false when
// no values have been recorded yet.
func (s *Store) LastRecordedTimestamp() (time.Time, bool, error) {
	var value models.Value
	err := s.db.Order("timestamp DESC").First(&value).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query last recorded timestamp: %w", err)
	}
	return value.Timestamp, true, nil
}
