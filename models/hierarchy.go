package models

import (
	"time"
)

// Building is the root of the dimension hierarchy. Building names are
// unique across the whole dataset.
type Building struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string     `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Locations []Location `json:"locations,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// Location is a place inside a building. Names are unique per building,
// so two buildings may each have a "Lobby".
type Location struct {
	ID         uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	BuildingID uint        `gorm:"uniqueIndex:idx_building_location;not null" json:"building_id"`
	Name       string      `gorm:"uniqueIndex:idx_building_location;not null;size:100" json:"name"`
	Indicators []Indicator `json:"indicators,omitempty"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

// Indicator is a sensed phenomenon at a location, named by the combined
// display name and machine code (e.g. "CO2-co2").
type Indicator struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	LocationID uint      `gorm:"uniqueIndex:idx_location_indicator;not null" json:"location_id"`
	Name       string    `gorm:"uniqueIndex:idx_location_indicator;not null;size:100" json:"name"`
	Units      []Unit    `json:"units,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Unit is the unit of measure for an indicator's readings (e.g. "ppm").
type Unit struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	IndicatorID uint      `gorm:"uniqueIndex:idx_indicator_unit;not null" json:"indicator_id"`
	Name        string    `gorm:"uniqueIndex:idx_indicator_unit;not null;size:50" json:"name"`
	Values      []Value   `json:"values,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Value is a single reading. Values are append-only and never
// deduplicated across ingestion runs.
type Value struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UnitID    uint      `gorm:"index;not null" json:"unit_id"`
	Amount    float64   `gorm:"not null" json:"amount"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName customizes the table name
func (Building) TableName() string {
	return "building"
}

// TableName customizes the table name
func (Location) TableName() string {
	return "location"
}

// TableName customizes the table name
func (Indicator) TableName() string {
	return "indicator"
}

// TableName customizes the table name
func (Unit) TableName() string {
	return "unit"
}

// TableName customizes the table name
func (Value) TableName() string {
	return "value"
}

// GetAllModels returns all models for migration
func GetAllModels() []interface{} {
	return []interface{}{
		&Building{},
		&Location{},
		&Indicator{},
		&Unit{},
		&Value{},
	}
}
