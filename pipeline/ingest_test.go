package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"skyspark_sync/database"
	"skyspark_sync/models"
	"skyspark_sync/store"
)

func newTestStore(t *testing.T) (*store.Store, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A second pooled connection would see a fresh in-memory database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	return store.New(db), db
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

// fixtureTable returns 5 rows in one building across 3 locations and 4
// distinct indicator/unit pairs.
func fixtureTable(t *testing.T) []TidyRow {
	t.Helper()
	base := mustTime(t, "2018-11-28T08:00:00-06:00")
	return []TidyRow{
		{"JCK", "South Office", "CO2-co2", "ppm", base, 482.0},
		{"JCK", "South Office", "Temp-air-temp", "°F", base, 71.5},
		{"JCK", "North Office", "CO2-co2", "ppm", base, 510.0},
		{"JCK", "Mechanical Room", "Particulates-pm2.5", "µg/m³", base, 9.8},
		{"JCK", "South Office", "CO2-co2", "ppm", base.Add(15 * time.Minute), 478.0},
	}
}

func TestIngestRoundTrip(t *testing.T) {
	s, db := newTestStore(t)

	var counts Counts
	err := s.Transaction(func(tx *store.Store) error {
		c, err := Ingest(fixtureTable(t), tx)
		counts = c
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, Counts{
		BuildingsTouched:  1,
		LocationsTouched:  3,
		IndicatorsTouched: 4,
		UnitsTouched:      4,
		ValuesInserted:    5,
	}, counts)

	assert.EqualValues(t, 1, countRows(t, db, &models.Building{}))
	assert.EqualValues(t, 3, countRows(t, db, &models.Location{}))
	assert.EqualValues(t, 4, countRows(t, db, &models.Indicator{}))
	assert.EqualValues(t, 4, countRows(t, db, &models.Unit{}))
	assert.EqualValues(t, 5, countRows(t, db, &models.Value{}))
}

func TestIngestIdempotentDimensions(t *testing.T) {
	s, db := newTestStore(t)
	table := fixtureTable(t)

	for i := 0; i < 2; i++ {
		err := s.Transaction(func(tx *store.Store) error {
			_, err := Ingest(table, tx)
			return err
		})
		require.NoError(t, err)
	}

	// Dimensions are deduplicated across runs; values never are.
	assert.EqualValues(t, 1, countRows(t, db, &models.Building{}))
	assert.EqualValues(t, 3, countRows(t, db, &models.Location{}))
	assert.EqualValues(t, 4, countRows(t, db, &models.Indicator{}))
	assert.EqualValues(t, 4, countRows(t, db, &models.Unit{}))
	assert.EqualValues(t, 10, countRows(t, db, &models.Value{}))
}

func TestIngestCrossRunDisjointTimestamps(t *testing.T) {
	s, db := newTestStore(t)

	batchA := fixtureTable(t)
	batchB := make([]TidyRow, len(batchA))
	copy(batchB, batchA)
	for i := range batchB {
		batchB[i].Timestamp = batchB[i].Timestamp.Add(24 * time.Hour)
	}

	for _, batch := range [][]TidyRow{batchA, batchB} {
		err := s.Transaction(func(tx *store.Store) error {
			_, err := Ingest(batch, tx)
			return err
		})
		require.NoError(t, err)
	}

	assert.EqualValues(t, 1, countRows(t, db, &models.Building{}))
	assert.EqualValues(t, 3, countRows(t, db, &models.Location{}))
	assert.EqualValues(t, 4, countRows(t, db, &models.Indicator{}))
	assert.EqualValues(t, 4, countRows(t, db, &models.Unit{}))
	assert.EqualValues(t, int64(len(batchA)+len(batchB)), countRows(t, db, &models.Value{}))
}

func TestIngestScopesLocationNamesByBuilding(t *testing.T) {
	s, db := newTestStore(t)
	ts := mustTime(t, "2018-11-28T08:00:00-06:00")

	table := []TidyRow{
		{"JCK", "Lobby", "CO2-co2", "ppm", ts, 482.0},
		{"WLC", "Lobby", "CO2-co2", "ppm", ts, 390.0},
	}

	err := s.Transaction(func(tx *store.Store) error {
		_, err := Ingest(table, tx)
		return err
	})
	require.NoError(t, err)

	// Two buildings each own their own "Lobby" row.
	assert.EqualValues(t, 2, countRows(t, db, &models.Building{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.Location{}))

	var lobbies []models.Location
	require.NoError(t, db.Where("name = ?", "Lobby").Find(&lobbies).Error)
	require.Len(t, lobbies, 2)
	assert.NotEqual(t, lobbies[0].BuildingID, lobbies[1].BuildingID)
}

func TestIngestEmptyTable(t *testing.T) {
	s, db := newTestStore(t)

	var counts Counts
	err := s.Transaction(func(tx *store.Store) error {
		c, err := Ingest(nil, tx)
		counts = c
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, Counts{}, counts)
	assert.EqualValues(t, 0, countRows(t, db, &models.Building{}))
}
