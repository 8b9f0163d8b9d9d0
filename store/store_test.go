package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"skyspark_sync/database"
	"skyspark_sync/models"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
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

	return New(db), db
}

func TestFindOrCreateBuildingReturnsExistingRow(t *testing.T) {
	s, db := newTestStore(t)

	first, err := s.FindOrCreateBuilding("JCK")
	require.NoError(t, err)
	second, err := s.FindOrCreateBuilding("JCK")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Building{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFindOrCreateLocationScopedByBuilding(t *testing.T) {
	s, db := newTestStore(t)

	jck, err := s.FindOrCreateBuilding("JCK")
	require.NoError(t, err)
	wlc, err := s.FindOrCreateBuilding("WLC")
	require.NoError(t, err)

	jckLobby, err := s.FindOrCreateLocation(jck.ID, "Lobby")
	require.NoError(t, err)
	wlcLobby, err := s.FindOrCreateLocation(wlc.ID, "Lobby")
	require.NoError(t, err)

	// Same name under different buildings is two distinct rows.
	assert.NotEqual(t, jckLobby.ID, wlcLobby.ID)

	again, err := s.FindOrCreateLocation(jck.ID, "Lobby")
	require.NoError(t, err)
	assert.Equal(t, jckLobby.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.Location{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestAppendValueNeverDeduplicates(t *testing.T) {
	s, db := newTestStore(t)

	unit := buildUnitChain(t, s)
	ts := time.Date(2018, 11, 28, 14, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendValue(unit.ID, 482.0, ts))
	require.NoError(t, s.AppendValue(unit.ID, 482.0, ts))

	var count int64
	require.NoError(t, db.Model(&models.Value{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestLastRecordedTimestamp(t *testing.T) {
	s, _ := newTestStore(t)

	_, ok, err := s.LastRecordedTimestamp()
	require.NoError(t, err)
	assert.False(t, ok)

	unit := buildUnitChain(t, s)
	older := time.Date(2018, 11, 28, 8, 0, 0, 0, time.UTC)
	newer := time.Date(2018, 11, 28, 14, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendValue(unit.ID, 482.0, newer))
	require.NoError(t, s.AppendValue(unit.ID, 478.0, older))

	last, ok, err := s.LastRecordedTimestamp()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, newer.Equal(last), "expected %v, got %v", newer, last)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	s, db := newTestStore(t)

	err := s.Transaction(func(tx *Store) error {
		if _, err := tx.FindOrCreateBuilding("JCK"); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Building{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "rolled-back dimension rows must not remain")
}

func buildUnitChain(t *testing.T, s *Store) *models.Unit {
	t.Helper()

	building, err := s.FindOrCreateBuilding("JCK")
	require.NoError(t, err)
	location, err := s.FindOrCreateLocation(building.ID, "South Office")
	require.NoError(t, err)
	indicator, err := s.FindOrCreateIndicator(location.ID, "CO2-co2")
	require.NoError(t, err)
	unit, err := s.FindOrCreateUnit(indicator.ID, "ppm")
	require.NoError(t, err)

	return unit
}
