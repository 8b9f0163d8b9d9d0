package pipeline

import (
	"skyspark_sync/store"
)

// Counts reports how many rows an ingestion run touched per level.
// Touched dimension rows may be found or created; values are always
// inserted.
type Counts struct {
	BuildingsTouched  int
	LocationsTouched  int
	IndicatorsTouched int
	UnitsTouched      int
	ValuesInserted    int
}

// Ingest walks the tidy table building by building, finds or creates each
// dimension row exactly once per distinct key, and appends one value per
// tidy row. The caller is expected to pass a transactional store so a
// failure rolls back the whole batch.
func Ingest(rows []TidyRow, tx *store.Store) (Counts, error) {
	var counts Counts

	for _, byBuilding := range groupRows(rows, func(r TidyRow) string { return r.BuildingName }) {
		building, err := tx.FindOrCreateBuilding(byBuilding.key)
		if err != nil {
			return counts, err
		}
		counts.BuildingsTouched++

		for _, byLocation := range groupRows(byBuilding.rows, func(r TidyRow) string { return r.Location }) {
			location, err := tx.FindOrCreateLocation(building.ID, byLocation.key)
			if err != nil {
				return counts, err
			}
			counts.LocationsTouched++

			for _, byIndicator := range groupRows(byLocation.rows, func(r TidyRow) string { return r.ModalityIndicator }) {
				indicator, err := tx.FindOrCreateIndicator(location.ID, byIndicator.key)
				if err != nil {
					return counts, err
				}
				counts.IndicatorsTouched++

				for _, byUnit := range groupRows(byIndicator.rows, func(r TidyRow) string { return r.Unit }) {
					unit, err := tx.FindOrCreateUnit(indicator.ID, byUnit.key)
					if err != nil {
						return counts, err
					}
					counts.UnitsTouched++

					for _, row := range byUnit.rows {
						if err := tx.AppendValue(unit.ID, row.Value, row.Timestamp); err != nil {
							return counts, err
						}
						counts.ValuesInserted++
					}
				}
			}
		}
	}

	return counts, nil
}

type rowGroup struct {
	key  string
	rows []TidyRow
}

// groupRows partitions rows by key, preserving order of first appearance.
func groupRows(rows []TidyRow, keyFn func(TidyRow) string) []rowGroup {
	index := make(map[string]int)
	var groups []rowGroup

	for _, row := range rows {
		key := keyFn(row)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, rowGroup{key: key})
		}
		groups[i].rows = append(groups[i].rows, row)
	}

	return groups
}
