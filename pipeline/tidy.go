package pipeline

import (
	"sort"
	"strings"
	"time"
)

// TidyRow is one record of the flat table, fully keyed by building,
// location, indicator, unit and timestamp.
type TidyRow struct {
	BuildingName      string
	Location          string
	ModalityIndicator string
	Unit              string
	Timestamp         time.Time
	Value             float64
}

type tidyKey struct {
	building  string
	location  string
	indicator string
	unit      string
	timestamp time.Time
}

// BuildTidyTable flattens parsed rows into the tidy table. Nil readings
// are dropped, building and location names are derived from the reference
// fields, location labels are scrubbed of building-name prefixes, and
// duplicate keys are collapsed to the mean of their values. Output order
// is order of first appearance.
func BuildTidyTable(rows []ParsedRow) []TidyRow {
	var flat []TidyRow
	buildingSet := make(map[string]bool)

	for _, row := range rows {
		for _, reading := range row.Readings {
			if reading.Value == nil {
				continue
			}

			building := afterFirstToken(reading.Col.GroupRef)
			flat = append(flat, TidyRow{
				BuildingName:      building,
				Location:          afterFirstToken(reading.Col.EquipRef),
				ModalityIndicator: reading.Col.NavName + "-" + reading.Col.Indicator,
				Unit:              reading.Col.Unit,
				Timestamp:         row.Timestamp,
				Value:             *reading.Value,
			})
			buildingSet[building] = true
		}
	}

	names := make([]string, 0, len(buildingSet))
	for name := range buildingSet {
		if name != "" {
			names = append(names, name)
		}
	}
	// Longest name first so "JCK Annex" is stripped before "JCK" gets a chance
	// to eat its prefix.
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	for i := range flat {
		flat[i].Location = cleanLocation(flat[i].Location, names)
	}

	type accumulator struct {
		sum   float64
		count int
	}

	sums := make(map[tidyKey]*accumulator)
	var order []tidyKey

	for _, row := range flat {
		key := tidyKey{row.BuildingName, row.Location, row.ModalityIndicator, row.Unit, row.Timestamp}
		acc, ok := sums[key]
		if !ok {
			acc = &accumulator{}
			sums[key] = acc
			order = append(order, key)
		}
		acc.sum += row.Value
		acc.count++
	}

	table := make([]TidyRow, 0, len(order))
	for _, key := range order {
		acc := sums[key]
		table = append(table, TidyRow{
			BuildingName:      key.building,
			Location:          key.location,
			ModalityIndicator: key.indicator,
			Unit:              key.unit,
			Timestamp:         key.timestamp,
			Value:             acc.sum / float64(acc.count),
		})
	}

	return table
}

// cleanLocation removes every known building name from a location label.
// The equipment reference often embeds the building name as a prefix, e.g.
// "JCK South Office" with building "JCK" becomes "South Office". Every
// name in the batch is applied, not just the row's own building.
func cleanLocation(location string, buildingNames []string) string {
	for _, name := range buildingNames {
		location = strings.ReplaceAll(location, name, "")
	}
	return strings.TrimSpace(location)
}

// afterFirstToken drops the leading token of a reference field. References
// look like "r:1e85e02d JCK South Office": an opaque site code followed by
// the human-readable name.
func afterFirstToken(s string) string {
	fields := strings.SplitN(strings.TrimSpace(s), " ", 2)
	if len(fields) < 2 {
		return ""
	}
	return strings.TrimSpace(fields[1])
}
