// Package pipeline reshapes raw sensor grids into a tidy table and
// persists it into the Building/Location/Indicator/Unit/Value hierarchy.
package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"skyspark_sync/skyspark"
)

// Reading is one cell of a grid row paired with its column metadata.
// Value is nil when the cell holds no numeric substring.
type Reading struct {
	Value *float64
	Col   skyspark.ColDescriptor
}

// ParsedRow is one grid row: its timestamp and one reading per sensor column.
type ParsedRow struct {
	Timestamp time.Time
	Readings  []Reading
}

// ParseError reports a malformed timestamp cell and the row it came from.
type ParseError struct {
	Row  int
	Cell string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: bad timestamp cell %q: %v", e.Row, e.Cell, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var numberPattern = regexp.MustCompile(`[0-9]*\.?[0-9]+`)

// ParseDocument converts a raw grid into parsed rows. The first column of
// every row is the timestamp cell; every other column yields one reading
// carrying the full descriptor of its column. A malformed timestamp fails
// the whole batch.
func ParseDocument(doc *skyspark.RawDocument) ([]ParsedRow, error) {
	if len(doc.Cols) == 0 {
		return nil, nil
	}

	tsCol := doc.Cols[0].Name
	parsed := make([]ParsedRow, 0, len(doc.Rows))

	for i, row := range doc.Rows {
		timestamp, err := parseTimestampCell(row[tsCol])
		if err != nil {
			return nil, &ParseError{Row: i, Cell: row[tsCol], Err: err}
		}

		readings := make([]Reading, 0, len(doc.Cols)-1)
		for _, col := range doc.Cols[1:] {
			readings = append(readings, Reading{
				Value: extractNumber(row[col.Name]),
				Col:   col,
			})
		}

		parsed = append(parsed, ParsedRow{Timestamp: timestamp, Readings: readings})
	}

	return parsed, nil
}

// parseTimestampCell parses a cell like
// "t:2018-11-28T08:00:00-06:00 Chicago": the first whitespace token minus
// its t: tag is the timestamp; the trailing zone label is discarded.
func parseTimestampCell(cell string) (time.Time, error) {
	fields := strings.Fields(cell)
	if len(fields) == 0 {
		return time.Time{}, fmt.Errorf("empty timestamp cell")
	}

	token := fields[0]
	if !strings.HasPrefix(token, "t:") {
		return time.Time{}, fmt.Errorf("missing t: tag")
	}

	timestamp, err := time.Parse(time.RFC3339, strings.TrimPrefix(token, "t:"))
	if err != nil {
		return time.Time{}, err
	}

	return timestamp.UTC(), nil
}

// extractNumber returns the first decimal-number substring of a cell, or
// nil when the cell holds none (absent readings included).
func extractNumber(cell string) *float64 {
	match := numberPattern.FindString(cell)
	if match == "" {
		return nil
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}

	return &value
}
