package pipeline

import (
	"context"
	"fmt"
	"time"

	"skyspark_sync/logger"
	"skyspark_sync/skyspark"
	"skyspark_sync/store"
)

// Fetcher returns the raw sensor grid, scoped to readings after the since
// cursor when one is given.
type Fetcher interface {
	Fetch(ctx context.Context, since string) (*skyspark.RawDocument, error)
}

// Syncer drives one incremental ingestion run: read the cursor, fetch,
// parse, tidy, persist.
type Syncer struct {
	fetcher Fetcher
	store   *store.Store
}

// NewSyncer creates a sync driver over the given fetcher and store.
func NewSyncer(fetcher Fetcher, s *store.Store) *Syncer {
	return &Syncer{fetcher: fetcher, store: s}
}

// Run executes one batch. Any fetch, parse or storage failure aborts the
// run with no partial ingestion: the whole batch is written in a single
// transaction.
func (s *Syncer) Run(ctx context.Context) (Counts, error) {
	last, ok, err := s.store.LastRecordedTimestamp()
	if err != nil {
		return Counts{}, err
	}

	since := ""
	if ok {
		since = last.Format(time.RFC3339)
		logger.Printf("Fetching readings since %s\n", since)
	} else {
		logger.Println("No readings recorded yet, fetching full history")
	}

	doc, err := s.fetcher.Fetch(ctx, since)
	if err != nil {
		return Counts{}, fmt.Errorf("fetch failed: %w", err)
	}

	parsed, err := ParseDocument(doc)
	if err != nil {
		return Counts{}, err
	}

	table := BuildTidyTable(parsed)
	logger.Printf("Parsed %d row(s) into %d tidy record(s)\n", len(parsed), len(table))

	var counts Counts
	err = s.store.Transaction(func(tx *store.Store) error {
		c, err := Ingest(table, tx)
		if err != nil {
			return err
		}
		counts = c
		return nil
	})
	if err != nil {
		return Counts{}, fmt.Errorf("failed to persist batch: %w", err)
	}

	return counts, nil
}
