package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"VolRank/internal/domain/models"
	"VolRank/internal/domain/repository"
)

// ClickHouseSnapshotStore implements SnapshotSink for ClickHouse: each pass
// is flattened into one row per ranked symbol.
type ClickHouseSnapshotStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseSnapshotStore creates ClickHouse snapshot storage.
func NewClickHouseSnapshotStore(db *sql.DB, table string) repository.SnapshotSink {
	return &ClickHouseSnapshotStore{db: db, table: table}
}

func (s *ClickHouseSnapshotStore) Publish(ctx context.Context, snap *models.RankSnapshot) error {
	if snap == nil || len(snap.Entries) == 0 {
		return nil
	}

	// Multi-row VALUES insert to keep one pass at one round-trip.
	values := make([]string, 0, len(snap.Entries))
	args := make([]interface{}, 0, len(snap.Entries)*6)
	for i, e := range snap.Entries {
		values = append(values, "(?, ?, ?, ?, ?, ?)")
		args = append(args,
			snap.Timestamp,
			snap.Pass,
			string(snap.Interval),
			e.Symbol,
			uint32(i+1),
			e.Ratio,
		)
	}

	q := fmt.Sprintf("INSERT INTO %s (ts, pass, interval, symbol, rank, ratio) VALUES %s",
		s.table, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert snapshot rows: %w", err)
	}
	return nil
}

func (s *ClickHouseSnapshotStore) Close() error {
	return nil // connection pool owned by pkg/clickhouse client
}
