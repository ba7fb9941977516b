package docstore

import (
	"context"
	"database/sql"
	"errors"
)

// Maintainer is implemented by backends that need periodic housekeeping.
type Maintainer interface {
	Maintain(ctx context.Context, opts MaintenanceOptions) (MaintenanceResult, error)
}

type MaintenanceOptions struct {
	// KeepPerCollection keeps the newest N records of each collection; 0 keeps all.
	KeepPerCollection int
	// VACUUM runs only when both thresholds are met.
	MinFreeBytes int64
	MinFreeRatio float64
}

type MaintenanceResult struct {
	Pruned   int64
	Vacuumed bool
	Stats    SQLiteStats
}

type SQLiteStats struct {
	PageSize      int64
	PageCount     int64
	FreelistCount int64
}

func (s SQLiteStats) TotalBytes() int64 {
	if s.PageSize <= 0 || s.PageCount <= 0 {
		return 0
	}
	return s.PageSize * s.PageCount
}

func (s SQLiteStats) FreeBytes() int64 {
	if s.PageSize <= 0 || s.FreelistCount <= 0 {
		return 0
	}
	return s.PageSize * s.FreelistCount
}

// AsMaintainer finds a Maintainer in store, looking through Cached.
func AsMaintainer(store Store) (Maintainer, bool) {
	for store != nil {
		if m, ok := store.(Maintainer); ok {
			return m, true
		}
		u, ok := store.(interface{ Unwrap() Store })
		if !ok {
			return nil, false
		}
		store = u.Unwrap()
	}
	return nil, false
}

func (s *sqliteStore) Maintain(ctx context.Context, opts MaintenanceOptions) (MaintenanceResult, error) {
	var res MaintenanceResult
	if opts.KeepPerCollection < 0 {
		return res, errors.New("docstore: negative KeepPerCollection")
	}

	if opts.KeepPerCollection > 0 {
		r, err := s.db.ExecContext(ctx, `
DELETE FROM documents WHERE id IN (
  SELECT id FROM (
    SELECT id, ROW_NUMBER() OVER (PARTITION BY collection ORDER BY date DESC, id DESC) AS rn
    FROM documents
  ) WHERE rn > ?
)`, opts.KeepPerCollection)
		if err != nil {
			return res, err
		}
		res.Pruned, _ = r.RowsAffected()
	}

	st, err := readSQLiteStats(ctx, s.db)
	if err != nil {
		return res, err
	}
	res.Stats = st

	total := st.TotalBytes()
	free := st.FreeBytes()
	if total <= 0 || free <= 0 {
		return res, nil
	}
	if free < opts.MinFreeBytes || float64(free)/float64(total) < opts.MinFreeRatio {
		return res, nil
	}

	// VACUUM fails with SQLITE_BUSY while another connection writes; the next run retries.
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		return res, err
	}
	res.Vacuumed = true
	_, _ = s.db.ExecContext(ctx, "PRAGMA optimize;")

	if st, err := readSQLiteStats(ctx, s.db); err == nil {
		res.Stats = st
	}
	return res, nil
}

func readSQLiteStats(ctx context.Context, db *sql.DB) (SQLiteStats, error) {
	var st SQLiteStats
	if err := db.QueryRowContext(ctx, "PRAGMA page_size;").Scan(&st.PageSize); err != nil {
		return SQLiteStats{}, err
	}
	if err := db.QueryRowContext(ctx, "PRAGMA page_count;").Scan(&st.PageCount); err != nil {
		return SQLiteStats{}, err
	}
	if err := db.QueryRowContext(ctx, "PRAGMA freelist_count;").Scan(&st.FreelistCount); err != nil {
		return SQLiteStats{}, err
	}
	return st, nil
}
