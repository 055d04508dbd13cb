package dupcache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteSource reads submitted invoices out of the companion app's sync
// database. The table is owned by the companion; this side only ever
// selects from it.
type SQLiteSource struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteSource creates a source over the sync database at path. The
// database is opened lazily on first fetch so a companion app that has not
// run yet does not break startup.
func NewSQLiteSource(path string) *SQLiteSource {
	return &SQLiteSource{path: path}
}

// Fetch returns all submitted-invoice records currently in the sync
// database.
func (s *SQLiteSource) Fetch(ctx context.Context) ([]Record, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT filename, submit_time, firs_ref, user FROM submitted_invoices`)
	if err != nil {
		return nil, fmt.Errorf("query submitted invoices: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var record Record
		if err := rows.Scan(&record.Filename, &record.SubmitTime, &record.FIRSReference, &record.SubmittedBy); err != nil {
			return nil, fmt.Errorf("scan submitted invoice: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submitted invoices: %w", err)
	}
	return records, nil
}

// Close releases the database handle.
func (s *SQLiteSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteSource) open() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}

	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("sync database unavailable: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open sync database: %w", err)
	}

	// The companion app writes concurrently; do not stall on its locks.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA query_only = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply query_only: %w", err)
	}

	s.db = db
	return db, nil
}

var _ SyncSource = (*SQLiteSource)(nil)
