package dupcache

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

type fakeSource struct {
	records []Record
	err     error
	fetches atomic.Int64
}

func (f *fakeSource) Fetch(ctx context.Context) ([]Record, error) {
	f.fetches.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func TestSyncMergeSkipsKnownFilenames(t *testing.T) {
	cache, path := newTestCache(t)
	if err := cache.AddEntry("local.pdf", "LOCAL-1", "me"); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	source := &fakeSource{records: []Record{
		{Filename: "local.pdf", FIRSReference: "REMOTE-OVERWRITE", SubmittedBy: "them", SubmitTime: 9},
		{Filename: "remote.pdf", FIRSReference: "REMOTE-1", SubmittedBy: "them", SubmitTime: 10},
		{Filename: ""}, // invalid, skipped
	}}

	cache.syncOnce(context.Background(), source)

	if got := cache.Check("local.pdf"); got.FIRSReference != "LOCAL-1" {
		t.Errorf("local record overwritten by merge: %+v", got)
	}
	if got := cache.Check("remote.pdf"); got.Status != StatusAlreadySubmitted || got.FIRSReference != "REMOTE-1" {
		t.Errorf("remote record not merged: %+v", got)
	}

	// The merge must be durable.
	if NewCache(path, nil).Check("remote.pdf").Status != StatusAlreadySubmitted {
		t.Error("merged record not persisted")
	}
}

func TestSyncMergeRejectsOutOfBoundsFields(t *testing.T) {
	cache, path := newTestCache(t)

	longRef := strings.Repeat("R", MaxReferenceLen+9)
	longUser := strings.Repeat("u", MaxSubmitterLen+1)
	source := &fakeSource{records: []Record{
		{Filename: "bad-ref.pdf", FIRSReference: longRef, SubmittedBy: "ok", SubmitTime: 1},
		{Filename: "bad-user.pdf", FIRSReference: "OK-1", SubmittedBy: longUser, SubmitTime: 2},
		{Filename: "good.pdf", FIRSReference: "OK-2", SubmittedBy: "them", SubmitTime: 3},
	}}

	cache.syncOnce(context.Background(), source)

	// Records that cannot round-trip through the fixed-width store are
	// skipped entirely; nothing may enter memory at a length the disk
	// format would truncate.
	if got := cache.Check("bad-ref.pdf"); got.Status != StatusNotSubmitted {
		t.Errorf("overlong reference merged: %+v", got)
	}
	if got := cache.Check("bad-user.pdf"); got.Status != StatusNotSubmitted {
		t.Errorf("overlong submitter merged: %+v", got)
	}
	if got := cache.Check("good.pdf"); got.Status != StatusAlreadySubmitted {
		t.Errorf("valid record not merged: %+v", got)
	}

	// Memory and disk agree record for record.
	reloaded := NewCache(path, nil)
	if reloaded.Count() != cache.Count() {
		t.Fatalf("reloaded count %d, in-memory %d", reloaded.Count(), cache.Count())
	}
	if got := reloaded.Check("good.pdf"); got.FIRSReference != "OK-2" {
		t.Errorf("persisted record = %+v", got)
	}
}

func TestSyncFetchErrorLeavesStoreIntact(t *testing.T) {
	cache, _ := newTestCache(t)
	if err := cache.AddEntry("keep.pdf", "R", "u"); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	cache.syncOnce(context.Background(), &fakeSource{err: errors.New("db locked")})
	if cache.Count() != 1 {
		t.Errorf("Count = %d after failed fetch, want 1", cache.Count())
	}
}

func TestBackgroundSyncLifecycle(t *testing.T) {
	cache, _ := newTestCache(t)
	source := &fakeSource{records: []Record{{Filename: "synced.pdf", FIRSReference: "S-1", SubmittedBy: "them", SubmitTime: 1}}}

	cache.StartBackgroundSync(source, 10*time.Millisecond)
	// Second start is a no-op, not a second loop.
	cache.StartBackgroundSync(source, 10*time.Millisecond)

	deadline := time.After(2 * time.Second)
	for cache.Check("synced.pdf").Status != StatusAlreadySubmitted {
		select {
		case <-deadline:
			t.Fatal("background sync never merged the remote record")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cache.StopBackgroundSync()
	fetchesAtStop := source.fetches.Load()
	time.Sleep(50 * time.Millisecond)
	if got := source.fetches.Load(); got != fetchesAtStop {
		t.Errorf("fetches continued after stop: %d -> %d", fetchesAtStop, got)
	}

	// Stop must be idempotent.
	cache.StopBackgroundSync()
	cache.StopBackgroundSync()
}

func TestSQLiteSourceFetch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sync.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open sync db: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE submitted_invoices (
		filename TEXT NOT NULL,
		submit_time INTEGER NOT NULL,
		firs_ref TEXT NOT NULL,
		user TEXT NOT NULL
	)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO submitted_invoices VALUES
		('a.pdf', 100, 'FIRS-A', 'ada@example.com'),
		('b.pdf', 200, 'FIRS-B', 'grace@example.com')`); err != nil {
		t.Fatalf("insert rows: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close seed db: %v", err)
	}

	source := NewSQLiteSource(dbPath)
	defer source.Close()

	records, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Filename != "a.pdf" || records[0].SubmitTime != 100 || records[0].FIRSReference != "FIRS-A" {
		t.Errorf("record[0] = %+v", records[0])
	}
}

func TestSQLiteSourceMissingDatabase(t *testing.T) {
	source := NewSQLiteSource(filepath.Join(t.TempDir(), "absent.db"))
	if _, err := source.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for missing sync database")
	}
}
