package dupcache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"transforma/internal/logging"
)

var (
	// ErrFieldTooLong reports a value that exceeds its on-disk field width.
	// The boundary policy is reject, never silent truncation.
	ErrFieldTooLong = errors.New("field exceeds cache record width")

	// ErrAlreadyRecorded reports an AddEntry for a filename that is already
	// present. The first record for a filename is authoritative.
	ErrAlreadyRecorded = errors.New("filename already recorded")
)

// Status is the outcome of a duplicate check.
type Status int

const (
	// StatusNotSubmitted means the filename has no record; safe to submit.
	StatusNotSubmitted Status = iota
	// StatusAlreadySubmitted means a record exists; block submission.
	StatusAlreadySubmitted
	// StatusUnavailable means the cache is not operational; allow with warning.
	StatusUnavailable
)

// CheckResult is a query-time snapshot, not a live reference.
type CheckResult struct {
	Status        Status
	FIRSReference string
	SubmittedBy   string
	SubmitTime    uint64
}

// Cache provides thread-safe duplicate detection over the binary store.
type Cache struct {
	path     string
	logger   *slog.Logger
	fileLock *flock.Flock

	mu       sync.Mutex
	records  []Record
	index    map[string]struct{}
	lastSync uint64

	syncMu     sync.Mutex
	syncCancel func()
	syncDone   chan struct{}
}

// NewCache creates a cache bound to path and loads any existing store. A
// missing file, unreadable data, or an unknown format version yields an
// empty store, never a failure: duplicate detection degrades, the rest of
// the system keeps working. An empty path yields a non-functional cache
// whose checks report StatusUnavailable.
func NewCache(path string, logger *slog.Logger) *Cache {
	logger = logging.NewComponentLogger(logger, "dupcache")

	c := &Cache{
		path:   path,
		logger: logger,
		index:  make(map[string]struct{}),
	}
	if path == "" {
		return c
	}
	c.fileLock = flock.New(path + ".lock")

	if err := c.load(); err != nil {
		logger.Warn("failed to load duplicate cache, starting empty",
			logging.String(logging.FieldEventType, "dupcache_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldImpact, "previously submitted invoices may not be flagged"))
	}
	return c
}

// Check reports whether filename has been submitted before. Check never
// mutates state; repeated calls return equal results absent an intervening
// AddEntry or sync merge.
func (c *Cache) Check(filename string) CheckResult {
	if c.path == "" {
		return CheckResult{Status: StatusUnavailable}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, found := c.index[filename]; !found {
		return CheckResult{Status: StatusNotSubmitted}
	}

	// The index proves existence; the record itself comes from a linear
	// scan. Submissions are rare relative to reads, so the scan stays
	// cheap in practice.
	for _, record := range c.records {
		if record.Filename == filename {
			return CheckResult{
				Status:        StatusAlreadySubmitted,
				FIRSReference: record.FIRSReference,
				SubmittedBy:   record.SubmittedBy,
				SubmitTime:    record.SubmitTime,
			}
		}
	}
	return CheckResult{Status: StatusAlreadySubmitted}
}

// AddEntry records a successful submission and persists it before
// returning. On a persistence failure the in-memory state is rolled back
// and the error reported; the caller decides how to surface the gap.
func (c *Cache) AddEntry(filename, firsReference, submittedBy string) error {
	if c.path == "" {
		return errors.New("cache path not configured")
	}
	if err := validateFields(filename, firsReference, submittedBy); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[filename]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRecorded, filename)
	}

	record := Record{
		Filename:      filename,
		SubmitTime:    uint64(time.Now().Unix()),
		FIRSReference: firsReference,
		SubmittedBy:   submittedBy,
	}
	c.records = append(c.records, record)
	c.index[filename] = struct{}{}

	if err := c.save(); err != nil {
		c.records = c.records[:len(c.records)-1]
		delete(c.index, filename)
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("recorded submitted invoice",
		logging.String("filename", filename),
		logging.String("firs_reference", firsReference),
		logging.String("submitted_by", submittedBy))
	return nil
}

// Save persists the current store to disk.
func (c *Cache) Save() error {
	if c.path == "" {
		return errors.New("cache path not configured")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save()
}

// Count returns the number of records in the store.
func (c *Cache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Records returns a snapshot of all records in store order.
func (c *Cache) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot := make([]Record, len(c.records))
	copy(snapshot, c.records)
	return snapshot
}

// LastSync returns the timestamp written by the most recent persist.
func (c *Cache) LastSync() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastSync == 0 {
		return time.Time{}
	}
	return time.Unix(int64(c.lastSync), 0)
}

// Clear removes all records and persists the empty store.
func (c *Cache) Clear() error {
	if c.path == "" {
		return errors.New("cache path not configured")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = nil
	c.index = make(map[string]struct{})
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	c.logger.Debug("cleared duplicate cache")
	return nil
}

func validateFields(filename, firsReference, submittedBy string) error {
	if filename == "" {
		return errors.New("filename cannot be empty")
	}
	if len(filename) > MaxFilenameLen {
		return fmt.Errorf("%w: filename is %d bytes, max %d", ErrFieldTooLong, len(filename), MaxFilenameLen)
	}
	if len(firsReference) > MaxReferenceLen {
		return fmt.Errorf("%w: firs_reference is %d bytes, max %d", ErrFieldTooLong, len(firsReference), MaxReferenceLen)
	}
	if len(submittedBy) > MaxSubmitterLen {
		return fmt.Errorf("%w: submitted_by is %d bytes, max %d", ErrFieldTooLong, len(submittedBy), MaxSubmitterLen)
	}
	return nil
}

// load reads the store from disk and rebuilds the index. Callers hold no
// lock yet; load runs only during construction.
func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // fresh start
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	hdr, records, err := decodeStore(data)
	if err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}

	c.records = records
	c.lastSync = hdr.LastSync
	c.index = make(map[string]struct{}, len(records))
	for _, record := range records {
		c.index[record.Filename] = struct{}{}
	}

	c.logger.Debug("loaded duplicate cache",
		logging.Int("entry_count", len(records)),
		logging.String("path", c.path))
	return nil
}

// save writes the store atomically. Callers must hold c.mu; the flock keeps
// a second process from reading a half-replaced file.
func (c *Cache) save() error {
	now := uint64(time.Now().Unix())
	data := encodeStore(header{
		Version:    formatVersion,
		EntryCount: uint32(len(c.records)),
		LastSync:   now,
	}, c.records)

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	if c.fileLock != nil {
		if err := c.fileLock.Lock(); err != nil {
			return fmt.Errorf("acquire cache file lock: %w", err)
		}
		defer func() {
			_ = c.fileLock.Unlock()
		}()
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	c.lastSync = now
	return nil
}
