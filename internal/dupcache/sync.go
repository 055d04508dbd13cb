package dupcache

import (
	"context"
	"time"

	"transforma/internal/logging"
)

// SyncSource supplies the authoritative set of submitted invoices the
// background loop merges into the local store.
type SyncSource interface {
	Fetch(ctx context.Context) ([]Record, error)
}

// StartBackgroundSync launches the periodic refresh loop. A second call
// while the loop is running is a no-op.
func (c *Cache) StartBackgroundSync(source SyncSource, interval time.Duration) {
	if source == nil || c.path == "" {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	if c.syncCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.syncCancel = cancel
	c.syncDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.syncOnce(ctx, source)
			}
		}
	}()

	c.logger.Debug("background sync started", logging.Duration("interval", interval))
}

// StopBackgroundSync terminates the refresh loop and blocks until it has
// fully exited; no further disk writes happen after it returns. Safe to
// call repeatedly and without a prior start.
func (c *Cache) StopBackgroundSync() {
	c.syncMu.Lock()
	cancel := c.syncCancel
	done := c.syncDone
	c.syncCancel = nil
	c.syncDone = nil
	c.syncMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.logger.Debug("background sync stopped")
}

// syncOnce pulls the remote record set and merges unseen filenames.
// Foreground queries never observe a partially merged state: the whole
// merge, persist included, happens under the store lock.
func (c *Cache) syncOnce(ctx context.Context, source SyncSource) {
	records, err := source.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("sync fetch failed",
			logging.String(logging.FieldEventType, "dupcache_sync_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "will retry next interval"))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, record := range records {
		if record.Filename == "" || len(record.Filename) > MaxFilenameLen ||
			len(record.FIRSReference) > MaxReferenceLen ||
			len(record.SubmittedBy) > MaxSubmitterLen {
			c.logger.Warn("skipping sync record with out-of-bounds field",
				logging.String("filename", record.Filename),
				logging.String(logging.FieldErrorHint, "record exceeds store field limits"))
			continue
		}
		if _, exists := c.index[record.Filename]; exists {
			continue
		}
		c.records = append(c.records, record)
		c.index[record.Filename] = struct{}{}
		added++
	}
	if added == 0 {
		return
	}

	if err := c.save(); err != nil {
		c.logger.Warn("failed to persist after sync merge", logging.Error(err))
		return
	}
	c.logger.Info("merged records from sync source",
		logging.Int("added", added),
		logging.Int("total", len(c.records)))
}
