// Package daemon runs the background half of the reader integration: it
// holds the single-instance lock and keeps the duplicate cache synchronized
// with the central submission database.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"transforma/internal/config"
	"transforma/internal/dupcache"
	"transforma/internal/logging"
)

// Daemon coordinates background cache sync and enforces single-instance
// execution via a lock file in the log directory.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	cache  *dupcache.Cache
	source dupcache.SyncSource

	logPath  string
	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	CachePath    string
	CacheCount   int
	LastSync     time.Time
	LockFilePath string
	SyncInterval time.Duration
}

// New constructs a daemon with initialized dependencies. source may be nil
// when no central database is configured; the daemon then only holds the
// lock and serves status.
func New(cfg *config.Config, cache *dupcache.Cache, source dupcache.SyncSource, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || cache == nil {
		return nil, errors.New("daemon requires config and cache")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "transformad.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String(logging.FieldComponent, "daemon")),
		cache:    cache,
		source:   source,
		logPath:  filepath.Join(cfg.Paths.LogDir, "transformad.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches background cache sync.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another transforma daemon instance is already running")
	}

	if d.source != nil {
		interval := time.Duration(d.cfg.Cache.SyncInterval) * time.Second
		d.cache.StartBackgroundSync(d.source, interval)
	} else {
		d.logger.Info("no sync database configured; duplicate cache is local-only")
	}

	d.running.Store(true)
	d.logger.Info("transforma daemon started",
		logging.String("lock", d.lockPath),
		logging.String("cache", d.cfg.Cache.Path))
	return nil
}

// Stop halts background sync and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.cache.StopBackgroundSync()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("transforma daemon stopped")
}

// Close stops the daemon and flushes the cache to disk.
func (d *Daemon) Close() error {
	d.Stop()
	if err := d.cache.Save(); err != nil {
		return fmt.Errorf("persist cache on shutdown: %w", err)
	}
	return nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		CachePath:    d.cfg.Cache.Path,
		CacheCount:   d.cache.Count(),
		LastSync:     d.cache.LastSync(),
		LockFilePath: d.lockPath,
		SyncInterval: time.Duration(d.cfg.Cache.SyncInterval) * time.Second,
	}
}
