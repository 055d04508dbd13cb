package main

import (
	"context"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"transforma/internal/config"
	"transforma/internal/daemon"
	"transforma/internal/dupcache"
	"transforma/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("create directories: %v", err)
	}

	logPath := filepath.Join(cfg.Paths.LogDir, "transformad.log")
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	cache := dupcache.NewCache(cfg.Cache.Path, logger)

	var source dupcache.SyncSource
	if cfg.Cache.SyncDBPath != "" {
		sqliteSource := dupcache.NewSQLiteSource(cfg.Cache.SyncDBPath)
		defer sqliteSource.Close()
		source = sqliteSource
	}

	d, err := daemon.New(cfg, cache, source, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("transformad shutting down")
}
