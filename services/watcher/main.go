package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wastewater-dashboards/surveillance-review/internal/blobstore"
	"github.com/wastewater-dashboards/surveillance-review/internal/datasets"
	"github.com/wastewater-dashboards/surveillance-review/internal/logging"
	"github.com/wastewater-dashboards/surveillance-review/services/watcher/internal/config"
	"github.com/wastewater-dashboards/surveillance-review/services/watcher/internal/export"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("watcher failed")
		stop()
		_ = closeLog()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	registry, err := datasets.LoadRegistry(cfg.DatasetsFile)
	if err != nil {
		return err
	}
	d, ok := registry.Get(datasets.AllSites)
	if !ok {
		return fmt.Errorf("dataset %s is not configured", datasets.AllSites)
	}

	store, err := blobstore.Open(ctx, cfg.Blob)
	if err != nil {
		return err
	}

	started := time.Now()
	exp := &export.Exporter{
		Source:     datasets.NewBlobSource(d, store, log),
		Store:      store,
		Key:        cfg.OutputKey,
		Encoding:   cfg.OutputEncoding,
		ByFraction: cfg.ByFraction,
		DryRun:     cfg.DryRun,
		Log:        log,
	}
	report, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	entry := log.WithFields(logrus.Fields{
		"key":          cfg.OutputKey,
		"observations": report.Observations,
		"rows":         report.Rows,
		"took":         time.Since(started).String(),
	})
	switch {
	case report.Unchanged:
		entry.Info("latest observations unchanged")
	case report.Written:
		entry.WithField("bytes", report.Bytes).Info("latest observations written")
	default:
		entry.Info("latest observations computed (dry-run)")
	}
	return nil
}
