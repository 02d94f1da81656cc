package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wastewater-dashboards/surveillance-review/internal/audit"
	"github.com/wastewater-dashboards/surveillance-review/internal/blobstore"
	"github.com/wastewater-dashboards/surveillance-review/internal/datasets"
	"github.com/wastewater-dashboards/surveillance-review/internal/db"
	"github.com/wastewater-dashboards/surveillance-review/internal/edit"
	"github.com/wastewater-dashboards/surveillance-review/internal/identity"
	"github.com/wastewater-dashboards/surveillance-review/internal/jobs"
	"github.com/wastewater-dashboards/surveillance-review/internal/latest"
	"github.com/wastewater-dashboards/surveillance-review/internal/logging"
	"github.com/wastewater-dashboards/surveillance-review/internal/metrics"
	"github.com/wastewater-dashboards/surveillance-review/internal/models"
	"github.com/wastewater-dashboards/surveillance-review/internal/notify"
	"github.com/wastewater-dashboards/surveillance-review/internal/session"
	"github.com/wastewater-dashboards/surveillance-review/internal/snapshot"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
	"github.com/wastewater-dashboards/surveillance-review/services/api/config"
	httpserver "github.com/wastewater-dashboards/surveillance-review/services/api/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}

	log, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		logrus.Fatalf("logging error: %v", err)
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	registry, err := datasets.LoadRegistry(cfg.DatasetsFile)
	if err != nil {
		return err
	}
	for name, table := range cfg.Tables {
		registry.SetTable(name, table)
	}

	blobs, err := blobstore.Open(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	// The warehouse connection is created on first use and shared.
	var warehouse *db.Lazy
	if cfg.DatabaseURL != "" {
		warehouse = db.NewLazy(cfg.DatabaseDriver, cfg.DatabaseURL)
		defer warehouse.Close()
	}

	rec := metrics.New()
	sources := make(map[string]datasets.Source)
	for _, name := range registry.Names() {
		d, _ := registry.Get(name)
		if cfg.Backend == config.BackendWarehouse && d.Table != "" {
			sources[name] = datasets.NewWarehouseSource(d, warehouse, log)
		} else {
			sources[name] = datasets.NewBlobSource(d, blobs, log).WithMetrics(rec)
		}
	}

	var changeLog audit.Log
	if cfg.Backend == config.BackendWarehouse {
		wl := audit.NewWarehouseLog(warehouse, cfg.LogsTable)
		if err := wl.Ensure(ctx); err != nil {
			return fmt.Errorf("change log table: %w", err)
		}
		changeLog = wl
	} else {
		changeLog = audit.NewBlobLog(blobs, cfg.AuditLogKey, []tabular.Encoding{tabular.UTF8}, log)
	}

	cache, err := snapshot.Open(snapshot.Config{
		Path:     cfg.SnapshotPath,
		InMemory: cfg.SnapshotPath == "",
		TTL:      cfg.SnapshotTTL,
	})
	if err != nil {
		return err
	}
	defer cache.Close()

	allSites, _ := registry.Get(datasets.AllSites)
	latestSrc := sources[datasets.AllSites]
	refresher := snapshot.NewRefresher(
		cache,
		snapshot.Key(string(cfg.Backend), allSites.BlobKey, allSites.Table),
		func(ctx context.Context) ([]models.LatestPairRow, error) {
			table, err := latestSrc.Fetch(ctx)
			if err != nil {
				return nil, err
			}
			return latest.ReduceTable(table, latest.Options{ExcludePrefix: latest.ConfidenceMeasurePrefix})
		},
		rec,
		log,
	)

	hub := notify.NewHub(log, rec)
	defer hub.Close()

	sessions := session.NewManager(cfg.SessionIdle, log)
	go sessions.Run(ctx, time.Minute)

	controller := edit.NewController(edit.Deps{
		Registry:   registry,
		Sources:    sources,
		Log:        changeLog,
		Authorizer: identity.Authorizer{Group: cfg.EditorGroup, Development: cfg.Development},
		Publisher:  hub,
		Jobs:       jobs.NewClient(&http.Client{Timeout: cfg.JobTimeout}, cfg.JobURL, cfg.JobID, cfg.JobToken),
		Metrics:    rec,
		Logger:     log,
	})

	var health func(context.Context) error
	if warehouse != nil {
		health = func(ctx context.Context) error {
			store, err := warehouse.Get(ctx)
			if err != nil {
				return err
			}
			return store.Ping(ctx)
		}
	}

	srv := httpserver.New(cfg, httpserver.Deps{
		Registry: registry,
		Sources:  sources,
		Log:      changeLog,
		Edits:    controller,
		Sessions: sessions,
		Latest:   refresher,
		Hub:      hub,
		Metrics:  rec,
		Logger:   log,
		Admin:    identity.Authorizer{Group: cfg.AdminGroup, Development: cfg.Development},
		Health:   health,
	})

	log.WithFields(logrus.Fields{
		"addr":     cfg.ListenAddr(),
		"backend":  cfg.Backend,
		"blob":     blobs.Driver(),
		"datasets": registry.Names(),
	}).Info("review API listening")

	return srv.Run(ctx)
}
