package snapshot

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wastewater-dashboards/surveillance-review/internal/metrics"
	"github.com/wastewater-dashboards/surveillance-review/internal/models"
)

// Loader rebuilds the latest-pair rows from the source of truth.
type Loader func(ctx context.Context) ([]models.LatestPairRow, error)

// Result is what a page receives. Cached is false when the rows were just
// rebuilt.
type Result struct {
	Entry
	Cached bool
}

// Refresher serves cache-first reads of one source and serializes rebuilds.
type Refresher struct {
	cache   *Cache
	key     uint64
	load    Loader
	metrics *metrics.Recorder
	log     logrus.FieldLogger

	mu sync.Mutex
}

func NewRefresher(cache *Cache, key uint64, load Loader, rec *metrics.Recorder, log logrus.FieldLogger) *Refresher {
	return &Refresher{cache: cache, key: key, load: load, metrics: rec, log: log}
}

// Latest returns the cached rows while fresh, rebuilding otherwise.
func (r *Refresher) Latest(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok, err := r.cache.Get(r.key)
	if err != nil {
		r.log.WithError(err).Warn("snapshot cache read failed, rebuilding")
	} else if ok {
		r.metrics.Snapshot("hit")
		return Result{Entry: entry, Cached: true}, nil
	}
	return r.rebuild(ctx)
}

// Refresh rebuilds unconditionally.
func (r *Refresher) Refresh(ctx context.Context) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuild(ctx)
}

func (r *Refresher) rebuild(ctx context.Context) (Result, error) {
	rows, err := r.load(ctx)
	if err != nil {
		r.metrics.Snapshot("error")
		return Result{}, err
	}

	entry := Entry{Built: r.cache.now().UTC(), Rows: rows}
	if err := r.cache.Put(r.key, entry); err != nil {
		r.log.WithError(err).Warn("snapshot cache write failed")
	}
	r.metrics.Snapshot("refresh")
	r.log.WithField("rows", len(rows)).Info("latest snapshot rebuilt")
	return Result{Entry: entry}, nil
}
