// Package export rebuilds the latest-observation snapshot from the all-sites
// feed and publishes it as a CSV object.
package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/wastewater-dashboards/surveillance-review/internal/blobstore"
	"github.com/wastewater-dashboards/surveillance-review/internal/datasets"
	"github.com/wastewater-dashboards/surveillance-review/internal/latest"
	"github.com/wastewater-dashboards/surveillance-review/internal/models"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

// Exporter reduces the source feed and writes the result to Store under Key.
type Exporter struct {
	Source     datasets.Source
	Store      blobstore.Store
	Key        string
	Encoding   tabular.Encoding
	ByFraction bool
	DryRun     bool
	Log        logrus.FieldLogger
}

// Report summarises one run.
type Report struct {
	Observations int
	Rows         int
	Bytes        int
	Written      bool
	Unchanged    bool
}

// Run performs one export. An output identical to the stored object is not
// rewritten.
func (e *Exporter) Run(ctx context.Context) (Report, error) {
	var report Report

	table, err := e.Source.Fetch(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch all-sites feed: %w", err)
	}
	report.Observations = table.Len()

	rows, err := latest.ReduceTable(table, latest.Options{
		ExcludePrefix: latest.ConfidenceMeasurePrefix,
		ByFraction:    e.ByFraction,
	})
	if err != nil {
		return report, fmt.Errorf("reduce observations: %w", err)
	}
	report.Rows = len(rows)

	data, _, err := tabular.Encode(models.LatestPairTable(rows), []tabular.Encoding{e.Encoding})
	if err != nil {
		return report, err
	}
	report.Bytes = len(data)

	existing, _, err := blobstore.ReadAll(ctx, e.Store, e.Key)
	switch {
	case err == nil:
		if xxhash.Sum64(existing) == xxhash.Sum64(data) {
			report.Unchanged = true
			return report, nil
		}
	case errors.Is(err, blobstore.ErrNotFound):
	default:
		return report, fmt.Errorf("read %s: %w", e.Key, err)
	}

	if e.DryRun {
		e.Log.WithFields(logrus.Fields{"key": e.Key, "rows": report.Rows, "bytes": report.Bytes}).Info("dry-run: skipping upload")
		return report, nil
	}

	if _, err := blobstore.WriteAll(ctx, e.Store, e.Key, data); err != nil {
		return report, fmt.Errorf("write %s: %w", e.Key, err)
	}
	report.Written = true
	return report, nil
}
