package export

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastewater-dashboards/surveillance-review/internal/blobstore"
	"github.com/wastewater-dashboards/surveillance-review/internal/datasets"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

func newExporter(t *testing.T, dryRun bool) (*Exporter, *blobstore.Memory) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := blobstore.NewMemory()

	feed := tabular.New(
		[]string{"name", "healthReg", "siteID", "datasetID", "sampleID", "collDT", "measure", "valavg", "fraction"},
		[][]string{
			{"Ottawa", "Ottawa PH", "OTW", "ottawa", "s1", "2024-01-01", "covN2", "5", "liq"},
			{"Ottawa", "Ottawa PH", "OTW", "ottawa", "s2", "2024-01-08", "covN2", "50", "liq"},
			{"Ottawa", "Ottawa PH", "OTW", "ottawa", "s2", "2024-01-08", "conf_covN2", "1", "liq"},
		})
	data, _, err := tabular.Encode(feed, []tabular.Encoding{tabular.UTF8})
	require.NoError(t, err)
	_, err = blobstore.WriteAll(context.Background(), store, "hani/allSites_Updated.csv", data)
	require.NoError(t, err)

	registry, err := datasets.NewRegistry(datasets.Defaults())
	require.NoError(t, err)
	d, ok := registry.Get(datasets.AllSites)
	require.True(t, ok)

	return &Exporter{
		Source:   datasets.NewBlobSource(d, store, logger),
		Store:    store,
		Key:      "latest_obs.csv",
		Encoding: tabular.UTF8,
		DryRun:   dryRun,
		Log:      logger,
	}, store
}

func TestRunWritesSnapshot(t *testing.T) {
	exp, store := newExporter(t, false)
	ctx := context.Background()

	report, err := exp.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Observations)
	assert.Equal(t, 1, report.Rows)
	assert.True(t, report.Written)

	data, _, err := blobstore.ReadAll(ctx, store, "latest_obs.csv")
	require.NoError(t, err)
	table, _, err := tabular.Decode(data, []tabular.Encoding{tabular.UTF8})
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "50", table.Value(0, "latestObs"))
	assert.Equal(t, "5", table.Value(0, "previousObs"))

	report, err = exp.Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Unchanged)
	assert.False(t, report.Written)
}

func TestRunDryRun(t *testing.T) {
	exp, store := newExporter(t, true)

	report, err := exp.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Written)

	_, err = store.Head(context.Background(), "latest_obs.csv")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestRunMissingFeed(t *testing.T) {
	exp, store := newExporter(t, false)
	_, err := store.Delete(context.Background(), "hani/allSites_Updated.csv")
	require.NoError(t, err)

	_, err = exp.Run(context.Background())
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
