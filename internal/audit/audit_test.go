package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastewater-dashboards/surveillance-review/internal/blobstore"
	"github.com/wastewater-dashboards/surveillance-review/internal/datasets"
	"github.com/wastewater-dashboards/surveillance-review/internal/db"
	"github.com/wastewater-dashboards/surveillance-review/internal/models"
)

func TestDiffOnlyChangedColumns(t *testing.T) {
	old := map[string]string{"Location": "X", "g2r_label": "No Detection", "EpiWeek": "9"}
	edited := map[string]string{"Location": "X", "g2r_label": "Consistent Detection", "EpiWeek": "10"}

	changes := Diff(old, edited, []string{"g2r_label"})
	assert.Equal(t, []Change{{Column: "g2r_label", Old: "No Detection", New: "Consistent Detection"}}, changes)

	assert.Empty(t, Diff(old, old, []string{"g2r_label", "EpiWeek"}))
	assert.Empty(t, Diff(old, map[string]string{}, []string{"g2r_label"}))

	both := Diff(old, edited, []string{"EpiWeek", "g2r_label"})
	require.Len(t, both, 2)
	assert.Equal(t, "EpiWeek", both[0].Column)
}

func TestNewEntriesCopiesKeyFields(t *testing.T) {
	row := map[string]string{"Location": "Toronto", "EpiWeek": "9", "EpiYear": "2024", "g2r_label": "No Detection"}
	meta := Meta{User: "alice", Page: "Mpox", Time: time.Date(2024, 3, 1, 9, 30, 0, 500, time.UTC)}
	key := datasets.AuditKey{Location: "Location", EpiWeek: "EpiWeek", EpiYear: "EpiYear"}

	entries := NewEntries(meta, row, key, []Change{{Column: "g2r_label", Old: "No Detection", New: "Consistent Detection"}})
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "alice", e.User)
	assert.Equal(t, "Mpox", e.Page)
	assert.Equal(t, "Toronto", e.Location)
	assert.Equal(t, "9", e.EpiWeek)
	assert.Equal(t, "2024", e.EpiYear)
	assert.Equal(t, "", e.SiteID)
	assert.Equal(t, "g2r_label", e.ChangedColumn)
	assert.Equal(t, 0, e.Time.Nanosecond())
}

func sampleEntries() []models.AuditLogEntry {
	base := models.AuditLogEntry{
		User:          "alice",
		Time:          time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Page:          "Wastewater Trends",
		Location:      "Ottawa",
		Measure:       "covN2",
		ChangedColumn: "Viral_Activity_Level",
		OldValue:      "Low",
		NewValue:      "High",
	}
	other := base
	other.User = "bob"
	other.Location = "Québec City"
	return []models.AuditLogEntry{base, other}
}

func exerciseLog(t *testing.T, l Log) {
	t.Helper()
	ctx := context.Background()

	list, err := l.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	entries := sampleEntries()
	require.NoError(t, l.Append(ctx, entries[:1]))
	require.NoError(t, l.Append(ctx, entries[1:]))

	list, err = l.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Québec City", list[1].Location)

	mismatch := entries[0]
	mismatch.OldValue = "Moderate"
	n, err := l.Delete(ctx, []models.AuditLogEntry{mismatch})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = l.Delete(ctx, []models.AuditLogEntry{entries[0]})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err = l.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bob", list[0].User)
}

func TestBlobLog(t *testing.T) {
	logger, _ := test.NewNullLogger()
	exerciseLog(t, NewBlobLog(blobstore.NewMemory(), "wastewater/user_changes_log.csv", nil, logger))
}

func TestWarehouseLog(t *testing.T) {
	lazy := db.NewLazy(db.DriverSQLite, filepath.Join(t.TempDir(), "logs.db"))
	t.Cleanup(lazy.Close)
	l := NewWarehouseLog(lazy, "user_changes_log")
	require.NoError(t, l.Ensure(context.Background()))
	exerciseLog(t, l)
}

func TestMemoryLog(t *testing.T) {
	exerciseLog(t, &MemoryLog{})
}
