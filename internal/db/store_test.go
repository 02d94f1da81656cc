package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastewater-dashboards/surveillance-review/internal/models"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Ping(context.Background()))
	return store
}

func seedMpox(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	_, err := s.conn.exec(ctx, `CREATE TABLE "mpox" ("Location" TEXT, "EpiYear" INTEGER, "EpiWeek" INTEGER, "Week_start" TEXT, "g2r_label" TEXT)`)
	require.NoError(t, err)
	_, err = s.conn.exec(ctx, `INSERT INTO "mpox" VALUES ('Toronto', 2024, 9, '2024-02-25', 'No Detection'), ('Ottawa', 2024, 9, '2024-02-25', NULL)`)
	require.NoError(t, err)
}

func TestQuoteIdent(t *testing.T) {
	q, err := quoteIdent("catalog.schema.ww_trends")
	require.NoError(t, err)
	assert.Equal(t, `"catalog"."schema"."ww_trends"`, q)

	for _, bad := range []string{"", "mpox; DROP TABLE x", `a"b`, "a..b"} {
		_, err := quoteIdent(bad)
		assert.Error(t, err, bad)
	}
}

func TestFetchTableAsText(t *testing.T) {
	s := newSQLiteStore(t)
	seedMpox(t, s)

	table, err := s.FetchTable(context.Background(), "mpox", []string{"Location", "EpiYear", "EpiWeek", "Week_start", "g2r_label"})
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "2024", table.Value(0, "EpiYear"))
	assert.Equal(t, "No Detection", table.Value(0, "g2r_label"))
	assert.Equal(t, "", table.Value(1, "g2r_label"))
}

func TestUpdateRowMatchesKey(t *testing.T) {
	s := newSQLiteStore(t)
	seedMpox(t, s)
	ctx := context.Background()

	n, err := s.UpdateRow(ctx, "mpox",
		[]Assignment{{Column: "g2r_label", Value: "Consistent Detection"}},
		[]Assignment{{Column: "Location", Value: "Toronto"}, {Column: "EpiYear", Value: "2024"}, {Column: "EpiWeek", Value: "9"}},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	table, err := s.FetchTable(ctx, "mpox", []string{"Location", "g2r_label"})
	require.NoError(t, err)
	assert.Equal(t, "Consistent Detection", table.Value(0, "g2r_label"))
	assert.Equal(t, "", table.Value(1, "g2r_label"))

	n, err = s.UpdateRow(ctx, "mpox",
		[]Assignment{{Column: "g2r_label", Value: "x"}},
		[]Assignment{{Column: "Location", Value: "Nowhere"}},
	)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.UpdateRow(ctx, "mpox", []Assignment{{Column: "g2r_label", Value: "x"}}, nil)
	assert.Error(t, err)
}

func TestLogEntriesLifecycle(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureLogTable(ctx, "logs"))
	require.NoError(t, s.EnsureLogTable(ctx, "logs"))

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
	second := base
	second.Time = base.Time.Add(time.Minute)
	second.OldValue, second.NewValue = "High", "Moderate"

	require.NoError(t, s.InsertLogEntries(ctx, "logs", []models.AuditLogEntry{second, base}))

	entries, err := s.ListLogEntries(ctx, "logs")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, models.SameEntry(base, entries[0]))
	assert.True(t, models.SameEntry(second, entries[1]))

	near := base
	near.NewValue = "Moderate"
	n, err := s.DeleteLogEntries(ctx, "logs", []models.AuditLogEntry{near})
	require.NoError(t, err)
	assert.Zero(t, n, "partial matches must not delete")

	n, err = s.DeleteLogEntries(ctx, "logs", []models.AuditLogEntry{base})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err = s.ListLogEntries(ctx, "logs")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Moderate", entries[0].NewValue)
}

func TestLazyOpensOnce(t *testing.T) {
	lazy := NewLazy(DriverSQLite, ":memory:")
	defer lazy.Close()

	first, err := lazy.Get(context.Background())
	require.NoError(t, err)
	second, err := lazy.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, DriverSQLite, first.Driver())

	_, err = NewLazy("oracle", "x").Get(context.Background())
	assert.Error(t, err)
}
