package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastewater-dashboards/surveillance-review/internal/blobstore"
	"github.com/wastewater-dashboards/surveillance-review/internal/datasets"
	"github.com/wastewater-dashboards/surveillance-review/internal/db"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr())
	assert.Equal(t, BackendBlob, cfg.Backend)
	assert.Equal(t, blobstore.DriverFilesystem, cfg.Blob.Driver)
	assert.Equal(t, "Wastewater_StreamLit_AdminPage", cfg.AdminGroup)
	assert.Equal(t, cfg.AdminGroup, cfg.EditorGroup)
	assert.Equal(t, 24*time.Hour, cfg.SnapshotTTL)
	assert.False(t, cfg.Development)
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "warehouse")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", ":memory:")
	t.Setenv("MPOX_TABLE", "mpox_v2")
	t.Setenv("LOGS_TABLE", "changes")
	t.Setenv("EDITOR_GROUP", "ww_editors")
	t.Setenv("DEVELOPMENT", "TRUE")
	t.Setenv("SNAPSHOT_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, BackendWarehouse, cfg.Backend)
	assert.Equal(t, db.DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, map[string]string{datasets.Mpox: "mpox_v2"}, cfg.Tables)
	assert.Equal(t, "changes", cfg.LogsTable)
	assert.Equal(t, "ww_editors", cfg.EditorGroup)
	assert.True(t, cfg.Development)
	assert.Equal(t, time.Hour, cfg.SnapshotTTL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port", map[string]string{"PORT": "abc"}},
		{"backend", map[string]string{"STORAGE_BACKEND": "ftp"}},
		{"warehouse without url", map[string]string{"STORAGE_BACKEND": "warehouse"}},
		{"s3 without bucket", map[string]string{"BLOB_DRIVER": "s3"}},
		{"job without id", map[string]string{"JOB_TRIGGER_URL": "http://jobs.local/run"}},
		{"ttl", map[string]string{"SNAPSHOT_TTL": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
