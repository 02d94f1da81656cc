package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastewater-dashboards/surveillance-review/internal/blobstore"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"BLOB_DRIVER", "BLOB_ROOT", "OUTPUT_KEY", "OUTPUT_ENCODING", "WATCHER_REQUEST_TIMEOUT", "DRY_RUN", "WATCHER_BY_FRACTION"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, blobstore.DriverFilesystem, cfg.Blob.Driver)
	assert.Equal(t, "data", cfg.Blob.Root)
	assert.Equal(t, "latest_obs.csv", cfg.OutputKey)
	assert.Equal(t, tabular.UTF8, cfg.OutputEncoding)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
	assert.False(t, cfg.DryRun)
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BLOB_DRIVER", "memory")
	t.Setenv("OUTPUT_KEY", "hani/latest_obs.csv")
	t.Setenv("OUTPUT_ENCODING", "utf-16be")
	t.Setenv("WATCHER_REQUEST_TIMEOUT", "30s")
	t.Setenv("DRY_RUN", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, blobstore.DriverMemory, cfg.Blob.Driver)
	assert.Equal(t, "hani/latest_obs.csv", cfg.OutputKey)
	assert.Equal(t, tabular.UTF16BE, cfg.OutputEncoding)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.DryRun)
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BLOB_DRIVER", "")

	t.Setenv("OUTPUT_ENCODING", "ebcdic")
	_, err := Load()
	assert.ErrorContains(t, err, "OUTPUT_ENCODING")

	t.Setenv("OUTPUT_ENCODING", "")
	t.Setenv("WATCHER_REQUEST_TIMEOUT", "soon")
	_, err = Load()
	assert.ErrorContains(t, err, "WATCHER_REQUEST_TIMEOUT")

	t.Setenv("WATCHER_REQUEST_TIMEOUT", "")
	t.Setenv("BLOB_DRIVER", "s3")
	t.Setenv("S3_BUCKET", "")
	_, err = Load()
	assert.ErrorContains(t, err, "S3_BUCKET")
}
