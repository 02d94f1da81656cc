package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.EditCommitted("mpox", 3, 200*time.Millisecond)
	r.EditCommitted("mpox", 1, 100*time.Millisecond)
	r.EditFailed("large-jumps", "persist", time.Second)
	r.JobTriggered(nil)
	r.JobTriggered(errors.New("boom"))
	r.Snapshot("hit")
	r.Decoded("mpox", "utf-16be")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.editsCommitted.WithLabelValues("mpox")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.auditEntries.WithLabelValues("mpox")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.editFailures.WithLabelValues("large-jumps", "persist")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobTriggers.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.snapshotRefresh.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.decodes.WithLabelValues("mpox", "utf-16be")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.EditCommitted("mpox", 1, time.Second)
		r.JobTriggered(nil)
		r.ClientConnected()
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.EditCommitted("ww-trends", 1, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `review_edits_committed_total{dataset="ww-trends"} 1`)
}
