package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastewater-dashboards/surveillance-review/internal/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *time.Time) {
	t.Helper()
	c, err := Open(Config{InMemory: true, TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key("s3", "hani/allSites_Updated.csv"), Key("s3", "hani/allSites_Updated.csv"))
	assert.NotEqual(t, Key("s3", "a", "b"), Key("s3", "ab"))
}

func TestCacheExpires(t *testing.T) {
	c, clock := newTestCache(t, time.Hour)
	key := Key("memory", "sites.csv")

	_, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)

	rows := []models.LatestPairRow{{SiteID: "OTW", Measure: "covN2"}}
	require.NoError(t, c.Put(key, Entry{Built: *clock, Rows: rows}))

	got, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rows, got.Rows)

	*clock = clock.Add(time.Hour)
	_, ok, err = c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefresherCachesUntilForced(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	log, _ := test.NewNullLogger()

	calls := 0
	load := func(context.Context) ([]models.LatestPairRow, error) {
		calls++
		return []models.LatestPairRow{{SiteID: "TOR", Measure: "covN2"}}, nil
	}
	r := NewRefresher(c, Key("x"), load, nil, log)

	first, err := r.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := r.Latest(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, 1, calls)

	_, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRefresherPropagatesLoadError(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	log, _ := test.NewNullLogger()
	boom := errors.New("feed unavailable")

	r := NewRefresher(c, Key("y"), func(context.Context) ([]models.LatestPairRow, error) { return nil, boom }, nil, log)
	_, err := r.Latest(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestInvalidate(t *testing.T) {
	c, clock := newTestCache(t, time.Hour)
	key := Key("z")
	require.NoError(t, c.Put(key, Entry{Built: *clock}))
	require.NoError(t, c.Invalidate(key))

	_, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)
}
