package session

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastewater-dashboards/surveillance-review/internal/identity"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

type fakePending string

func (f fakePending) TransactionID() string { return string(f) }

func newTestManager(idle time.Duration) (*Manager, *time.Time) {
	log, _ := test.NewNullLogger()
	m := NewManager(idle, log)
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestOpenCreatesAndReuses(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	alice := identity.Identity{User: "alice"}

	s := m.Open("", alice)
	require.NotEmpty(t, s.ID)
	assert.Equal(t, "alice", s.Identity().User)

	again := m.Open(s.ID, identity.Identity{User: "alice", Groups: []string{"editors"}})
	assert.Same(t, s, again)
	assert.Equal(t, []string{"editors"}, again.Identity().Groups)

	other := m.Open("does-not-exist", alice)
	assert.NotEqual(t, s.ID, other.ID)
	assert.Equal(t, 2, m.Len())
}

func TestSnapshotResetsPending(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	s := m.Open("", identity.Anon())

	table := tabular.New([]string{"Location"}, [][]string{{"Ottawa"}})
	s.SetSnapshot("mpox", table)
	s.SetPending("mpox", fakePending("tx-1"))

	p, ok := s.Pending("mpox")
	require.True(t, ok)
	assert.Equal(t, "tx-1", p.TransactionID())

	s.SetSnapshot("mpox", table)
	_, ok = s.Pending("mpox")
	assert.False(t, ok)

	got, ok := s.Snapshot("mpox")
	require.True(t, ok)
	assert.Same(t, table, got)
}

func TestFilters(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	s := m.Open("", identity.Anon())

	in := []string{"Ottawa", "Toronto"}
	s.SetFilters("site", in)
	in[0] = "changed"
	assert.Equal(t, []string{"Ottawa", "Toronto"}, s.Filters("site"))

	s.SetFilters("site", nil)
	assert.Empty(t, s.Filters("site"))
}

func TestSweepExpiresIdle(t *testing.T) {
	m, clock := newTestManager(30 * time.Minute)
	old := m.Open("", identity.Anon())

	*clock = clock.Add(20 * time.Minute)
	fresh := m.Open("", identity.Anon())

	*clock = clock.Add(15 * time.Minute)
	assert.Equal(t, 1, m.Sweep())

	_, ok := m.Get(old.ID)
	assert.False(t, ok)
	_, ok = m.Get(fresh.ID)
	assert.True(t, ok)
}
