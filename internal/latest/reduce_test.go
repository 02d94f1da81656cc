package latest

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastewater-dashboards/surveillance-review/internal/models"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func val(v float64) *float64 { return &v }

func obs(site, measure string, collected time.Time, v float64, sample string) models.Observation {
	return models.Observation{
		Name:        site + " plant",
		HealthReg:   "Region",
		SiteID:      site,
		DatasetID:   "D1",
		Measure:     measure,
		SampleID:    sample,
		Value:       val(v),
		CollectedAt: collected,
	}
}

func TestReduceLatestAndPrevious(t *testing.T) {
	input := []models.Observation{
		obs("S1", "covN2", day(1), 10, "a"),
		obs("S1", "covN2", day(8), 12, "b"),
		obs("S1", "covN2", day(15), 9, "c"),
	}

	rows, err := Reduce(input, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 9.0, *row.LatestObs)
	assert.Equal(t, day(15), row.LatestObsDT)
	assert.Equal(t, "c", row.LatestSampleID)
	assert.Equal(t, 12.0, *row.PreviousObs)
	assert.Equal(t, day(8), *row.PreviousObsDT)
	assert.Equal(t, "b", *row.PreviousSampleID)
}

func TestReduceSingleObservation(t *testing.T) {
	rows, err := Reduce([]models.Observation{obs("S2", "rsv", day(3), 4, "x")}, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 4.0, *rows[0].LatestObs)
	assert.Nil(t, rows[0].PreviousObs)
	assert.Nil(t, rows[0].PreviousObsDT)
	assert.Nil(t, rows[0].PreviousSampleID)
}

func TestReduceExcludesConfidenceMeasures(t *testing.T) {
	input := []models.Observation{
		obs("S1", "covN2", day(1), 1, "a"),
		obs("S1", "confcovN2", day(2), 2, "b"),
	}
	rows, err := Reduce(input, Options{ExcludePrefix: ConfidenceMeasurePrefix})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "covN2", rows[0].Measure)

	rows, err = Reduce(input, Options{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReduceGroupsByFraction(t *testing.T) {
	solid := obs("S1", "covN2", day(1), 1, "a")
	solid.Fraction = "solid"
	liquid := obs("S1", "covN2", day(2), 2, "b")
	liquid.Fraction = "liquid"

	rows, err := Reduce([]models.Observation{solid, liquid}, Options{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = Reduce([]models.Observation{solid, liquid}, Options{ByFraction: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "liquid", rows[0].Fraction)
	assert.Nil(t, rows[0].PreviousObs)
}

func TestReduceIsOrderIndependent(t *testing.T) {
	input := []models.Observation{
		obs("S1", "covN2", day(1), 10, "a"),
		obs("S1", "covN2", day(8), 12, "b"),
		obs("S1", "covN2", day(8), 11, "b2"),
		obs("S2", "covN2", day(8), 3, "c"),
		obs("S2", "fluA", day(2), 5, "d"),
		obs("S3", "rsv", day(4), 7, "e"),
	}
	want, err := Reduce(input, Options{})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Observation(nil), input...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, err := Reduce(shuffled, Options{})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestReduceLatestNotBeforePrevious(t *testing.T) {
	input := []models.Observation{
		obs("S1", "covN2", day(20), 1, "a"),
		obs("S1", "covN2", day(2), 2, "b"),
		obs("S1", "covN2", day(11), 3, "c"),
		obs("S2", "covN2", day(5), 3, "d"),
		obs("S2", "covN2", day(5), 4, "e"),
	}
	rows, err := Reduce(input, Options{})
	require.NoError(t, err)
	for _, row := range rows {
		if row.PreviousObsDT != nil {
			assert.False(t, row.LatestObsDT.Before(*row.PreviousObsDT))
		}
	}
}

func TestReduceMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		obs   models.Observation
		field string
	}{
		{name: "site", obs: models.Observation{Measure: "covN2", CollectedAt: day(1)}, field: "siteID"},
		{name: "measure", obs: models.Observation{SiteID: "S1", CollectedAt: day(1)}, field: "measure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reduce([]models.Observation{obs("S0", "covN2", day(1), 1, "a"), tt.obs}, Options{})
			var malformed *MalformedInputError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, 1, malformed.Index)
			assert.Equal(t, tt.field, malformed.Field)
		})
	}
}

func TestReduceUndatedObservationsSortLast(t *testing.T) {
	undated := obs("S1", "covN2", time.Time{}, 99, "x")
	input := []models.Observation{
		obs("S1", "covN2", day(1), 10, "a"),
		undated,
		obs("S1", "covN2", day(8), 12, "b"),
		obs("S2", "covN2", time.Time{}, 3, "y"),
	}

	rows, err := Reduce(input, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 12.0, *rows[0].LatestObs)
	assert.Equal(t, 10.0, *rows[0].PreviousObs)

	assert.Equal(t, "S2", rows[1].SiteID)
	assert.Equal(t, 3.0, *rows[1].LatestObs)
	assert.True(t, rows[1].LatestObsDT.IsZero())
	assert.Nil(t, rows[1].PreviousObs)
}

func TestReduceTieBreakCoversFraction(t *testing.T) {
	liquid := obs("S1", "covN2", day(8), 5, "a")
	liquid.Fraction = "liq"
	solid := liquid
	solid.Fraction = "sol"
	solid.HealthReg = "Other"

	forward, err := Reduce([]models.Observation{liquid, solid}, Options{})
	require.NoError(t, err)
	backward, err := Reduce([]models.Observation{solid, liquid}, Options{})
	require.NoError(t, err)

	assert.Equal(t, forward, backward)
	assert.Equal(t, "sol", forward[0].Fraction)
}

func TestHistory(t *testing.T) {
	input := []models.Observation{
		obs("S1", "covN2", day(15), 40, "c"),
		obs("S1", "covN2", day(1), 10, "a"),
		obs("S1", "rsv", day(3), 99, "z"),
		obs("S1", "covN2", day(8), 20, "b"),
	}

	series, err := History(input, "S1", "covN2")
	require.NoError(t, err)
	require.Len(t, series.Points, 3)
	assert.Equal(t, day(1), series.Points[0].CollectedAt)
	assert.Equal(t, day(15), series.Points[2].CollectedAt)
	require.NotNil(t, series.Pair)
	assert.Equal(t, 40.0, *series.Pair.LatestObs)
	assert.Equal(t, 20.0, *series.Change)
	assert.Equal(t, 1.0, *series.RelativeChange)

	empty, err := History(input, "S9", "covN2")
	require.NoError(t, err)
	assert.Empty(t, empty.Points)
	assert.Nil(t, empty.Pair)
}

func TestReduceTable(t *testing.T) {
	table := tabular.New(
		[]string{"name", "siteID", "measure", "collDT", "valavg", "sampleID"},
		[][]string{
			{"Ottawa", "OTW", "covN2", "2024-01-01", "5", "s1"},
			{"Ottawa", "OTW", "covN2", "2024-01-08", "7", "s2"},
			{"Ottawa", "OTW", "conf_covN2", "2024-01-08", "1", "s2"},
		},
	)

	rows, err := ReduceTable(table, Options{ExcludePrefix: ConfidenceMeasurePrefix})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 7.0, *rows[0].LatestObs)
	assert.Equal(t, 5.0, *rows[0].PreviousObs)

	table = tabular.New(
		[]string{"name", "siteID", "measure", "collDT", "valavg", "sampleID"},
		[][]string{
			{"Ottawa", "S1", "covN2", "2024-01-01", "5", "s1"},
			{"Ottawa", "S1", "covN2", "", "6", "s2"},
			{"Ottawa", "S1", "covN2", "2024-01-08", "7", "s3"},
		},
	)
	rows, err = ReduceTable(table, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 7.0, *rows[0].LatestObs)
	assert.Equal(t, 5.0, *rows[0].PreviousObs)

	_, err = ReduceTable(tabular.New([]string{"siteID"}, nil), Options{})
	var missing *tabular.MissingColumnError
	assert.ErrorAs(t, err, &missing)
}
