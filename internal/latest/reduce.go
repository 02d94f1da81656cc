package latest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wastewater-dashboards/surveillance-review/internal/models"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

// ConfidenceMeasurePrefix marks confidence-interval measures that are not
// observations in their own right.
const ConfidenceMeasurePrefix = "conf"

// Options tunes Reduce.
type Options struct {
	// ExcludePrefix drops observations whose measure starts with it.
	ExcludePrefix string
	// ByFraction keys groups by fraction as well as site and measure.
	ByFraction bool
}

// MalformedInputError reports an observation lacking its site or measure.
type MalformedInputError struct {
	Index int
	Field string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("observation %d: missing %s", e.Index, e.Field)
}

type groupKey struct {
	siteID   string
	measure  string
	fraction string
}

func (k groupKey) less(o groupKey) bool {
	if k.siteID != o.siteID {
		return k.siteID < o.siteID
	}
	if k.measure != o.measure {
		return k.measure < o.measure
	}
	return k.fraction < o.fraction
}

// Reduce collapses observations to one row per group holding the latest and
// previous observation. Rows are ordered by site, measure and fraction.
func Reduce(obs []models.Observation, opts Options) ([]models.LatestPairRow, error) {
	groups := make(map[groupKey][]models.Observation)
	for i, o := range obs {
		if err := validate(i, o); err != nil {
			return nil, err
		}
		if opts.ExcludePrefix != "" && strings.HasPrefix(o.Measure, opts.ExcludePrefix) {
			continue
		}
		key := groupKey{siteID: o.SiteID, measure: o.Measure}
		if opts.ByFraction {
			key.fraction = o.Fraction
		}
		groups[key] = append(groups[key], o)
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	out := make([]models.LatestPairRow, 0, len(keys))
	for _, k := range keys {
		group := groups[k]
		newestFirst(group)
		out = append(out, pair(group))
	}
	return out, nil
}

// ReduceTable converts an all-sites table and reduces it.
func ReduceTable(t *tabular.Table, opts Options) ([]models.LatestPairRow, error) {
	obs, err := models.ObservationsFromTable(t)
	if err != nil {
		return nil, err
	}
	return Reduce(obs, opts)
}

func validate(i int, o models.Observation) error {
	switch {
	case o.SiteID == "":
		return &MalformedInputError{Index: i, Field: models.ColSiteID}
	case o.Measure == "":
		return &MalformedInputError{Index: i, Field: models.ColMeasure}
	}
	return nil
}

// newestFirst orders a group by collection time, descending, with undated
// observations last. Equal collection times fall back to report time, then
// the remaining fields, so the order never depends on input order.
func newestFirst(group []models.Observation) {
	sort.SliceStable(group, func(i, j int) bool { return newer(group[i], group[j]) })
}

func newer(a, b models.Observation) bool {
	if !a.CollectedAt.Equal(b.CollectedAt) {
		return a.CollectedAt.After(b.CollectedAt)
	}
	switch {
	case a.ReportedAt != nil && b.ReportedAt == nil:
		return true
	case a.ReportedAt == nil && b.ReportedAt != nil:
		return false
	case a.ReportedAt != nil && !a.ReportedAt.Equal(*b.ReportedAt):
		return a.ReportedAt.After(*b.ReportedAt)
	}
	if a.SampleID != b.SampleID {
		return a.SampleID > b.SampleID
	}
	av, bv := valueOrMin(a.Value), valueOrMin(b.Value)
	if av != bv {
		return av > bv
	}
	if a.DatasetID != b.DatasetID {
		return a.DatasetID > b.DatasetID
	}
	if a.Name != b.Name {
		return a.Name > b.Name
	}
	if a.Fraction != b.Fraction {
		return a.Fraction > b.Fraction
	}
	return a.HealthReg > b.HealthReg
}

func valueOrMin(v *float64) float64 {
	if v == nil {
		return math.Inf(-1)
	}
	return *v
}

func pair(group []models.Observation) models.LatestPairRow {
	latest := group[0]
	row := models.LatestPairRow{
		Name:           latest.Name,
		HealthReg:      latest.HealthReg,
		SiteID:         latest.SiteID,
		DatasetID:      latest.DatasetID,
		Measure:        latest.Measure,
		Fraction:       latest.Fraction,
		LatestObs:      latest.Value,
		LatestObsDT:    latest.CollectedAt,
		LatestReportDT: latest.ReportedAt,
		LatestSampleID: latest.SampleID,
	}
	if len(group) > 1 {
		prev := group[1]
		prevDT := prev.CollectedAt
		prevSample := prev.SampleID
		row.PreviousObs = prev.Value
		row.PreviousObsDT = &prevDT
		row.PreviousReportDT = prev.ReportedAt
		row.PreviousSampleID = &prevSample
	}
	return row
}
