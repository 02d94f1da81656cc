package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

var timeLayouts = []string{
	TimeLayout,
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05-07:00",
}

// ParseTime accepts the timestamp forms found in the feeds.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseOptionalTime(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "<NA>") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// FormatFloat renders an optional value the way the feeds write it.
func FormatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// FormatTime renders an optional timestamp in TimeLayout.
func FormatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

// ObservationsFromTable converts the all-sites feed. sampleID, fraction,
// valavg and reportDT are optional columns.
func ObservationsFromTable(t *tabular.Table) ([]Observation, error) {
	if err := t.Require(ColSiteID, ColMeasure, ColCollDT); err != nil {
		return nil, err
	}
	out := make([]Observation, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		obs := Observation{
			Name:      t.Value(i, ColName),
			HealthReg: t.Value(i, ColHealthReg),
			SiteID:    t.Value(i, ColSiteID),
			DatasetID: t.Value(i, ColDatasetID),
			SampleID:  t.Value(i, ColSampleID),
			Measure:   t.Value(i, ColMeasure),
			Fraction:  t.Value(i, ColFraction),
		}
		var err error
		if raw := t.Value(i, ColCollDT); strings.TrimSpace(raw) != "" {
			if obs.CollectedAt, err = ParseTime(raw); err != nil {
				return nil, fmt.Errorf("row %d %s: %w", i, ColCollDT, err)
			}
		}
		if obs.ReportedAt, err = parseOptionalTime(t.Value(i, ColReportDT)); err != nil {
			return nil, fmt.Errorf("row %d %s: %w", i, ColReportDT, err)
		}
		if obs.Value, err = parseOptionalFloat(t.Value(i, ColValue)); err != nil {
			return nil, fmt.Errorf("row %d %s: %w", i, ColValue, err)
		}
		out = append(out, obs)
	}
	return out, nil
}

// TrendRowsFromTable converts the wastewater trends table.
func TrendRowsFromTable(t *tabular.Table) ([]Indexed[TrendRow], error) {
	if err := t.Require(ColLocation, ColMeasure, ColGrouping, ColCity, ColProvince, ColViralActivityLevel); err != nil {
		return nil, err
	}
	out := make([]Indexed[TrendRow], 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, Indexed[TrendRow]{Index: i, Row: TrendRow{
			Location:           t.Value(i, ColLocation),
			Measure:            t.Value(i, ColMeasure),
			LatestTrends:       t.Value(i, ColLatestTrends),
			LatestLevel:        t.Value(i, ColLatestLevel),
			Grouping:           t.Value(i, ColGrouping),
			City:               t.Value(i, ColCity),
			Province:           t.Value(i, ColProvince),
			ViralActivityLevel: t.Value(i, ColViralActivityLevel),
		}})
	}
	return out, nil
}

// MpoxRowsFromTable converts the mpox table.
func MpoxRowsFromTable(t *tabular.Table) ([]Indexed[MpoxRow], error) {
	if err := t.Require(ColLocation, ColEpiYear, ColEpiWeek, ColG2RLabel); err != nil {
		return nil, err
	}
	out := make([]Indexed[MpoxRow], 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, Indexed[MpoxRow]{Index: i, Row: MpoxRow{
			Location:  t.Value(i, ColLocation),
			EpiYear:   t.Value(i, ColEpiYear),
			EpiWeek:   t.Value(i, ColEpiWeek),
			WeekStart: t.Value(i, ColWeekStart),
			G2RLabel:  t.Value(i, ColG2RLabel),
		}})
	}
	return out, nil
}

// LargeJumpRowsFromTable converts the large-jumps table.
func LargeJumpRowsFromTable(t *tabular.Table) ([]Indexed[LargeJumpRow], error) {
	if err := t.Require(ColSiteID, ColDatasetID, ColMeasure, ColPreviousObsDT, ColLatestObsDT); err != nil {
		return nil, err
	}
	out := make([]Indexed[LargeJumpRow], 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := LargeJumpRow{
			SiteID:     t.Value(i, ColSiteID),
			DatasetID:  t.Value(i, ColDatasetID),
			Measure:    t.Value(i, ColMeasure),
			AlertType:  t.Value(i, ColAlertType),
			ActionItem: t.Value(i, ColActionItem),
		}
		var err error
		if row.PreviousObs, err = parseOptionalFloat(t.Value(i, ColPreviousObs)); err != nil {
			return nil, fmt.Errorf("row %d %s: %w", i, ColPreviousObs, err)
		}
		if row.LatestObs, err = parseOptionalFloat(t.Value(i, ColLatestObs)); err != nil {
			return nil, fmt.Errorf("row %d %s: %w", i, ColLatestObs, err)
		}
		if row.PreviousObsDT, err = parseOptionalTime(t.Value(i, ColPreviousObsDT)); err != nil {
			return nil, fmt.Errorf("row %d %s: %w", i, ColPreviousObsDT, err)
		}
		if row.LatestObsDT, err = parseOptionalTime(t.Value(i, ColLatestObsDT)); err != nil {
			return nil, fmt.Errorf("row %d %s: %w", i, ColLatestObsDT, err)
		}
		out = append(out, Indexed[LargeJumpRow]{Index: i, Row: row})
	}
	return out, nil
}

// LatestPairTable renders reduced rows for the snapshot file.
func LatestPairTable(rows []LatestPairRow) *tabular.Table {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		prevSample := ""
		if r.PreviousSampleID != nil {
			prevSample = *r.PreviousSampleID
		}
		latestDT := r.LatestObsDT
		records = append(records, []string{
			r.Name, r.HealthReg, r.SiteID, r.DatasetID, r.Measure, r.Fraction,
			FormatFloat(r.PreviousObs), FormatFloat(r.LatestObs),
			FormatTime(r.PreviousObsDT), FormatTime(&latestDT),
			prevSample, r.LatestSampleID,
		})
	}
	return tabular.New(LatestPairColumns, records)
}

// AuditRecord renders one entry as a log row keyed by column.
func AuditRecord(e AuditLogEntry) map[string]string {
	return map[string]string{
		"User":          e.User,
		"Time":          e.Time.Format(TimeLayout),
		"Page":          e.Page,
		"Location":      e.Location,
		"SiteID":        e.SiteID,
		"Measure":       e.Measure,
		"EpiWeek":       e.EpiWeek,
		"EpiYear":       e.EpiYear,
		"ChangedColumn": e.ChangedColumn,
		"OldValue":      e.OldValue,
		"NewValue":      e.NewValue,
	}
}

// AuditValues returns the entry fields in AuditLogColumns order.
func AuditValues(e AuditLogEntry) []string {
	rec := AuditRecord(e)
	out := make([]string, len(AuditLogColumns))
	for i, col := range AuditLogColumns {
		out[i] = rec[col]
	}
	return out
}

// AuditEntryFromRecord parses one log row.
func AuditEntryFromRecord(rec map[string]string) (AuditLogEntry, error) {
	e := AuditLogEntry{
		User:          rec["User"],
		Page:          rec["Page"],
		Location:      rec["Location"],
		SiteID:        rec["SiteID"],
		Measure:       rec["Measure"],
		EpiWeek:       rec["EpiWeek"],
		EpiYear:       rec["EpiYear"],
		ChangedColumn: rec["ChangedColumn"],
		OldValue:      rec["OldValue"],
		NewValue:      rec["NewValue"],
	}
	if raw := rec["Time"]; raw != "" {
		ts, err := ParseTime(raw)
		if err != nil {
			return AuditLogEntry{}, fmt.Errorf("Time: %w", err)
		}
		e.Time = ts
	}
	return e, nil
}

// AuditEntriesFromTable parses a log table.
func AuditEntriesFromTable(t *tabular.Table) ([]AuditLogEntry, error) {
	if err := t.Require(AuditLogColumns...); err != nil {
		return nil, err
	}
	out := make([]AuditLogEntry, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		e, err := AuditEntryFromRecord(t.Row(i))
		if err != nil {
			return nil, fmt.Errorf("log row %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// SameEntry reports whether two entries match on the full tuple, with Time
// compared at second precision.
func SameEntry(a, b AuditLogEntry) bool {
	return a.User == b.User &&
		a.Time.Format(TimeLayout) == b.Time.Format(TimeLayout) &&
		a.Page == b.Page &&
		a.Location == b.Location &&
		a.SiteID == b.SiteID &&
		a.Measure == b.Measure &&
		a.EpiWeek == b.EpiWeek &&
		a.EpiYear == b.EpiYear &&
		a.ChangedColumn == b.ChangedColumn &&
		a.OldValue == b.OldValue &&
		a.NewValue == b.NewValue
}
