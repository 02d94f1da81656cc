// Package audit records reviewer edits as one log entry per changed column.
package audit

import (
	"time"

	"github.com/wastewater-dashboards/surveillance-review/internal/datasets"
	"github.com/wastewater-dashboards/surveillance-review/internal/models"
)

// Change is one column whose value differs between two versions of a row.
type Change struct {
	Column string `json:"column"`
	Old    string `json:"old"`
	New    string `json:"new"`
}

// Diff compares two versions of a row over the given columns, in order.
// Columns absent from edited are treated as unchanged.
func Diff(old, edited map[string]string, columns []string) []Change {
	var changes []Change
	for _, col := range columns {
		nv, ok := edited[col]
		if !ok {
			continue
		}
		if ov := old[col]; ov != nv {
			changes = append(changes, Change{Column: col, Old: ov, New: nv})
		}
	}
	return changes
}

// Meta carries who edited what and when.
type Meta struct {
	User string
	Page string
	Time time.Time
}

// NewEntries expands changes of one row into log entries. Key fields come
// from the row's pre-edit values.
func NewEntries(meta Meta, row map[string]string, key datasets.AuditKey, changes []Change) []models.AuditLogEntry {
	ts := meta.Time.Truncate(time.Second)
	entries := make([]models.AuditLogEntry, 0, len(changes))
	for _, ch := range changes {
		entries = append(entries, models.AuditLogEntry{
			User:          meta.User,
			Time:          ts,
			Page:          meta.Page,
			Location:      lookup(row, key.Location),
			SiteID:        lookup(row, key.SiteID),
			Measure:       lookup(row, key.Measure),
			EpiWeek:       lookup(row, key.EpiWeek),
			EpiYear:       lookup(row, key.EpiYear),
			ChangedColumn: ch.Column,
			OldValue:      ch.Old,
			NewValue:      ch.New,
		})
	}
	return entries
}

func lookup(row map[string]string, column string) string {
	if column == "" {
		return ""
	}
	return row[column]
}
