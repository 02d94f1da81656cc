// Package datasets describes the editable review tables and where they live.
package datasets

import (
	"fmt"
	"sort"

	"github.com/tkanos/gonfig"

	"github.com/wastewater-dashboards/surveillance-review/internal/models"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

// Dataset names.
const (
	WWTrends   = "ww-trends"
	Mpox       = "mpox"
	LargeJumps = "large-jumps"
	AllSites   = "all-sites"
)

// EditableColumn is a column reviewers may change. An empty Options list
// accepts free text.
type EditableColumn struct {
	Name    string   `json:"name"`
	Options []string `json:"options,omitempty"`
}

// Allows reports whether value is acceptable for the column.
func (c EditableColumn) Allows(value string) bool {
	if len(c.Options) == 0 {
		return true
	}
	for _, o := range c.Options {
		if o == value {
			return true
		}
	}
	return false
}

// AuditKey names the row columns copied into change-log entries.
type AuditKey struct {
	Location string `json:"location,omitempty"`
	SiteID   string `json:"site_id,omitempty"`
	Measure  string `json:"measure,omitempty"`
	EpiWeek  string `json:"epi_week,omitempty"`
	EpiYear  string `json:"epi_year,omitempty"`
}

// Dataset describes one table: its blob object, warehouse table, columns and
// the subset reviewers may edit.
type Dataset struct {
	Name       string           `json:"name"`
	Page       string           `json:"page"`
	BlobKey    string           `json:"blob_key"`
	Encodings  []string         `json:"encodings"`
	Table      string           `json:"table"`
	Columns    []string         `json:"columns"`
	KeyColumns []string         `json:"key_columns"`
	Editable   []EditableColumn `json:"editable"`
	AuditKey   AuditKey         `json:"audit_key"`
}

// ReadOnly reports whether the dataset has no editable columns.
func (d Dataset) ReadOnly() bool {
	return len(d.Editable) == 0
}

// EditableColumn looks up an editable column by name.
func (d Dataset) EditableColumn(name string) (EditableColumn, bool) {
	for _, c := range d.Editable {
		if c.Name == name {
			return c, true
		}
	}
	return EditableColumn{}, false
}

// EditableNames lists editable column names in declaration order.
func (d Dataset) EditableNames() []string {
	out := make([]string, len(d.Editable))
	for i, c := range d.Editable {
		out[i] = c.Name
	}
	return out
}

// EncodingList parses the configured encodings.
func (d Dataset) EncodingList() ([]tabular.Encoding, error) {
	if len(d.Encodings) == 0 {
		return tabular.DefaultEncodings, nil
	}
	return tabular.ParseEncodings(d.Encodings)
}

// Key extracts the natural key of a row.
func (d Dataset) Key(row map[string]string) map[string]string {
	key := make(map[string]string, len(d.KeyColumns))
	for _, col := range d.KeyColumns {
		key[col] = row[col]
	}
	return key
}

func (d Dataset) validate() error {
	if d.Name == "" {
		return fmt.Errorf("dataset without name")
	}
	if !d.ReadOnly() && len(d.KeyColumns) == 0 {
		return fmt.Errorf("dataset %s: editable datasets need key columns", d.Name)
	}
	if _, err := d.EncodingList(); err != nil {
		return fmt.Errorf("dataset %s: %w", d.Name, err)
	}
	return nil
}

// Defaults mirrors the production review pages.
func Defaults() []Dataset {
	return []Dataset{
		{
			Name:      WWTrends,
			Page:      "Wastewater Trends",
			BlobKey:   "hani/wastewater-trend-out.csv",
			Encodings: []string{"utf-8", "latin1", "utf-16be"},
			Table:     "ww_trends",
			Columns: []string{
				models.ColLocation, models.ColMeasure, models.ColLatestTrends, models.ColLatestLevel,
				models.ColGrouping, models.ColCity, models.ColProvince, models.ColViralActivityLevel,
			},
			KeyColumns: []string{models.ColLocation, models.ColMeasure, models.ColCity, models.ColProvince},
			Editable: []EditableColumn{{
				Name:    models.ColViralActivityLevel,
				Options: []string{"High", "Moderate", "Low", "Non-detect", "NA1", "NA2"},
			}},
			AuditKey: AuditKey{Location: models.ColLocation, Measure: models.ColMeasure},
		},
		{
			Name:       Mpox,
			Page:       "Mpox",
			BlobKey:    "wastewater/wastewater-mpox.csv",
			Encodings:  []string{"utf-16be", "utf-8", "latin1"},
			Table:      "mpox",
			Columns:    []string{models.ColLocation, models.ColEpiYear, models.ColEpiWeek, models.ColWeekStart, models.ColG2RLabel},
			KeyColumns: []string{models.ColLocation, models.ColEpiYear, models.ColEpiWeek, models.ColWeekStart},
			Editable: []EditableColumn{{
				Name:    models.ColG2RLabel,
				Options: []string{"Consistent Detection", "No Detection"},
			}},
			AuditKey: AuditKey{Location: models.ColLocation, EpiWeek: models.ColEpiWeek, EpiYear: models.ColEpiYear},
		},
		{
			Name:      LargeJumps,
			Page:      "Large Jumps",
			BlobKey:   "hani/historical_unusual_measures.csv",
			Encodings: []string{"utf-8", "utf-16be", "latin1"},
			Table:     "large_jumps",
			Columns: []string{
				models.ColSiteID, models.ColDatasetID, models.ColMeasure, models.ColPreviousObs, models.ColLatestObs,
				models.ColPreviousObsDT, models.ColLatestObsDT, models.ColAlertType, models.ColActionItem,
			},
			KeyColumns: []string{models.ColSiteID, models.ColDatasetID, models.ColMeasure, models.ColPreviousObsDT, models.ColLatestObsDT},
			Editable:   []EditableColumn{{Name: models.ColActionItem}},
			AuditKey:   AuditKey{SiteID: models.ColSiteID, Measure: models.ColMeasure},
		},
		{
			Name:      AllSites,
			Page:      "Latest Measures",
			BlobKey:   "hani/allSites_Updated.csv",
			Encodings: []string{"utf-8", "latin1"},
			Columns: []string{
				models.ColName, models.ColHealthReg, models.ColSiteID, models.ColDatasetID, models.ColSampleID,
				models.ColCollDT, models.ColMeasure, models.ColValue, models.ColFraction,
			},
		},
	}
}

// Registry holds the dataset definitions by name.
type Registry struct {
	byName map[string]Dataset
}

// NewRegistry validates and indexes definitions.
func NewRegistry(defs []Dataset) (*Registry, error) {
	r := &Registry{byName: make(map[string]Dataset, len(defs))}
	for _, d := range defs {
		if err := d.validate(); err != nil {
			return nil, err
		}
		r.byName[d.Name] = d
	}
	return r, nil
}

type fileConfig struct {
	Datasets []Dataset `json:"datasets"`
}

// LoadRegistry starts from Defaults and overlays the definitions found in a
// JSON file, replacing datasets with the same name. An empty path keeps the
// defaults.
func LoadRegistry(path string) (*Registry, error) {
	defs := Defaults()
	if path != "" {
		var file fileConfig
		if err := gonfig.GetConf(path, &file); err != nil {
			return nil, fmt.Errorf("load datasets file %s: %w", path, err)
		}
		for _, override := range file.Datasets {
			replaced := false
			for i := range defs {
				if defs[i].Name == override.Name {
					defs[i] = override
					replaced = true
				}
			}
			if !replaced {
				defs = append(defs, override)
			}
		}
	}
	return NewRegistry(defs)
}

// Get returns the named dataset.
func (r *Registry) Get(name string) (Dataset, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// SetTable points a dataset at another warehouse table.
func (r *Registry) SetTable(name, table string) {
	if d, ok := r.byName[name]; ok && table != "" {
		d.Table = table
		r.byName[name] = d
	}
}

// Names lists dataset names alphabetically.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
