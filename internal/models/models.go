package models

import "time"

// TimeLayout is the textual timestamp form written to audit logs and the
// latest-observation snapshot.
const TimeLayout = "2006-01-02 15:04:05"

// Observation is one row of the all-sites measurement feed.
type Observation struct {
	Name        string     `json:"name"`
	HealthReg   string     `json:"healthReg"`
	SiteID      string     `json:"siteID"`
	DatasetID   string     `json:"datasetID"`
	SampleID    string     `json:"sampleID"`
	Measure     string     `json:"measure"`
	Fraction    string     `json:"fraction"`
	Value       *float64   `json:"valavg,omitempty"`
	CollectedAt time.Time  `json:"collDT"`
	ReportedAt  *time.Time `json:"reportDT,omitempty"`
}

// LatestPairRow summarises one site/measure group by its two most recent
// observations. Previous* fields are nil when the group holds one observation.
type LatestPairRow struct {
	Name             string     `json:"name"`
	HealthReg        string     `json:"healthReg"`
	SiteID           string     `json:"siteID"`
	DatasetID        string     `json:"datasetID"`
	Measure          string     `json:"measure"`
	Fraction         string     `json:"fraction"`
	PreviousObs      *float64   `json:"previousObs"`
	LatestObs        *float64   `json:"latestObs"`
	PreviousObsDT    *time.Time `json:"previousObsDT"`
	LatestObsDT      time.Time  `json:"latestObsDT"`
	PreviousReportDT *time.Time `json:"previousReportDT,omitempty"`
	LatestReportDT   *time.Time `json:"latestReportDT,omitempty"`
	PreviousSampleID *string    `json:"sampleID_previous"`
	LatestSampleID   string     `json:"sampleID_latest"`
}

// TrendRow is one row of the wastewater trends table. Grouping places the
// row in the Canada > Province > City > Site hierarchy.
type TrendRow struct {
	Location           string `json:"Location"`
	Measure            string `json:"measure"`
	LatestTrends       string `json:"latestTrends"`
	LatestLevel        string `json:"LatestLevel"`
	Grouping           string `json:"Grouping"`
	City               string `json:"City"`
	Province           string `json:"Province"`
	ViralActivityLevel string `json:"Viral_Activity_Level"`
}

// MpoxRow is one weekly mpox classification.
type MpoxRow struct {
	Location  string `json:"Location"`
	EpiYear   string `json:"EpiYear"`
	EpiWeek   string `json:"EpiWeek"`
	WeekStart string `json:"Week_start"`
	G2RLabel  string `json:"g2r_label"`
}

// LargeJumpRow is one flagged jump between consecutive observations.
type LargeJumpRow struct {
	SiteID        string     `json:"siteID"`
	DatasetID     string     `json:"datasetID"`
	Measure       string     `json:"measure"`
	PreviousObs   *float64   `json:"previousObs"`
	LatestObs     *float64   `json:"latestObs"`
	PreviousObsDT *time.Time `json:"previousObsDT"`
	LatestObsDT   *time.Time `json:"latestObsDT"`
	AlertType     string     `json:"alertType"`
	ActionItem    string     `json:"actionItem"`
}

// AuditLogEntry records one changed column of one edited row. The full
// tuple identifies the entry for deletion.
type AuditLogEntry struct {
	User          string    `json:"User"`
	Time          time.Time `json:"Time"`
	Page          string    `json:"Page"`
	Location      string    `json:"Location"`
	SiteID        string    `json:"SiteID"`
	Measure       string    `json:"Measure"`
	EpiWeek       string    `json:"EpiWeek"`
	EpiYear       string    `json:"EpiYear"`
	ChangedColumn string    `json:"ChangedColumn"`
	OldValue      string    `json:"OldValue"`
	NewValue      string    `json:"NewValue"`
}

// Indexed pairs a row with its position in the source table so selections
// survive filtering.
type Indexed[T any] struct {
	Index int `json:"index"`
	Row   T   `json:"row"`
}
