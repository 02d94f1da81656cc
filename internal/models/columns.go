package models

// Column names shared by the feeds and warehouse tables.
const (
	ColName      = "name"
	ColHealthReg = "healthReg"
	ColSiteID    = "siteID"
	ColDatasetID = "datasetID"
	ColSampleID  = "sampleID"
	ColMeasure   = "measure"
	ColFraction  = "fraction"
	ColValue     = "valavg"
	ColCollDT    = "collDT"
	ColReportDT  = "reportDT"

	ColLocation           = "Location"
	ColLatestTrends       = "latestTrends"
	ColLatestLevel        = "LatestLevel"
	ColGrouping           = "Grouping"
	ColCity               = "City"
	ColProvince           = "Province"
	ColViralActivityLevel = "Viral_Activity_Level"

	ColEpiYear   = "EpiYear"
	ColEpiWeek   = "EpiWeek"
	ColWeekStart = "Week_start"
	ColG2RLabel  = "g2r_label"

	ColPreviousObs   = "previousObs"
	ColLatestObs     = "latestObs"
	ColPreviousObsDT = "previousObsDT"
	ColLatestObsDT   = "latestObsDT"
	ColAlertType     = "alertType"
	ColActionItem    = "actionItem"
)

// Output columns of the latest-pair table, in order.
var LatestPairColumns = []string{
	ColName, ColHealthReg, ColSiteID, ColDatasetID, ColMeasure, ColFraction,
	ColPreviousObs, ColLatestObs, ColPreviousObsDT, ColLatestObsDT,
	"sampleID_previous", "sampleID_latest",
}

// AuditLogColumns is the log schema, in order.
var AuditLogColumns = []string{
	"User", "Time", "Page", "Location", "SiteID", "Measure",
	"EpiWeek", "EpiYear", "ChangedColumn", "OldValue", "NewValue",
}
