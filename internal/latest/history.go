package latest

import (
	"time"

	"github.com/wastewater-dashboards/surveillance-review/internal/models"
)

// Point is one observation on a history chart.
type Point struct {
	CollectedAt time.Time `json:"collDT"`
	Value       *float64  `json:"valavg"`
	SampleID    string    `json:"sampleID,omitempty"`
}

// Series is the history of one site/measure with its latest pair and the
// jump between them.
type Series struct {
	SiteID         string                `json:"siteID"`
	Measure        string                `json:"measure"`
	Points         []Point               `json:"points"`
	Pair           *models.LatestPairRow `json:"pair,omitempty"`
	Change         *float64              `json:"change,omitempty"`
	RelativeChange *float64              `json:"relativeChange,omitempty"`
}

// History assembles the observations of one site and measure, oldest first.
func History(obs []models.Observation, siteID, measure string) (Series, error) {
	series := Series{SiteID: siteID, Measure: measure, Points: []Point{}}

	var group []models.Observation
	for i, o := range obs {
		if err := validate(i, o); err != nil {
			return Series{}, err
		}
		if o.SiteID == siteID && o.Measure == measure {
			group = append(group, o)
		}
	}
	if len(group) == 0 {
		return series, nil
	}

	newestFirst(group)
	for i := len(group) - 1; i >= 0; i-- {
		series.Points = append(series.Points, Point{
			CollectedAt: group[i].CollectedAt,
			Value:       group[i].Value,
			SampleID:    group[i].SampleID,
		})
	}

	p := pair(group)
	series.Pair = &p
	if p.LatestObs != nil && p.PreviousObs != nil {
		change := *p.LatestObs - *p.PreviousObs
		series.Change = &change
		if *p.PreviousObs != 0 {
			rel := change / *p.PreviousObs
			series.RelativeChange = &rel
		}
	}
	return series, nil
}
