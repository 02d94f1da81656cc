package hierarchy

import (
	"github.com/wastewater-dashboards/surveillance-review/internal/models"
)

// Grouping tags used by the trends table.
const (
	GroupingSite     = "Site"
	GroupingCity     = "City"
	GroupingProvince = "Province"
	GroupingCountry  = "Country"
	GroupingCanada   = "Canada"
)

// Node is one sunburst wedge. Parent is "" only for the root.
type Node struct {
	Label  string `json:"label"`
	Parent string `json:"parent"`
	Value  string `json:"value"`
	Color  string `json:"color"`
}

// Aggregate turns the trend rows of one measure into sunburst nodes. Sites
// whose city has no City row of its own hang directly off their province.
// Rows with an unrecognized grouping are skipped.
func Aggregate(rows []models.TrendRow, measure string) ([]Node, error) {
	selected := make([]models.TrendRow, 0, len(rows))
	for _, r := range rows {
		if r.Measure == measure {
			selected = append(selected, r)
		}
	}

	// City rows present per province abbreviation.
	cities := make(map[string]map[string]bool)
	for _, r := range selected {
		if r.Grouping != GroupingCity {
			continue
		}
		abbr, err := Abbreviate(r.Province)
		if err != nil {
			return nil, err
		}
		if cities[abbr] == nil {
			cities[abbr] = make(map[string]bool)
		}
		cities[abbr][r.Location] = true
	}

	nodes := make([]Node, 0, len(selected))
	for _, r := range selected {
		var node Node
		switch r.Grouping {
		case GroupingSite:
			abbr, err := Abbreviate(r.Province)
			if err != nil {
				return nil, err
			}
			node = Node{Label: r.Location, Parent: abbr}
			if cities[abbr][r.City] {
				node.Parent = r.City
			}
		case GroupingCity:
			abbr, err := Abbreviate(r.Province)
			if err != nil {
				return nil, err
			}
			label := r.City
			if label == "" {
				label = r.Location
			}
			node = Node{Label: label, Parent: abbr}
		case GroupingProvince:
			abbr, err := Abbreviate(r.Province)
			if err != nil {
				return nil, err
			}
			node = Node{Label: abbr, Parent: RootLabel}
		case GroupingCountry, GroupingCanada:
			node = Node{Label: RootLabel, Parent: ""}
		default:
			continue
		}
		node.Value = r.ViralActivityLevel
		node.Color = Color(r.ViralActivityLevel)
		nodes = append(nodes, node)
	}
	return nodes, nil
}
