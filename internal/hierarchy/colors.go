package hierarchy

// LegendEntry pairs an activity level with its chart colour.
type LegendEntry struct {
	Level string `json:"level"`
	Color string `json:"color"`
}

// ActivityLevels lists the viral activity levels in legend order.
var ActivityLevels = []string{"High", "Moderate", "Low", "Non-detect", "NA1", "NA2"}

var levelColors = map[string]string{
	"High":       "#FF6B6B",
	"Moderate":   "#FFD700",
	"Low":        "#90EE90",
	"Non-detect": "#ADD8E6",
	"NA1":        "#D3D3D3",
	"NA2":        "#A8A8A8",
}

// Color returns the chart colour for a level, or "" for an unknown level.
func Color(level string) string {
	return levelColors[level]
}

// Legend returns the level/colour pairs in display order.
func Legend() []LegendEntry {
	out := make([]LegendEntry, 0, len(ActivityLevels))
	for _, level := range ActivityLevels {
		out = append(out, LegendEntry{Level: level, Color: levelColors[level]})
	}
	return out
}

// Measures lists the measures the sunburst can be drawn for.
var Measures = []string{"covN2", "rsv", "fluA", "fluB"}

// DefaultMeasure is shown when none is selected.
const DefaultMeasure = "covN2"
