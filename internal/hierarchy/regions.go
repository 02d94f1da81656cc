package hierarchy

import "fmt"

// RootLabel labels the single country node.
const RootLabel = "Canada"

var provinceAbbreviations = map[string]string{
	"Alberta":                   "AB",
	"British Columbia":          "BC",
	"Manitoba":                  "MB",
	"New Brunswick":             "NB",
	"Newfoundland and Labrador": "NL",
	"Nova Scotia":               "NS",
	"Ontario":                   "ON",
	"Prince Edward Island":      "PE",
	"Quebec":                    "QC",
	"Saskatchewan":              "SK",
	"Northwest Territories":     "NT",
	"Nunavut":                   "NU",
	"Yukon":                     "YT",
}

// UnknownRegionError reports a province name outside the abbreviation table.
type UnknownRegionError struct {
	Province string
}

func (e *UnknownRegionError) Error() string {
	return fmt.Sprintf("unknown province %q", e.Province)
}

// Abbreviate maps a full province or territory name to its two-letter code.
func Abbreviate(province string) (string, error) {
	abbr, ok := provinceAbbreviations[province]
	if !ok {
		return "", &UnknownRegionError{Province: province}
	}
	return abbr, nil
}
