package domain

import (
	"sort"
	"strings"
)

// postcodeAreas maps UK postcode area letters to a marketing region.
var postcodeAreas = map[string]string{
	"BA": "South West", "BS": "South West", "GL": "South West", "SN": "South West",
	"SP": "South West", "TA": "South West", "DT": "South West", "EX": "South West",
	"PL": "South West", "TR": "South West",

	"BN": "South East", "BR": "South East", "CT": "South East", "DA": "South East",
	"GU": "South East", "HP": "South East", "ME": "South East", "MK": "South East",
	"OX": "South East", "PO": "South East", "RG": "South East", "RH": "South East",
	"SL": "South East", "SO": "South East", "TN": "South East",

	"E": "London", "EC": "London", "N": "London", "NW": "London",
	"SE": "London", "SW": "London", "W": "London", "WC": "London",

	"B": "West Midlands", "CV": "West Midlands", "DY": "West Midlands",
	"WS": "West Midlands", "WV": "West Midlands",
	"DE": "East Midlands", "LE": "East Midlands", "NG": "East Midlands", "NN": "East Midlands",

	"CB": "East of England", "CM": "East of England", "CO": "East of England",
	"IP": "East of England", "NR": "East of England", "PE": "East of England",
	"SG": "East of England",

	"BD": "Yorkshire and Humber", "DN": "Yorkshire and Humber", "HD": "Yorkshire and Humber",
	"HG": "Yorkshire and Humber", "HU": "Yorkshire and Humber", "HX": "Yorkshire and Humber",
	"LS": "Yorkshire and Humber", "S": "Yorkshire and Humber", "WF": "Yorkshire and Humber",
	"YO": "Yorkshire and Humber",

	"BB": "North West", "BL": "North West", "CA": "North West", "CH": "North West",
	"CW": "North West", "FY": "North West", "L": "North West", "LA": "North West",
	"M": "North West", "OL": "North West", "PR": "North West", "SK": "North West",
	"WA": "North West", "WN": "North West",

	"DH": "North East", "DL": "North East", "NE": "North East", "SR": "North East",
	"TS": "North East",

	"CF": "Wales", "LD": "Wales", "LL": "Wales", "NP": "Wales", "SA": "Wales", "SY": "Wales",

	"AB": "Scotland", "DD": "Scotland", "DG": "Scotland", "EH": "Scotland",
	"FK": "Scotland", "G": "Scotland", "HS": "Scotland", "IV": "Scotland",
	"KA": "Scotland", "KW": "Scotland", "KY": "Scotland", "ML": "Scotland",
	"PA": "Scotland", "PH": "Scotland", "TD": "Scotland", "ZE": "Scotland",
}

// NormalizePostcode uppercases a postcode and inserts the single space before
// the three-character inward code. Values too short to split are returned trimmed.
func NormalizePostcode(postcode string) string {
	compact := strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
	if len(compact) < 5 || len(compact) > 7 {
		return compact
	}
	return compact[:len(compact)-3] + " " + compact[len(compact)-3:]
}

// RegionForPostcode returns the region for a UK postcode's area letters, or ""
// when the area is not in the table.
func RegionForPostcode(postcode string) string {
	compact := strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
	area := make([]byte, 0, 2)
	for i := 0; i < len(compact) && len(area) < 2; i++ {
		c := compact[i]
		if c < 'A' || c > 'Z' {
			break
		}
		area = append(area, c)
	}
	if len(area) == 0 {
		return ""
	}
	return postcodeAreas[string(area)]
}

// Regions lists every known region, sorted.
func Regions() []string {
	seen := make(map[string]struct{})
	for _, r := range postcodeAreas {
		seen[r] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
