package normalize

import "strings"

// stateNames covers the USPS codes for the states and inhabited territories.
var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho",
	"IL": "Illinois", "IN": "Indiana", "IA": "Iowa", "KS": "Kansas",
	"KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
	"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma",
	"OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VT": "Vermont", "VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
	"WI": "Wisconsin", "WY": "Wyoming",
	"AS": "American Samoa", "GU": "Guam", "MP": "Northern Mariana Islands",
	"PR": "Puerto Rico", "VI": "Virgin Islands",
}

// specialNames holds codes that are not states but appear in the directory.
var specialNames = map[string]string{
	"DC": "District of Columbia",
}

// StateName expands a two-letter code to the state's English name. A full state name is
// accepted too and returned in canonical form.
func StateName(code string) (string, bool) {
	code = strings.TrimSpace(code)
	upper := strings.ToUpper(code)
	if name, ok := stateNames[upper]; ok {
		return name, true
	}
	for _, name := range stateNames {
		if strings.EqualFold(name, code) {
			return name, true
		}
	}
	if name, ok := specialNames[upper]; ok {
		return name, true
	}
	for _, name := range specialNames {
		if strings.EqualFold(name, code) {
			return name, true
		}
	}
	return "", false
}

// StateKey returns the comparison key for a state code. When the code cannot be expanded the
// key of the code itself is used, which will not match listings that spell the state out.
func StateKey(code string) string {
	if name, ok := StateName(code); ok {
		return Key(name)
	}
	return Key(code)
}
