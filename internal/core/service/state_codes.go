package service

import "strings"

var stateNames = map[string]string{
	"AN": "Andaman and Nicobar Islands",
	"AP": "Andhra Pradesh",
	"AR": "Arunachal Pradesh",
	"AS": "Assam",
	"BR": "Bihar",
	"CH": "Chandigarh",
	"CG": "Chhattisgarh",
	"CT": "Chhattisgarh",
	"DN": "Dadra and Nagar Haveli and Daman and Diu",
	"DD": "Dadra and Nagar Haveli and Daman and Diu",
	"DH": "Dadra and Nagar Haveli and Daman and Diu",
	"DL": "Delhi",
	"GA": "Goa",
	"GJ": "Gujarat",
	"HR": "Haryana",
	"HP": "Himachal Pradesh",
	"JK": "Jammu and Kashmir",
	"JH": "Jharkhand",
	"KA": "Karnataka",
	"KL": "Kerala",
	"LA": "Ladakh",
	"LD": "Lakshadweep",
	"MP": "Madhya Pradesh",
	"MH": "Maharashtra",
	"MN": "Manipur",
	"ML": "Meghalaya",
	"MZ": "Mizoram",
	"NL": "Nagaland",
	"OD": "Odisha",
	"OR": "Odisha",
	"PY": "Puducherry",
	"PB": "Punjab",
	"RJ": "Rajasthan",
	"SK": "Sikkim",
	"TN": "Tamil Nadu",
	"TS": "Telangana",
	"TG": "Telangana",
	"TR": "Tripura",
	"UP": "Uttar Pradesh",
	"UK": "Uttarakhand",
	"UT": "Uttarakhand",
	"WB": "West Bengal",
}

// NormalizeState expands a two-letter state code to its full name. Anything
// else, including unknown codes, is returned unchanged.
func NormalizeState(state string) string {
	code := strings.TrimSpace(state)
	if len(code) != 2 {
		return state
	}
	if name, ok := stateNames[strings.ToUpper(code)]; ok {
		return name
	}
	return state
}
