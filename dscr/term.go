package dscr

import "strings"

// DefaultTermMonths applies when the borrower's funding urgency is missing or unknown.
const DefaultTermMonths = 24

var termByUrgency = map[string]int{
	"immediate":       12,
	"urgent":          12,
	"asap":            12,
	"within_1_month":  12,
	"within_3_months": 24,
	"soon":            24,
	"moderate":        24,
	"within_6_months": 36,
	"flexible":        36,
	"no_rush":         36,
}

// TermMonthsForUrgency maps the declared funding urgency to a 12/24/36 month term.
func TermMonthsForUrgency(urgency string) int {
	key := strings.ToLower(strings.TrimSpace(urgency))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if months, ok := termByUrgency[key]; ok {
		return months
	}
	return DefaultTermMonths
}
