package dscr

import (
	"math"
	"strings"
)

// FloorRateBps is the base rate for any ratio below the lowest tier.
const FloorRateBps int64 = 1500

// Adjusted rates never leave this band regardless of score.
const (
	MinAdjustedRateBps int64 = 600
	MaxAdjustedRateBps int64 = 2000
)

type rateTier struct {
	minRatio float64
	bps      int64
}

// Lower bounds are inclusive, evaluated top-down; first match wins.
var baseRateTiers = []rateTier{
	{minRatio: 2.0, bps: 900},
	{minRatio: 1.5, bps: 1050},
	{minRatio: 1.25, bps: 1200},
	{minRatio: 1.0, bps: 1350},
}

// BaseRate returns the annual base rate in basis points for a DSCR.
func BaseRate(ratio float64) int64 {
	if math.IsNaN(ratio) {
		return FloorRateBps
	}
	for _, tier := range baseRateTiers {
		if ratio >= tier.minRatio {
			return tier.bps
		}
	}
	return FloorRateBps
}

// Score is the supplemental 1-99 creditworthiness score with its reason codes.
type Score struct {
	Value       int      `json:"value"`
	ReasonCodes []string `json:"reason_codes"`
}

type scoreBand struct {
	minScore int
	deltaBps int64
}

var scoreBands = []scoreBand{
	{minScore: 80, deltaBps: -150},
	{minScore: 60, deltaBps: -75},
	{minScore: 40, deltaBps: 0},
	{minScore: 20, deltaBps: 100},
}

const lowScoreDeltaBps int64 = 200

var reasonDescriptions = map[string]string{
	"LS01": "Consistent recurring income deposits",
	"LS02": "Low ratio of overdraft or NSF events",
	"LS03": "Healthy average account balance",
	"LS04": "Long account history",
	"LS05": "Irregular or declining income",
	"LS06": "Frequent overdraft or NSF events",
	"LS07": "High existing debt payments relative to income",
	"LS08": "Limited transaction history",
	"LS09": "Large unexplained cash withdrawals",
	"LS10": "Recent increase in credit utilization",
}

// AdjustRate applies the supplemental score to a base rate.
// Without a usable score the base rate is returned unchanged with nil reasons.
// The adjustment never raises the rate as the score increases.
func AdjustRate(base int64, score *Score) (int64, []string) {
	if score == nil || score.Value < 1 || score.Value > 99 {
		return base, nil
	}

	delta := lowScoreDeltaBps
	for _, band := range scoreBands {
		if score.Value >= band.minScore {
			delta = band.deltaBps
			break
		}
	}

	adjusted := base + delta
	if adjusted < MinAdjustedRateBps {
		adjusted = MinAdjustedRateBps
	}
	if adjusted > MaxAdjustedRateBps {
		adjusted = MaxAdjustedRateBps
	}
	return adjusted, DescribeReasons(score.ReasonCodes)
}

// DescribeReasons maps reason codes to readable text; unknown codes are kept verbatim.
func DescribeReasons(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if desc, ok := reasonDescriptions[strings.ToUpper(code)]; ok {
			out = append(out, desc)
			continue
		}
		out = append(out, code)
	}
	return out
}
