package dscr

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, d-1)
}

func txn(amount string, d int) Txn {
	return Txn{Amount: decimal.RequireFromString(amount), Date: day(d)}
}

func TestCompute_LocalScenario(t *testing.T) {
	// five transactions inside one month: 3500 in, 1500 out => NOI 2000/month
	txs := []Txn{
		txn("-1500", 1),
		txn("-1500", 10),
		txn("-500", 15),
		txn("1000", 20),
		txn("500", 25),
	}

	c := Compute(txs, decimal.NewFromInt(10000), 24, decimal.NewFromInt(10))

	assert.Equal(t, 1, c.MonthSpan)
	assert.Equal(t, 5, c.TransactionCount)
	assert.Equal(t, "3500", c.MonthlyIncome.String())
	assert.Equal(t, "1500", c.MonthlyExpense.String())
	assert.Equal(t, "2000", c.MonthlyNoi.String())
	assert.Equal(t, "461.45", c.MonthlyDebtService.String())
	assert.InDelta(t, 4.334, c.Ratio, 0.001)
	assert.Equal(t, int64(4334), c.Scaled())
	assert.Equal(t, int64(900), BaseRate(c.Ratio))
}

func TestCompute_SpreadsOverMonthSpan(t *testing.T) {
	txs := []Txn{
		{Amount: decimal.NewFromInt(-6000), Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Amount: decimal.NewFromInt(3000), Date: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)},
	}
	// 50 days => ceil(50/30) = 2 months
	c := Compute(txs, decimal.NewFromInt(12000), 12, decimal.Zero)

	assert.Equal(t, 2, c.MonthSpan)
	assert.Equal(t, "3000", c.MonthlyIncome.String())
	assert.Equal(t, "1500", c.MonthlyExpense.String())
	assert.Equal(t, "1000", c.MonthlyDebtService.String())
	assert.InDelta(t, 1.5, c.Ratio, 1e-9)
}

func TestCompute_EdgeCasesStayFinite(t *testing.T) {
	cases := []struct {
		name      string
		txs       []Txn
		principal decimal.Decimal
		term      int
		rate      decimal.Decimal
	}{
		{"empty", nil, decimal.NewFromInt(1000), 24, decimal.NewFromInt(10)},
		{"zero principal", []Txn{txn("-100", 1)}, decimal.Zero, 24, decimal.NewFromInt(10)},
		{"negative principal", []Txn{txn("-100", 1)}, decimal.NewFromInt(-5), 24, decimal.NewFromInt(10)},
		{"zero term", []Txn{txn("-100", 1)}, decimal.NewFromInt(1000), 0, decimal.NewFromInt(10)},
		{"negative noi", []Txn{txn("-100", 1), txn("900", 2)}, decimal.NewFromInt(1000), 24, decimal.NewFromInt(10)},
		{"undated", []Txn{{Amount: decimal.NewFromInt(-100)}}, decimal.NewFromInt(1000), 12, decimal.NewFromInt(5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Compute(tc.txs, tc.principal, tc.term, tc.rate)
			assert.False(t, math.IsNaN(c.Ratio))
			assert.False(t, math.IsInf(c.Ratio, 0))
			assert.GreaterOrEqual(t, c.Ratio, 0.0)
			assert.GreaterOrEqual(t, c.MonthSpan, 1)
		})
	}
}

func TestCompute_ZeroDebtServiceGivesZeroRatio(t *testing.T) {
	c := Compute([]Txn{txn("-5000", 1)}, decimal.Zero, 24, decimal.NewFromInt(10))
	assert.Equal(t, 0.0, c.Ratio)
	assert.True(t, c.MonthlyDebtService.IsZero())
}

func TestMonthSpan(t *testing.T) {
	assert.Equal(t, 1, MonthSpan(nil))
	assert.Equal(t, 1, MonthSpan([]Txn{txn("1", 1)}))
	assert.Equal(t, 1, MonthSpan([]Txn{txn("1", 1), txn("1", 31)}))
	assert.Equal(t, 2, MonthSpan([]Txn{txn("1", 1), txn("1", 32)}))
	assert.Equal(t, 3, MonthSpan([]Txn{txn("1", 62), txn("1", 1), txn("1", 40)}))
}

func TestMonthlyDebtService(t *testing.T) {
	got := MonthlyDebtService(decimal.NewFromInt(10000), 24, decimal.NewFromInt(10))
	assert.InDelta(t, 461.449, got, 0.001)
	assert.Equal(t, 0.0, MonthlyDebtService(decimal.Zero, 24, decimal.NewFromInt(10)))
	assert.InDelta(t, 500.0, MonthlyDebtService(decimal.NewFromInt(6000), 12, decimal.Zero), 1e-9)
}

func TestTermMonthsForUrgency(t *testing.T) {
	cases := map[string]int{
		"immediate":       12,
		"URGENT":          12,
		"within-3-months": 24,
		"flexible":        36,
		" no rush ":       36,
		"":                24,
		"someday":         24,
	}
	for in, expected := range cases {
		assert.Equal(t, expected, TermMonthsForUrgency(in), "urgency %q", in)
	}
}

func TestProperty_RatioFiniteAndNonNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("ratio is finite and >= 0 for any ledger and loan terms", prop.ForAll(
		func(amounts []int64, offsets []int, principal int64, term int, ratePct int) bool {
			txs := make([]Txn, 0, len(amounts))
			for i, a := range amounts {
				d := 0
				if i < len(offsets) {
					d = offsets[i]
				}
				txs = append(txs, Txn{
					Amount: decimal.New(a, -2),
					Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d),
				})
			}
			c := Compute(txs, decimal.NewFromInt(principal), term, decimal.NewFromInt(int64(ratePct)))
			return !math.IsNaN(c.Ratio) && !math.IsInf(c.Ratio, 0) && c.Ratio >= 0 && c.MonthSpan >= 1
		},
		gen.SliceOf(gen.Int64Range(-10_000_000, 10_000_000)),
		gen.SliceOf(gen.IntRange(0, 120)),
		gen.Int64Range(-1000, 5_000_000),
		gen.IntRange(-12, 360),
		gen.IntRange(0, 60),
	))

	properties.TestingRun(t)
}

func TestProperty_ScaleRatioNeverNegative(t *testing.T) {
	require.Equal(t, int64(0), ScaleRatio(math.NaN()))
	require.Equal(t, int64(0), ScaleRatio(math.Inf(1)))
	require.Equal(t, int64(0), ScaleRatio(-1.2))
	require.Equal(t, int64(1850), ScaleRatio(1.85))
}
