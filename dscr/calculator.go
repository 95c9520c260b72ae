// Package dscr computes a borrower's debt service coverage ratio from bank
// transactions and derives the interest rate tier it earns.
package dscr

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// daysPerMonth is the bucket size used to turn a date range into a month span.
const daysPerMonth = 30

// Txn is the slice of a bank transaction the calculator needs.
// Negative amounts are inflows, positive amounts are outflows.
type Txn struct {
	Amount decimal.Decimal
	Date   time.Time
}

// Computation is the result of Compute. Ratio is always finite and >= 0.
type Computation struct {
	MonthlyIncome      decimal.Decimal `json:"monthly_income"`
	MonthlyExpense     decimal.Decimal `json:"monthly_expense"`
	MonthlyNoi         decimal.Decimal `json:"monthly_noi"`
	MonthlyDebtService decimal.Decimal `json:"monthly_debt_service"`
	MonthSpan          int             `json:"month_span"`
	TransactionCount   int             `json:"transaction_count"`
	Ratio              float64         `json:"ratio"`
}

// Scaled returns the ratio in the x1000 fixed-point form used on-chain and in responses.
func (c Computation) Scaled() int64 {
	return ScaleRatio(c.Ratio)
}

// ScaleRatio converts a ratio to x1000 fixed point, mapping non-finite or negative values to 0.
func ScaleRatio(ratio float64) int64 {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio < 0 {
		return 0
	}
	return int64(math.Round(ratio * 1000))
}

// Compute derives monthly NOI, monthly debt service and the DSCR.
func Compute(txs []Txn, principal decimal.Decimal, termMonths int, annualRatePercent decimal.Decimal) Computation {
	span := MonthSpan(txs)
	months := decimal.NewFromInt(int64(span))

	income := decimal.Zero
	expense := decimal.Zero
	for _, tx := range txs {
		switch tx.Amount.Sign() {
		case -1:
			income = income.Add(tx.Amount.Abs())
		case 1:
			expense = expense.Add(tx.Amount)
		}
	}

	monthlyIncome := income.Div(months)
	monthlyExpense := expense.Div(months)
	noi := monthlyIncome.Sub(monthlyExpense)
	debtService := MonthlyDebtService(principal, termMonths, annualRatePercent)

	ratio := 0.0
	if debtService > 0 && noi.Sign() >= 0 {
		ratio = noi.InexactFloat64() / debtService
		if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio < 0 {
			ratio = 0
		}
	}

	return Computation{
		MonthlyIncome:      monthlyIncome.Round(2),
		MonthlyExpense:     monthlyExpense.Round(2),
		MonthlyNoi:         noi.Round(2),
		MonthlyDebtService: decimal.NewFromFloat(debtService).Round(2),
		MonthSpan:          span,
		TransactionCount:   len(txs),
		Ratio:              ratio,
	}
}

// MonthSpan is max(1, ceil((latest - earliest) / 30 days)) over dated transactions.
func MonthSpan(txs []Txn) int {
	var earliest, latest time.Time
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		if earliest.IsZero() || tx.Date.Before(earliest) {
			earliest = tx.Date
		}
		if latest.IsZero() || tx.Date.After(latest) {
			latest = tx.Date
		}
	}
	if earliest.IsZero() {
		return 1
	}
	days := latest.Sub(earliest).Hours() / 24
	span := int(math.Ceil(days / daysPerMonth))
	if span < 1 {
		return 1
	}
	return span
}

// MonthlyDebtService is the standard amortized payment P*r*(1+r)^n / ((1+r)^n - 1).
// Non-positive principal or term yields 0; a zero rate spreads principal evenly.
func MonthlyDebtService(principal decimal.Decimal, termMonths int, annualRatePercent decimal.Decimal) float64 {
	if principal.Sign() <= 0 || termMonths <= 0 {
		return 0
	}
	p := principal.InexactFloat64()
	n := float64(termMonths)
	r := annualRatePercent.InexactFloat64() / 100 / 12
	if r <= 0 {
		return p / n
	}

	growth := math.Pow(1+r, n)
	payment := p * r * growth / (growth - 1)
	if math.IsNaN(payment) || math.IsInf(payment, 0) || payment < 0 {
		return 0
	}
	return payment
}
