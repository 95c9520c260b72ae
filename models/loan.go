package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LoanStatusPending   = "pending"
	LoanStatusApproved  = "approved"
	LoanStatusFunded    = "funded"
	LoanStatusRepaid    = "repaid"
	LoanStatusDefaulted = "defaulted"
)

// Loan is the borrower-owned application the DSCR pipeline verifies.
// Only the columns the verification core reads are mapped here.
type Loan struct {
	ID                  string          `gorm:"primaryKey;size:64" json:"id"`
	BorrowerAddress     string          `gorm:"size:64;index;not null" json:"borrower_address"`
	Principal           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"principal"`
	FundingUrgency      string          `gorm:"size:50;default:null" json:"funding_urgency"`
	DeclaredRatePercent decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"declared_rate_percent"`
	Status              string          `gorm:"size:20;index;default:pending" json:"status"`
	LastSyncedAt        *time.Time      `json:"last_synced_at"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasSynced reports whether the bank-transaction sync has ever completed for this loan.
func (l Loan) HasSynced() bool {
	return l.LastSyncedAt != nil && !l.LastSyncedAt.IsZero()
}
