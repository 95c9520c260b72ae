package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction is a bank-ledger line synced for a loan's borrower.
// Amount follows the bank feed's convention: negative = money in, positive = money out.
// Rows are immutable once synced except for IsDeleted.
type BankTransaction struct {
	ID              uint            `gorm:"primary_key" json:"id"`
	LoanId          string          `gorm:"size:64;not null;uniqueIndex:idx_bank_tx_loan_txid,priority:1;index:idx_bank_tx_loan_date,priority:1" json:"loan_id"`
	TransactionId   *string         `gorm:"size:128;uniqueIndex:idx_bank_tx_loan_txid,priority:2" json:"transaction_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	TransactionDate time.Time       `gorm:"not null;index:idx_bank_tx_loan_date,priority:2" json:"transaction_date"`
	Name            string          `gorm:"size:255;default:null" json:"name"`
	IsDeleted       bool            `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BankTransaction) TableName() string {
	return "bank_transactions"
}

func (t BankTransaction) TxnId() string {
	if t.TransactionId == nil {
		return ""
	}
	return *t.TransactionId
}
