package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/lending_backend/config"
	"github.com/mmdatafocus/lending_backend/utils"
	"gorm.io/gorm"
)

// TransactionLedger reads loans and their synced bank transactions.
// The sync pipeline writes the same tables concurrently; every read here is a
// single statement, so read-committed isolation is enough.
type TransactionLedger struct {
	db func() *gorm.DB
}

func NewTransactionLedger(db *gorm.DB) *TransactionLedger {
	return &TransactionLedger{db: func() *gorm.DB { return db }}
}

// NewSharedTransactionLedger reads through config.GetDB, which main sets once the
// database is reachable.
func NewSharedTransactionLedger() *TransactionLedger {
	return &TransactionLedger{db: config.GetDB}
}

// GetAccessibleLoan returns the loan when the caller may read it.
// A missing loan and a loan owned by someone else both yield utils.ErrorRecordNotFound.
func (l *TransactionLedger) GetAccessibleLoan(ctx context.Context, loanId string, caller string, reviewer bool) (*Loan, error) {
	loanId = strings.TrimSpace(loanId)
	caller = strings.ToLower(strings.TrimSpace(caller))
	if loanId == "" || (!reviewer && caller == "") {
		return nil, utils.ErrorRecordNotFound
	}

	q := l.db().WithContext(ctx).Where("id = ?", loanId)
	if !reviewer {
		q = q.Where("LOWER(borrower_address) = ?", caller)
	}

	var loan Loan
	if err := q.Take(&loan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &loan, nil
}

func (l *TransactionLedger) windowScope(loanId string, windowStart time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("loan_id = ?", loanId).
			Where("is_deleted = ?", false).
			Where("transaction_id IS NOT NULL AND transaction_id <> ?", "").
			Where("transaction_date >= ?", windowStart)
	}
}

// ListWindowTransactions returns the loan's live transactions dated on or after windowStart,
// oldest first, one row per transaction id.
func (l *TransactionLedger) ListWindowTransactions(ctx context.Context, loanId string, windowStart time.Time) ([]BankTransaction, error) {
	var rows []BankTransaction
	err := l.db().WithContext(ctx).
		Scopes(l.windowScope(loanId, windowStart)).
		Order("transaction_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// idx_bank_tx_loan_txid already guarantees this; kept so a missing index cannot double count.
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0]
	for _, row := range rows {
		id := row.TxnId()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, row)
	}
	return out, nil
}

// CountWindowTransactions counts distinct live transaction ids in the window.
func (l *TransactionLedger) CountWindowTransactions(ctx context.Context, loanId string, windowStart time.Time) (int64, error) {
	var count int64
	err := l.db().WithContext(ctx).
		Model(&BankTransaction{}).
		Scopes(l.windowScope(loanId, windowStart)).
		Distinct("transaction_id").
		Count(&count).Error
	return count, err
}
