package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mmdatafocus/lending_backend/dscr"
	"github.com/mmdatafocus/lending_backend/models"
	"github.com/mmdatafocus/lending_backend/noticefeed"
	"github.com/mmdatafocus/lending_backend/onchain"
	"github.com/mmdatafocus/lending_backend/utils"
)

type fakeLedger struct {
	loans    map[string]models.Loan
	txs      map[string][]models.BankTransaction
	loanErr  error
	countErr error
	listed   atomic.Int32
	counted  atomic.Int32
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		loans: map[string]models.Loan{},
		txs:   map[string][]models.BankTransaction{},
	}
}

func (f *fakeLedger) GetAccessibleLoan(ctx context.Context, loanId string, caller string, reviewer bool) (*models.Loan, error) {
	if f.loanErr != nil {
		return nil, f.loanErr
	}
	loan, ok := f.loans[loanId]
	if !ok || (!reviewer && !strings.EqualFold(loan.BorrowerAddress, caller)) {
		return nil, utils.ErrorRecordNotFound
	}
	return &loan, nil
}

func (f *fakeLedger) ListWindowTransactions(ctx context.Context, loanId string, windowStart time.Time) ([]models.BankTransaction, error) {
	f.listed.Add(1)
	var out []models.BankTransaction
	for _, tx := range f.txs[loanId] {
		if !tx.TransactionDate.Before(windowStart) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeLedger) CountWindowTransactions(ctx context.Context, loanId string, windowStart time.Time) (int64, error) {
	f.counted.Add(1)
	if f.countErr != nil {
		return 0, f.countErr
	}
	rows, _ := f.ListWindowTransactions(ctx, loanId, windowStart)
	return int64(len(rows)), nil
}

type fakeChain struct {
	result *onchain.Verification
	calls  atomic.Int32
}

func (f *fakeChain) ReadVerification(ctx context.Context, loanId string) *onchain.Verification {
	f.calls.Add(1)
	return f.result
}

type fakeNotices struct {
	result *noticefeed.Notice
	calls  atomic.Int32
}

func (f *fakeNotices) FetchLatestNotice(ctx context.Context, loanId string) *noticefeed.Notice {
	f.calls.Add(1)
	return f.result
}

type fakeScores struct {
	result *dscr.Score
	calls  atomic.Int32
}

func (f *fakeScores) FetchScore(ctx context.Context, loanId string) *dscr.Score {
	f.calls.Add(1)
	return f.result
}

// scriptedEngine returns queued results in order, repeating the last one.
type scriptedEngine struct {
	results []scriptedResult
	delay   time.Duration
	calls   atomic.Int32
}

type scriptedResult struct {
	rec Record
	err error
}

func (s *scriptedEngine) Reconcile(ctx context.Context, req VerificationRequest) (Record, error) {
	n := int(s.calls.Add(1))
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if len(s.results) == 0 {
		return Record{}, errors.New("no scripted result")
	}
	if n > len(s.results) {
		n = len(s.results)
	}
	r := s.results[n-1]
	return r.rec, r.err
}
