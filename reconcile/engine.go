// Package reconcile merges the on-chain verifier, the off-chain notice feed and the
// local bank ledger into one canonical DSCR status per loan.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mmdatafocus/lending_backend/config"
	"github.com/mmdatafocus/lending_backend/dscr"
	"github.com/mmdatafocus/lending_backend/models"
	"github.com/mmdatafocus/lending_backend/noticefeed"
	"github.com/mmdatafocus/lending_backend/onchain"
	"github.com/mmdatafocus/lending_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/mmdatafocus/lending_backend/reconcile")

// Ledger is the persistence the local tier and transaction counts read from.
type Ledger interface {
	GetAccessibleLoan(ctx context.Context, loanId string, caller string, reviewer bool) (*models.Loan, error)
	ListWindowTransactions(ctx context.Context, loanId string, windowStart time.Time) ([]models.BankTransaction, error)
	CountWindowTransactions(ctx context.Context, loanId string, windowStart time.Time) (int64, error)
}

// The adapters below contain their own failures and report "nothing" as nil.

type ChainSource interface {
	ReadVerification(ctx context.Context, loanId string) *onchain.Verification
}

type NoticeSource interface {
	FetchLatestNotice(ctx context.Context, loanId string) *noticefeed.Notice
}

type ScoreProvider interface {
	FetchScore(ctx context.Context, loanId string) *dscr.Score
}

type Engine struct {
	ledger          Ledger
	chain           ChainSource
	notices         NoticeSource
	scores          ScoreProvider
	chainID         int64
	contractAddress string
	logger          *logrus.Logger
}

// NewEngine wires the engine. chain, notices and scores may be nil to disable a source.
func NewEngine(ledger Ledger, chain ChainSource, notices NoticeSource, scores ScoreProvider, chainCfg config.ChainConfig, logger *logrus.Logger) *Engine {
	return &Engine{
		ledger:          ledger,
		chain:           chain,
		notices:         notices,
		scores:          scores,
		chainID:         chainCfg.ChainID,
		contractAddress: checksumAddress(chainCfg.ContractAddress),
		logger:          logger,
	}
}

// upstream is what the three concurrent adapter reads returned.
type upstream struct {
	chain  *onchain.Verification
	notice *noticefeed.Notice
	score  *dscr.Score
}

// Reconcile returns the canonical status for the requested loan.
// Precedence is settled on-chain state, then the latest notice, then local computation;
// values are never mixed across sources.
func (e *Engine) Reconcile(ctx context.Context, req VerificationRequest) (rec Record, err error) {
	ctx, span := tracer.Start(ctx, "reconcile.Reconcile", trace.WithAttributes(
		attribute.String("loan.id", req.LoanId),
		attribute.String("access.scope", req.Scope.String()),
	))
	defer func() { endSpan(span, rec, err) }()

	loan, err := e.ledger.GetAccessibleLoan(ctx, req.LoanId, req.CallerAddress, req.Scope == ScopeReviewer)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("loading loan %s: %w", req.LoanId, err)
	}

	up := e.readUpstream(ctx, req.LoanId)

	switch {
	case up.chain != nil && up.chain.HasVerified:
		return e.fromChain(ctx, req, up)
	case up.notice != nil:
		return e.fromNotice(ctx, req, up)
	default:
		return e.fromLedger(ctx, req, loan, up.score)
	}
}

// readUpstream issues the on-chain, notice and score reads concurrently.
// Each adapter soft-fails on its own, so one outage never blocks the others.
func (e *Engine) readUpstream(ctx context.Context, loanId string) upstream {
	var up upstream
	g, gctx := errgroup.WithContext(ctx)
	if e.chain != nil {
		g.Go(func() error {
			up.chain = e.chain.ReadVerification(gctx, loanId)
			return nil
		})
	}
	if e.notices != nil {
		g.Go(func() error {
			up.notice = e.notices.FetchLatestNotice(gctx, loanId)
			return nil
		})
	}
	if e.scores != nil {
		g.Go(func() error {
			up.score = e.scores.FetchScore(gctx, loanId)
			return nil
		})
	}
	_ = g.Wait()
	return up
}

func (e *Engine) fromChain(ctx context.Context, req VerificationRequest, up upstream) (Record, error) {
	v := up.chain
	count := e.windowCount(ctx, req)

	rec := Record{
		Verified:         true,
		DscrValue:        v.Dscr,
		InterestRate:     v.RateBps,
		BaseInterestRate: dscr.BaseRate(float64(v.Dscr) / 1000),
		ProofHash:        v.ProofHash,
		VerifiedAt:       formatVerifiedAt(v.VerifiedAt),
		TransactionCount: count,
		ProofSource:      ProofSourceOnchain,
		OnchainVerified:  true,
		PendingRelay:     false,
	}
	// The settled rate already reflects any score; it is reported, not re-applied.
	if up.score != nil {
		if _, reasons := dscr.AdjustRate(rec.BaseInterestRate, up.score); reasons != nil {
			value := up.score.Value
			rec.LendScore = &value
			rec.LendScoreReasons = reasons
		}
	}
	e.decorate(&rec)
	return rec, nil
}

func (e *Engine) fromNotice(ctx context.Context, req VerificationRequest, up upstream) (Record, error) {
	n := up.notice
	count := e.windowCount(ctx, req)

	ratio := n.Dscr.InexactFloat64()
	base := dscr.BaseRate(ratio)
	rec := Record{
		Verified:         true,
		DscrValue:        dscr.ScaleRatio(ratio),
		BaseInterestRate: base,
		ProofHash:        n.ProofHash,
		VerifiedAt:       formatVerifiedAt(n.CalculatedAt),
		TransactionCount: count,
		ProofSource:      ProofSourceCartesi,
		OnchainVerified:  false,
		PendingRelay:     true,
	}
	applyScore(&rec, base, up.score)
	e.decorate(&rec)
	return rec, nil
}

// windowCount is informational for the authoritative tiers; a failed count reports 0
// rather than hiding a settled result.
func (e *Engine) windowCount(ctx context.Context, req VerificationRequest) int64 {
	count, err := e.ledger.CountWindowTransactions(ctx, req.LoanId, req.WindowStart)
	if err != nil {
		config.LogWarn(e.logger, "reconcile/engine.go", "windowCount", "counting window transactions", req.LoanId, err)
		return 0
	}
	return count
}

func (e *Engine) fromLedger(ctx context.Context, req VerificationRequest, loan *models.Loan, score *dscr.Score) (Record, error) {
	if !loan.HasSynced() {
		return NotReady(), nil
	}
	rows, err := e.ledger.ListWindowTransactions(ctx, req.LoanId, req.WindowStart)
	if err != nil {
		return Record{}, fmt.Errorf("listing transactions for %s: %w", req.LoanId, err)
	}
	if len(rows) == 0 {
		return NotReady(), nil
	}
	if loan.Principal.Sign() <= 0 {
		return Record{}, fmt.Errorf("%w: loan principal must be greater than zero", ErrInputInvalid)
	}
	if loan.DeclaredRatePercent.Sign() < 0 {
		return Record{}, fmt.Errorf("%w: declared interest rate must not be negative", ErrInputInvalid)
	}

	txs := make([]dscr.Txn, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, dscr.Txn{Amount: row.Amount, Date: row.TransactionDate})
	}
	term := dscr.TermMonthsForUrgency(loan.FundingUrgency)
	comp := dscr.Compute(txs, loan.Principal, term, loan.DeclaredRatePercent)
	if math.IsNaN(comp.Ratio) || math.IsInf(comp.Ratio, 0) {
		return Record{}, fmt.Errorf("non-finite dscr for %s", req.LoanId)
	}

	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"loanId":      req.LoanId,
			"monthSpan":   comp.MonthSpan,
			"monthlyNoi":  comp.MonthlyNoi.String(),
			"debtService": comp.MonthlyDebtService.String(),
			"termMonths":  term,
		}).Debug("local dscr computed")
	}

	base := dscr.BaseRate(comp.Ratio)
	rec := Record{
		Verified:         false,
		DscrValue:        comp.Scaled(),
		BaseInterestRate: base,
		ProofHash:        "",
		VerifiedAt:       formatVerifiedAt(*loan.LastSyncedAt),
		TransactionCount: int64(comp.TransactionCount),
		ProofSource:      ProofSourceLocal,
	}
	applyScore(&rec, base, score)
	e.decorate(&rec)
	return rec, nil
}

func applyScore(rec *Record, base int64, score *dscr.Score) {
	rate, reasons := dscr.AdjustRate(base, score)
	rec.InterestRate = rate
	if reasons != nil {
		value := score.Value
		rec.LendScore = &value
		rec.LendScoreReasons = reasons
	}
}

func (e *Engine) decorate(rec *Record) {
	if e.contractAddress != "" {
		addr := e.contractAddress
		rec.ContractAddress = &addr
	}
	rec.ExplorerUrl = ExplorerURL(e.chainID, e.contractAddress, rec.ProofHash)
}

// checksumAddress returns "" for a missing or malformed address so a bad config
// only drops the contract and explorer fields.
func checksumAddress(addr string) string {
	if !common.IsHexAddress(addr) {
		return ""
	}
	return common.HexToAddress(addr).Hex()
}

func endSpan(span trace.Span, rec Record, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if rec.IsNotReady() {
		span.SetAttributes(attribute.Bool("dscr.processing", true))
	} else {
		span.SetAttributes(attribute.String("dscr.proof_source", rec.ProofSource))
	}
	span.End()
}
