package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/lending_backend/config"
	"github.com/mmdatafocus/lending_backend/dscr"
	"github.com/mmdatafocus/lending_backend/lendscore"
	"github.com/mmdatafocus/lending_backend/models"
	"github.com/mmdatafocus/lending_backend/noticefeed"
	"github.com/mmdatafocus/lending_backend/onchain"
	"github.com/mmdatafocus/lending_backend/reconcile"
	"github.com/mmdatafocus/lending_backend/utils"
)

// dscr-check reconciles one loan with reviewer scope and prints the canonical record,
// optionally alongside what each source reported on its own.
//
// Example:
//
//	go run ./cmd/dscr-check/ -loan-id=6f1c2b7e-9a4d-4d3b-8f0e-2c5a7b9d1e3f -sources
func main() {
	loanID := flag.String("loan-id", "", "Required: loan id")
	showSources := flag.Bool("sources", false, "Also print each source's raw view")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	if strings.TrimSpace(*loanID) == "" {
		fmt.Fprintln(os.Stderr, "--loan-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	logger := config.GetLogger()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = utils.SetIsReviewerInContext(ctx, true)

	chainCfg := config.ChainSettings()
	reader := onchain.NewReader(chainCfg, logger)
	notices := noticefeed.NewClient(config.NoticeFeedSettings(), logger)
	scores := lendscore.NewClient(config.LendScoreSettings(), logger)
	ledger := models.NewTransactionLedger(db)
	engine := reconcile.NewEngine(ledger, reader, notices, scores, chainCfg, logger)

	req := reconcile.NewVerificationRequest(*loanID, "", reconcile.ScopeReviewer, time.Now())
	rec, err := engine.Reconcile(ctx, req)
	switch {
	case errors.Is(err, reconcile.ErrNotFound):
		fmt.Fprintf(os.Stderr, "loan %s not found\n", *loanID)
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "reconcile failed: %v\n", err)
		os.Exit(1)
	}
	printJSON("record", rec)

	if !*showSources {
		return
	}
	key := onchain.LoanKey(*loanID)
	fmt.Printf("loan_key=0x%x contract=%s\n", key[:], reader.ContractAddress())
	printJSON("onchain", reader.ReadVerification(ctx, *loanID))
	printJSON("notice", notices.FetchLatestNotice(ctx, *loanID))
	printJSON("lend_score", scores.FetchScore(ctx, *loanID))

	loan, err := ledger.GetAccessibleLoan(ctx, *loanID, "", true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading loan: %v\n", err)
		os.Exit(1)
	}
	rows, err := ledger.ListWindowTransactions(ctx, *loanID, req.WindowStart)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listing transactions: %v\n", err)
		os.Exit(1)
	}
	txs := make([]dscr.Txn, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, dscr.Txn{Amount: row.Amount, Date: row.TransactionDate})
	}
	term := dscr.TermMonthsForUrgency(loan.FundingUrgency)
	printJSON("local", dscr.Compute(txs, loan.Principal, term, loan.DeclaredRatePercent))
}

func printJSON(label string, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", label, err)
		return
	}
	fmt.Printf("%s=%s\n", label, b)
}
