package reconcile

import (
	"encoding/json"
	"time"

	"github.com/mmdatafocus/lending_backend/utils"
)

const (
	ProofSourceOnchain = "onchain"
	ProofSourceCartesi = "cartesi"
	ProofSourceLocal   = "local"
)

var notReadyJSON = []byte(`{"verified":false,"processing":true}`)

// Record is the canonical DSCR status returned for a loan.
// DscrValue is x1000 fixed point; rates are basis points.
type Record struct {
	Verified         bool     `json:"verified"`
	Processing       bool     `json:"processing,omitempty"`
	DscrValue        int64    `json:"dscrValue"`
	InterestRate     int64    `json:"interestRate"`
	BaseInterestRate int64    `json:"baseInterestRate"`
	ProofHash        string   `json:"proofHash"`
	VerifiedAt       *string  `json:"verifiedAt"`
	TransactionCount int64    `json:"transactionCount"`
	LendScore        *int     `json:"lendScore"`
	LendScoreReasons []string `json:"lendScoreReasons"`
	ProofSource      string   `json:"proofSource"`
	OnchainVerified  bool     `json:"onchainVerified"`
	PendingRelay     bool     `json:"pendingRelay"`
	ExplorerUrl      *string  `json:"explorerUrl"`
	ContractAddress  *string  `json:"contractAddress"`
}

// NotReady is returned while no transactions have been synced for the loan.
func NotReady() Record {
	return Record{Processing: true}
}

func (r Record) IsNotReady() bool {
	return r.Processing && !r.Verified
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.IsNotReady() {
		return notReadyJSON, nil
	}
	type plain Record
	return json.Marshal(plain(r))
}

func formatVerifiedAt(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := utils.FormatISOMillis(t)
	return &s
}
