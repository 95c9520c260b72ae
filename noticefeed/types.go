package noticefeed

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Notice is a validated verification notice emitted by the off-chain compute layer.
type Notice struct {
	LoanId         string
	Dscr           decimal.Decimal
	InterestRate   *int64
	ProofHash      string
	CalculatedAt   time.Time
	MeetsThreshold bool
	VerificationId string
}

// rawNotice is the wire shape; nothing past the client boundary sees it.
type rawNotice struct {
	LoanId         string       `json:"loan_id" validate:"required"`
	DscrValue      json.Number  `json:"dscr_value" validate:"required,decimal"`
	InterestRate   *json.Number `json:"interest_rate"`
	CalculatedAt   json.Number  `json:"calculated_at" validate:"required"`
	ProofHash      string       `json:"zkfetch_proof_hash"`
	MeetsThreshold bool         `json:"meets_threshold"`
	VerificationId string       `json:"verification_id"`
}

type noticeListResponse struct {
	Notices []json.RawMessage `json:"notices"`
	Data    []json.RawMessage `json:"data"`
}
