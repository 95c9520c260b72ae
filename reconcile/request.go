package reconcile

import (
	"strings"
	"time"
)

// LookbackMonths is the rolling window of bank transactions used for local computation.
const LookbackMonths = 3

type AccessScope int

const (
	ScopeOwner AccessScope = iota
	ScopeReviewer
)

func (s AccessScope) String() string {
	if s == ScopeReviewer {
		return "reviewer"
	}
	return "owner"
}

// VerificationRequest is built per call and discarded with the response.
type VerificationRequest struct {
	LoanId        string
	CallerAddress string
	Scope         AccessScope
	WindowStart   time.Time
}

func NewVerificationRequest(loanId string, caller string, scope AccessScope, now time.Time) VerificationRequest {
	return VerificationRequest{
		LoanId:        strings.TrimSpace(loanId),
		CallerAddress: strings.ToLower(strings.TrimSpace(caller)),
		Scope:         scope,
		WindowStart:   now.AddDate(0, -LookbackMonths, 0),
	}
}

// ResolveScope grants reviewer scope to approver/admin roles, or to an explicit
// approver query when allowQuery is set.
func ResolveScope(isReviewerRole bool, approverQuery bool, allowQuery bool) AccessScope {
	if isReviewerRole || (approverQuery && allowQuery) {
		return ScopeReviewer
	}
	return ScopeOwner
}
