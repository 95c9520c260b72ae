package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/lending_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingService struct {
	rec  Record
	err  error
	last VerificationRequest
	ctx  context.Context
}

func (s *recordingService) Status(ctx context.Context, req VerificationRequest) (Record, error) {
	s.last = req
	s.ctx = ctx
	return s.rec, s.err
}

func newTestRouter(svc StatusService, caller string, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx := c.Request.Context()
		if caller != "" {
			ctx = utils.SetCallerAddressInContext(ctx, caller)
		}
		if role != "" {
			ctx = utils.SetRoleInContext(ctx, role)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.GET("/api/loans/:loanId/dscr-status", DscrStatusHandler(svc, nil))
	return r
}

func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestDscrStatusHandler_OK(t *testing.T) {
	svc := &recordingService{rec: NotReady()}
	w := doGet(newTestRouter(svc, borrowerA, utils.RoleBorrower), "/api/loans/loan-1/dscr-status")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"verified":false,"processing":true}`, w.Body.String())
	assert.Equal(t, "loan-1", svc.last.LoanId)
	assert.Equal(t, borrowerA, svc.last.CallerAddress)
	assert.Equal(t, ScopeOwner, svc.last.Scope)

	reviewer, ok := utils.GetIsReviewerFromContext(svc.ctx)
	require.True(t, ok)
	assert.False(t, reviewer)
}

func TestDscrStatusHandler_Unauthorized(t *testing.T) {
	svc := &recordingService{}
	w := doGet(newTestRouter(svc, "", ""), "/api/loans/loan-1/dscr-status")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDscrStatusHandler_NotFoundShapeIsUniform(t *testing.T) {
	svc := &recordingService{err: ErrNotFound}
	router := newTestRouter(svc, borrowerA, "")

	foreign := doGet(router, "/api/loans/loan-of-b/dscr-status")
	missing := doGet(router, "/api/loans/does-not-exist/dscr-status")

	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.JSONEq(t, `{"error":"Loan not found"}`, foreign.Body.String())
	assert.Equal(t, foreign.Code, missing.Code)
	assert.Equal(t, foreign.Body.String(), missing.Body.String())
}

func TestDscrStatusHandler_InputInvalid(t *testing.T) {
	svc := &recordingService{err: fmt.Errorf("%w: loan principal must be greater than zero", ErrInputInvalid)}
	w := doGet(newTestRouter(svc, borrowerA, ""), "/api/loans/loan-1/dscr-status")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid loan input: loan principal must be greater than zero"}`, w.Body.String())
}

func TestDscrStatusHandler_UnexpectedError(t *testing.T) {
	svc := &recordingService{err: errors.New("dial tcp 10.0.0.5:3306: connection refused")}
	w := doGet(newTestRouter(svc, borrowerA, ""), "/api/loans/loan-1/dscr-status")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to get DSCR status"}`, w.Body.String())
}

func TestDscrStatusHandler_ReviewerScope(t *testing.T) {
	t.Run("approver role", func(t *testing.T) {
		svc := &recordingService{rec: NotReady()}
		doGet(newTestRouter(svc, borrowerA, utils.RoleApprover), "/api/loans/loan-1/dscr-status")
		assert.Equal(t, ScopeReviewer, svc.last.Scope)

		reviewer, _ := utils.GetIsReviewerFromContext(svc.ctx)
		assert.True(t, reviewer)
	})

	t.Run("approver query allowed", func(t *testing.T) {
		t.Setenv("ALLOW_APPROVER_QUERY", "")
		svc := &recordingService{rec: NotReady()}
		doGet(newTestRouter(svc, borrowerA, ""), "/api/loans/loan-1/dscr-status?approver=true")
		assert.Equal(t, ScopeReviewer, svc.last.Scope)
	})

	t.Run("approver query disabled", func(t *testing.T) {
		t.Setenv("ALLOW_APPROVER_QUERY", "false")
		svc := &recordingService{rec: NotReady()}
		doGet(newTestRouter(svc, borrowerA, ""), "/api/loans/loan-1/dscr-status?approver=true")
		assert.Equal(t, ScopeOwner, svc.last.Scope)
	})
}

func TestResolveScope(t *testing.T) {
	assert.Equal(t, ScopeReviewer, ResolveScope(true, false, false))
	assert.Equal(t, ScopeReviewer, ResolveScope(false, true, true))
	assert.Equal(t, ScopeOwner, ResolveScope(false, true, false))
	assert.Equal(t, ScopeOwner, ResolveScope(false, false, true))
}
