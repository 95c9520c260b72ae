package reconcile

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/lending_backend/config"
	"github.com/mmdatafocus/lending_backend/utils"
	"github.com/sirupsen/logrus"
)

type StatusService interface {
	Status(ctx context.Context, req VerificationRequest) (Record, error)
}

// DscrStatusHandler serves GET /api/loans/:loanId/dscr-status.
func DscrStatusHandler(svc StatusService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		caller, _ := utils.GetCallerAddressFromContext(ctx)
		if caller == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		role, _ := utils.GetRoleFromContext(ctx)
		approverQuery, _ := strconv.ParseBool(c.Query("approver"))
		scope := ResolveScope(utils.IsReviewer(role), approverQuery, config.AllowApproverQuery())

		ctx = utils.SetIsReviewerInContext(ctx, scope == ScopeReviewer)
		req := NewVerificationRequest(c.Param("loanId"), caller, scope, time.Now())

		rec, err := svc.Status(ctx, req)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, rec)
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Loan not found"})
		case errors.Is(err, ErrInputInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			config.LogError(logger, "reconcile/handlers.go", "DscrStatusHandler", "reconciling dscr status", requestLogData(ctx, req), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get DSCR status"})
		}
	}
}
