package config

import (
	"context"
	"strings"

	"github.com/mmdatafocus/lending_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const borrowerColumn = "borrower_address"

// BorrowerGuardPlugin scopes reads of borrower-owned tables (any model with a
// borrower_address column) to the caller address carried in the request context.
//
// NOTE:
// - This does NOT apply to Raw SQL queries. Those must filter by borrower manually.
// - Reviewers (approver/admin) bypass the scope via appctx.ContextKeyIsReviewer.
type BorrowerGuardPlugin struct{}

func NewBorrowerGuardPlugin() *BorrowerGuardPlugin { return &BorrowerGuardPlugin{} }

func (p *BorrowerGuardPlugin) Name() string { return "borrower_guard" }

func (p *BorrowerGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("borrower_guard:query", borrowerGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("borrower_guard:row", borrowerGuardCallback); err != nil {
		return err
	}
	return nil
}

func borrowerGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil || db.Statement.Context == nil {
		return
	}
	ctx := db.Statement.Context
	if isReviewer(ctx) {
		return
	}
	caller := callerFromContext(ctx)
	if caller == "" {
		return
	}
	if db.Statement.Schema == nil {
		return
	}
	if _, ok := db.Statement.Schema.FieldsByDBName[borrowerColumn]; !ok {
		return
	}
	// Don't duplicate an explicit borrower filter.
	if whereHasBorrower(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Expr{
				SQL:  "LOWER(" + db.Statement.Quote(clause.Column{Table: db.Statement.Table, Name: borrowerColumn}) + ") = ?",
				Vars: []interface{}{caller},
			},
		},
	})
}

func callerFromContext(ctx context.Context) string {
	if v, ok := appctx.GetString(ctx, appctx.ContextKeyCallerAddress); ok {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return ""
}

func isReviewer(ctx context.Context) bool {
	v, ok := appctx.GetBool(ctx, appctx.ContextKeyIsReviewer)
	return ok && v
}

func whereHasBorrower(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasBorrower(e) {
			return true
		}
	}
	return false
}

func exprHasBorrower(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsBorrower(v.Column)
	case clause.IN:
		return colIsBorrower(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasBorrower(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasBorrower(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		// Best-effort for raw expressions.
		return strings.Contains(strings.ToLower(v.SQL), borrowerColumn)
	default:
		return false
	}
}

func colIsBorrower(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, borrowerColumn)
	case clause.Column:
		return strings.EqualFold(c.Name, borrowerColumn)
	default:
		return false
	}
}
