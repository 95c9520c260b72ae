package utils

import (
	"context"
	"strings"

	"github.com/mmdatafocus/lending_backend/appctx"
)

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyCallerAddress = appctx.ContextKeyCallerAddress
	ContextKeyRole          = appctx.ContextKeyRole
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyIsReviewer    = appctx.ContextKeyIsReviewer
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func GetCallerAddressFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCallerAddress)
}

// SetCallerAddressInContext stores the address lowercased; wallet addresses compare case-insensitively.
func SetCallerAddressInContext(ctx context.Context, address string) context.Context {
	return appctx.Set(ctx, ContextKeyCallerAddress, strings.ToLower(strings.TrimSpace(address)))
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyRole)
}

func SetRoleInContext(ctx context.Context, role string) context.Context {
	return appctx.Set(ctx, ContextKeyRole, role)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetIsReviewerFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeyIsReviewer)
}

func SetIsReviewerInContext(ctx context.Context, isReviewer bool) context.Context {
	return appctx.Set(ctx, ContextKeyIsReviewer, isReviewer)
}
