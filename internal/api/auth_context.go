package api

import (
	"context"

	"github.com/librarydesk/librarydesk-server/internal/auth"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// staffClaimsKey is the context key for the authenticated staff claims.
const staffClaimsKey ctxKey = "staffClaims"

func withStaffClaims(ctx context.Context, claims *auth.StaffClaims) context.Context {
	return context.WithValue(ctx, staffClaimsKey, claims)
}

// StaffFromContext returns the authenticated staff username, or "" when the
// request was not authenticated (authentication disabled).
func StaffFromContext(ctx context.Context) string {
	if claims, ok := ctx.Value(staffClaimsKey).(*auth.StaffClaims); ok && claims != nil {
		return claims.Username
	}
	return ""
}
