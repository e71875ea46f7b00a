package middleware

import "context"

type contextKey string

const (
	ctxAdminID     contextKey = "admin_id"
	ctxSystemAdmin contextKey = "system_admin"
)

// AdminIDFromContext returns the admin identity set by RequireAdmin.
func AdminIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAdminID).(string); ok {
		return v
	}
	return ""
}

func IsSystemAdmin(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(ctxSystemAdmin).(bool)
	return v
}

// WithAdmin injects the admin identity into the context.
func WithAdmin(ctx context.Context, adminID string, systemAdmin bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAdminID, adminID)
	return context.WithValue(ctx, ctxSystemAdmin, systemAdmin)
}
