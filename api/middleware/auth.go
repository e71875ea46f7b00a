package middleware

import (
	"errors"
	"net/http"

	"github.com/letrinh/letrinh-backend/api/responses"
	pkgAuth "github.com/letrinh/letrinh-backend/pkg/auth"
	"github.com/letrinh/letrinh-backend/pkg/config"
	pkgerrors "github.com/letrinh/letrinh-backend/pkg/errors"
	"github.com/letrinh/letrinh-backend/pkg/logger"
)

// RequireAdmin validates the bearer token and only lets admin or system
// admin tokens through. The admin identity is stored on the context.
func RequireAdmin(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := pkgAuth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Not authorized, no token"))
				return
			}

			claims, err := pkgAuth.ParseAdminToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, tokenError(err))
				return
			}
			if !claims.HasAdminAccess() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "Not authorized as admin"))
				return
			}

			ctx := WithAdmin(r.Context(), claims.Subject(), claims.SystemAdmin)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"admin_id":     claims.Subject(),
					"system_admin": claims.SystemAdmin,
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, pkgAuth.ErrTokenExpired):
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Token expired")
	case errors.Is(err, pkgAuth.ErrRefreshToken):
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Refresh token cannot be used for authorization")
	case errors.Is(err, pkgAuth.ErrTokenMissing):
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Not authorized, no token")
	case errors.Is(err, pkgAuth.ErrTokenInvalid):
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Not authorized, token failed")
	default:
		// misconfiguration, e.g. no secret
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify token")
	}
}
