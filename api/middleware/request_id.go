package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/letrinh/letrinh-backend/api/responses"
	"github.com/letrinh/letrinh-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Client supplied ids end up in logs and response headers, so only short
// token-like values are trusted.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RequestID reuses a well-formed X-Request-Id or mints a UUID, echoes it on
// the response and threads it through the log context and error envelopes.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if !requestIDPattern.MatchString(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := responses.WithRequestID(r.Context(), reqID)
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
