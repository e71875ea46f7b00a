package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// Zalo serves the mini app from h5.zdn.vn, both over https and through its
// in-app browser scheme.
var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"https://h5.zdn.vn",
	"zbrowser://h5.zdn.vn",
	"https://admin.letrinh.vn",
}

// CORS applies the origin policy. An empty origins list uses the defaults.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: corsOrigins(origins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader, "X-Requested-With"},
		ExposedHeaders: []string{
			requestIDHeader,
			"Idempotent-Replayed",
			"Retry-After",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
		},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

func corsOrigins(configured []string) []string {
	out := make([]string, 0, len(configured))
	for _, origin := range configured {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			out = append(out, origin)
		}
	}
	if len(out) == 0 {
		return defaultCORSOrigins
	}
	return out
}
