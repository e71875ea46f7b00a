package validators

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/letrinh/letrinh-backend/pkg/errors"
)

const maxPathParamLen = 64

// PathString returns a trimmed, non-empty URL parameter.
func PathString(r *http.Request, key string) (string, error) {
	value := SanitizeString(chi.URLParam(r, key), maxPathParamLen)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "path parameter is required").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

// PathUint64 parses a numeric identifier from the URL.
func PathUint64(r *http.Request, key string) (uint64, error) {
	raw, err := PathString(r, key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a positive integer").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
