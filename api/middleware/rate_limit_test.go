package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgredis "github.com/letrinh/letrinh-backend/pkg/redis"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: make(map[string]int64)}
}

func (f *fakeRateStore) FixedWindow(_ context.Context, scope string, limit int64, window time.Duration) (pkgredis.WindowResult, error) {
	if f.err != nil {
		return pkgredis.WindowResult{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	count := f.counts[scope]
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return pkgredis.WindowResult{Allowed: count <= limit, Count: count, Remaining: remaining, ResetIn: window / 2}, nil
}

func checkRequest(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/discount/check", strings.NewReader(`{"code":"SALE"}`))
	req.RemoteAddr = ip + ":5678"
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(NewRateLimitPolicy("discount", time.Minute, 2), store, nil)(okHandler())

	var codes []int
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, checkRequest("1.2.3.4"))
		codes = append(codes, last.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if retry := last.Header().Get("Retry-After"); retry != "30" {
		t.Fatalf("expected Retry-After from remaining window, got %q", retry)
	}
	if remaining := last.Header().Get("X-RateLimit-Remaining"); remaining != "0" {
		t.Fatalf("expected no remaining budget, got %q", remaining)
	}

	other := httptest.NewRecorder()
	handler.ServeHTTP(other, checkRequest("5.6.7.8"))
	if other.Code != http.StatusOK {
		t.Fatalf("separate ip should have its own window, got %d", other.Code)
	}
}

func TestRateLimitUsesForwardedFor(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(NewRateLimitPolicy("discount", time.Minute, 1), store, nil)(okHandler())

	req := checkRequest("10.0.0.1")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if _, ok := store.counts["ip:discount:203.0.113.9"]; !ok {
		t.Fatalf("expected forwarded client ip to be counted, got %v", store.counts)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	handler := RateLimit(NewRateLimitPolicy("discount", time.Minute, 1), store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkRequest("1.2.3.4"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected request through on store failure, got %d", rec.Code)
	}
}

func TestRateLimitDisabledPolicy(t *testing.T) {
	store := newFakeRateStore()
	handler := RateLimit(NewRateLimitPolicy("discount", 0, 1), store, nil)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, checkRequest("1.2.3.4"))
		if rec.Code != http.StatusOK {
			t.Fatalf("disabled policy blocked request %d", i)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("disabled policy should not touch the store")
	}
}

func TestRetryAfterRoundsUp(t *testing.T) {
	if got := retryAfterSeconds(1500*time.Millisecond, time.Minute); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := retryAfterSeconds(0, time.Minute); got != 60 {
		t.Fatalf("expected window fallback, got %d", got)
	}
}
