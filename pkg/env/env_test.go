package env

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("LETRINH_TEST_VALUE", "  zalo  ")
	if got := Get("LETRINH_TEST_VALUE", "x"); got != "zalo" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	t.Setenv("LETRINH_TEST_VALUE", "   ")
	if got := Get("LETRINH_TEST_VALUE", "x"); got != "x" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}
}

func TestFirst(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LETRINH_TEST_PORT", "9090")
	if got := First("8080", "PORT", "LETRINH_TEST_PORT"); got != "9090" {
		t.Fatalf("expected second key, got %q", got)
	}
	t.Setenv("PORT", "7070")
	if got := First("8080", "PORT", "LETRINH_TEST_PORT"); got != "7070" {
		t.Fatalf("expected first key, got %q", got)
	}
	if got := First("8080"); got != "8080" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
