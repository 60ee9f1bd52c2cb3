package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhythmscan/rhythmscan/server/internal/auth"
)

// okHandler marks that the request made it past the middleware.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func do(t *testing.T, h http.Handler, header, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
	if key != "" {
		req.Header.Set(header, key)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_ModeNone_PassesThrough(t *testing.T) {
	h := auth.Middleware("none", "x-api-key", "secret", okHandler)
	if rr := do(t, h, "x-api-key", ""); rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}

func TestMiddleware_EmptyKey_PassesThrough(t *testing.T) {
	// apikey mode without a resolved key must not lock everyone out.
	h := auth.Middleware("apikey", "x-api-key", "", okHandler)
	if rr := do(t, h, "x-api-key", ""); rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}

func TestMiddleware_MissingKey_Unauthorized(t *testing.T) {
	h := auth.Middleware("apikey", "x-api-key", "secret", okHandler)
	rr := do(t, h, "x-api-key", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
}

func TestMiddleware_WrongKey_Unauthorized(t *testing.T) {
	h := auth.Middleware("apikey", "x-api-key", "secret", okHandler)
	if rr := do(t, h, "x-api-key", "not-the-secret"); rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rr.Code)
	}
}

func TestMiddleware_CorrectKey_PassesThrough(t *testing.T) {
	h := auth.Middleware("apikey", "x-api-key", "secret", okHandler)
	if rr := do(t, h, "x-api-key", "secret"); rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}

func TestMiddleware_CustomHeader(t *testing.T) {
	h := auth.Middleware("apikey", "x-rhythm-key", "secret", okHandler)

	if rr := do(t, h, "x-rhythm-key", "secret"); rr.Code != http.StatusOK {
		t.Errorf("custom header accepted key: got %d, want 200", rr.Code)
	}
	// The default header name is ignored when a custom one is configured.
	if rr := do(t, h, "x-api-key", "secret"); rr.Code != http.StatusUnauthorized {
		t.Errorf("key on wrong header: got %d, want 401", rr.Code)
	}
}
