package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	appctx "github.com/ligadigital/membercard/internal/context"
)

const testAPIKey = "scanner-shared-key"

func newAuthMiddleware(t *testing.T) *ScannerAuthMiddleware {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAPIKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword() error = %v", err)
	}
	return NewScannerAuthMiddleware(string(hash))
}

func TestScannerAuthValidKey(t *testing.T) {
	m := newAuthMiddleware(t)

	var gotScannerID string
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotScannerID, _ = appctx.ExtractScannerID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/scan", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("X-Scanner-ID", "gate-1")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotScannerID != "gate-1" {
		t.Errorf("scanner id in context = %q, want gate-1", gotScannerID)
	}
}

func TestScannerAuthRejections(t *testing.T) {
	m := newAuthMiddleware(t)

	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached despite rejected auth")
	}))

	tests := []struct {
		name       string
		apiKey     string
		scannerID  string
		wantStatus int
	}{
		{"missing key", "", "gate-1", http.StatusUnauthorized},
		{"wrong key", "wrong", "gate-1", http.StatusUnauthorized},
		{"missing scanner id", testAPIKey, "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/scan", nil)
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			if tt.scannerID != "" {
				req.Header.Set("X-Scanner-ID", tt.scannerID)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestScannerAuthUnconfigured(t *testing.T) {
	m := NewScannerAuthMiddleware("")

	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without configured auth")
	}))

	req := httptest.NewRequest(http.MethodPost, "/scan", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestScanRateLimiter(t *testing.T) {
	rl := NewScanRateLimiter(2, time.Minute)

	handler := rl.RateLimitScan(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	doScan := func(scannerID string) int {
		req := httptest.NewRequest(http.MethodPost, "/scan", nil)
		req = req.WithContext(appctx.WithScannerID(req.Context(), scannerID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := doScan("gate-1"); code != http.StatusOK {
		t.Errorf("first scan status = %d, want %d", code, http.StatusOK)
	}
	if code := doScan("gate-1"); code != http.StatusOK {
		t.Errorf("second scan status = %d, want %d", code, http.StatusOK)
	}
	if code := doScan("gate-1"); code != http.StatusTooManyRequests {
		t.Errorf("third scan status = %d, want %d", code, http.StatusTooManyRequests)
	}

	// Other scanners are unaffected.
	if code := doScan("gate-2"); code != http.StatusOK {
		t.Errorf("other scanner status = %d, want %d", code, http.StatusOK)
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond)

	if !rl.Allow("key") {
		t.Fatal("first request denied")
	}
	if rl.Allow("key") {
		t.Fatal("second request allowed within window")
	}

	time.Sleep(60 * time.Millisecond)

	if !rl.Allow("key") {
		t.Error("request denied after window expiry")
	}
}
