package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	appctx "github.com/ligadigital/membercard/internal/context"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     ErrorDetail `json:"error"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScannerAuthMiddleware authenticates scanner devices. Scanners present a
// shared API key in X-API-Key and identify themselves in X-Scanner-ID; the
// key is checked against a bcrypt hash so the plaintext never lives in
// config files.
type ScannerAuthMiddleware struct {
	apiKeyHash string
}

// NewScannerAuthMiddleware creates a new ScannerAuthMiddleware instance
func NewScannerAuthMiddleware(apiKeyHash string) *ScannerAuthMiddleware {
	return &ScannerAuthMiddleware{
		apiKeyHash: apiKeyHash,
	}
}

// Authenticate validates the scanner API key and injects the scanner id
// into the request context.
func (m *ScannerAuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.apiKeyHash == "" {
			m.writeError(w, http.StatusServiceUnavailable, "SCANNER_AUTH_UNCONFIGURED", "Scanner authentication is not configured")
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			m.writeError(w, http.StatusUnauthorized, "API_KEY_MISSING", "X-API-Key header is required")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(m.apiKeyHash), []byte(apiKey)); err != nil {
			m.writeError(w, http.StatusUnauthorized, "API_KEY_INVALID", "Invalid API key")
			return
		}

		scannerID := r.Header.Get("X-Scanner-ID")
		if scannerID == "" {
			m.writeError(w, http.StatusBadRequest, "SCANNER_ID_MISSING", "X-Scanner-ID header is required")
			return
		}

		ctx := appctx.WithScannerID(r.Context(), scannerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeError writes a JSON error response
func (m *ScannerAuthMiddleware) writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	})
}
