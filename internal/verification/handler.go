package verification

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	appctx "github.com/ligadigital/membercard/internal/context"
)

// APIResponse represents the standard API response format
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError represents the error detail in API response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IssueTokenRequest represents a token issue request
type IssueTokenRequest struct {
	MemberID string `json:"member_id" validate:"required,uuid"`
	Kind     string `json:"kind" validate:"required,oneof=digital-card match-verification"`
	Role     string `json:"role" validate:"omitempty,max=32"`
}

// ScanRequest represents a scan verification request
type ScanRequest struct {
	Token string `json:"token" validate:"required"`
}

// Handler handles HTTP requests for verification endpoints
type Handler struct {
	verificationService *Service
	validator           *validator.Validate
	logger              *slog.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(verificationService *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		verificationService: verificationService,
		validator:           validator.New(),
		logger:              logger,
	}
}

// IssueToken handles POST /api/v1/verifications/tokens
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req IssueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Validation failed: "+err.Error())
		return
	}

	memberID, err := uuid.Parse(req.MemberID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid member id")
		return
	}

	issued, err := h.verificationService.IssueToken(r.Context(), memberID, TokenKind(req.Kind), req.Role)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"token": issued,
	})
}

// Scan handles POST /api/v1/verifications/scan. The scanner identity is
// injected by the API key middleware.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	scannerID, ok := appctx.ExtractScannerID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Scanner identity missing")
		return
	}

	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Validation failed: "+err.Error())
		return
	}

	result := h.verificationService.VerifyScan(r.Context(), scannerID, req.Token)

	// Rejected scans are still HTTP 200; the outcome lives in the result.
	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"scan": result,
	})
}

// ScanHistory handles GET /api/v1/members/{id}/scans
func (h *Handler) ScanHistory(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid member id")
		return
	}

	history, err := h.verificationService.ScanHistory(r.Context(), memberID, 50)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"scans": history,
	})
}

// handleServiceError maps service errors to HTTP responses
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMemberNotFound):
		h.writeError(w, http.StatusNotFound, CodeMemberNotFound, "Member not found")
	default:
		h.logger.Error("Verification request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeSuccess writes a JSON success response
func (h *Handler) writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	})
}
