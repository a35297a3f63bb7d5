package card

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ligadigital/membercard/internal/luhn"
	"github.com/ligadigital/membercard/internal/metrics"
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

// ValidationResponse represents the result of a card number validation
type ValidationResponse struct {
	Number string `json:"number"`
	Valid  bool   `json:"valid"`
}

// Handler handles HTTP requests for card endpoints
type Handler struct {
	cardService *Service
	logger      *slog.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(cardService *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cardService: cardService,
		logger:      logger,
	}
}

// Issue handles POST /api/v1/members/{id}/cards
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid member id")
		return
	}

	card, err := h.cardService.Issue(r.Context(), memberID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"card": card,
	})
}

// List handles GET /api/v1/members/{id}/cards
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid member id")
		return
	}

	cards, err := h.cardService.List(r.Context(), memberID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"cards": cards,
	})
}

// Validate handles GET /api/v1/cards/validate?number=
// Validation fails closed: any malformed input is reported as invalid, never
// as an error.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("number")
	if number == "" {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "number query parameter is required")
		return
	}

	valid := luhn.Valid(number)
	if valid {
		metrics.LuhnValidationsTotal.WithLabelValues("true").Inc()
	} else {
		metrics.LuhnValidationsTotal.WithLabelValues("false").Inc()
	}

	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"validation": ValidationResponse{
			Number: luhn.Strip(number),
			Valid:  valid,
		},
	})
}

// handleServiceError maps service errors to HTTP responses
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMemberNotFound):
		h.writeError(w, http.StatusNotFound, CodeMemberNotFound, "Member not found")
	case errors.Is(err, ErrMemberInactive):
		h.writeError(w, http.StatusConflict, CodeMemberInactive, "Member account is inactive")
	case errors.Is(err, ErrCardNotFound):
		h.writeError(w, http.StatusNotFound, CodeCardNotFound, "Card not found")
	case errors.Is(err, ErrGenerationExhausted):
		h.writeError(w, http.StatusServiceUnavailable, CodeGenerationExhausted, "Card number generation temporarily unavailable, please retry")
	default:
		h.logger.Error("Card request failed", "error", err)
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
