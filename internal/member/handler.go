package member

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
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

// CreateMemberRequest represents a member creation request
type CreateMemberRequest struct {
	DisplayName      string     `json:"display_name" validate:"required,min=1,max=100"`
	MembershipExpiry *time.Time `json:"membership_expiry" validate:"omitempty"`
}

// UpdateStatusRequest represents a status update request
type UpdateStatusRequest struct {
	Status   string `json:"status" validate:"required,oneof=active suspended expired revoked"`
	IsActive *bool  `json:"is_active" validate:"required"`
}

// SuspendRequest represents a suspension creation request
type SuspendRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason    string `json:"reason" validate:"omitempty,max=200"`
}

// Handler handles HTTP requests for member endpoints
type Handler struct {
	memberService *Service
	validator     *validator.Validate
	logger        *slog.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(memberService *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		memberService: memberService,
		validator:     validator.New(),
		logger:        logger,
	}
}

// Create handles POST /api/v1/members
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Validation failed: "+err.Error())
		return
	}

	member, err := h.memberService.Create(r.Context(), req.DisplayName, req.MembershipExpiry)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"member": member,
	})
}

// Get handles GET /api/v1/members/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid member id")
		return
	}

	member, err := h.memberService.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"member": member,
	})
}

// UpdateStatus handles PATCH /api/v1/members/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid member id")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Validation failed: "+err.Error())
		return
	}

	member, err := h.memberService.UpdateStatus(r.Context(), id, req.Status, *req.IsActive)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"member": member,
	})
}

// Suspend handles POST /api/v1/members/{id}/suspensions
func (h *Handler) Suspend(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid member id")
		return
	}

	var req SuspendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Validation failed: "+err.Error())
		return
	}

	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)

	suspension, err := h.memberService.Suspend(r.Context(), id, start, end, req.Reason)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeSuccess(w, http.StatusCreated, map[string]interface{}{
		"suspension": suspension,
	})
}

// ListSuspensions handles GET /api/v1/members/{id}/suspensions
func (h *Handler) ListSuspensions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid member id")
		return
	}

	suspensions, err := h.memberService.ListSuspensions(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, map[string]interface{}{
		"suspensions": suspensions,
	})
}

// handleServiceError maps service errors to HTTP responses
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMemberNotFound):
		h.writeError(w, http.StatusNotFound, CodeMemberNotFound, "Member not found")
	case errors.Is(err, ErrInvalidStatus):
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid membership status")
	case errors.Is(err, ErrInvalidDateSpan):
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "End date must not precede start date")
	default:
		h.logger.Error("Member request failed", "error", err)
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
