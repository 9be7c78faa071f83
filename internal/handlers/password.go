package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nornex-as/portal/internal/auth"
	"github.com/nornex-as/portal/internal/models"
	pkgauth "github.com/nornex-as/portal/pkg/auth"
	pkghttp "github.com/nornex-as/portal/pkg/http"
)

// PasswordServiceInterface defines the interface for the password-change workflow
type PasswordServiceInterface interface {
	RequestChange(ctx context.Context, customerID string) error
	ConfirmChange(ctx context.Context, customerID, currentSessionID, pin, newPassword string) error
	Cancel(ctx context.Context, customerID string) error
	Pending(ctx context.Context, customerID string) (bool, error)
}

// PasswordHandler handles password change HTTP requests
type PasswordHandler struct {
	service PasswordServiceInterface
}

// NewPasswordHandler creates a new PasswordHandler
func NewPasswordHandler(service PasswordServiceInterface) *PasswordHandler {
	return &PasswordHandler{service: service}
}

// ConfirmPasswordRequest represents the request body for confirming a
// password change with the e-mailed PIN
type ConfirmPasswordRequest struct {
	PIN         string `json:"pin" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required"`
}

// StatusResponse reports whether a password change awaits confirmation
type StatusResponse struct {
	Pending bool `json:"pending"`
}

// Request starts a password change by mailing a confirmation PIN
// @Summary Request password change
// @Security BearerAuth
// @Success 202
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /account/password/request [post]
func (h *PasswordHandler) Request(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	if err := h.service.RequestChange(r.Context(), claims.UserID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Customer not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "A confirmation PIN has been sent to your email address.",
	})
}

// Confirm verifies the PIN and commits the new password
// @Summary Confirm password change
// @Accept json
// @Security BearerAuth
// @Param request body ConfirmPasswordRequest true "PIN and new password"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /account/password/confirm [post]
func (h *PasswordHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req ConfirmPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.ConfirmChange(r.Context(), claims.UserID, claims.SessionID, req.PIN, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrPINNotFound):
			pkghttp.WriteError(w, http.StatusGone, "pin_expired", "No pending password change, or the PIN has expired")
		case errors.Is(err, models.ErrPINInvalid):
			pkghttp.WriteError(w, http.StatusBadRequest, "pin_invalid", "Incorrect PIN")
		case errors.Is(err, models.ErrPINMaxAttempts):
			pkghttp.WriteTooManyRequests(w, "Too many incorrect attempts. Request a new PIN.")
		default:
			var pve *pkgauth.PasswordValidationError
			if errors.As(err, &pve) {
				pkghttp.WriteBadRequest(w, pve.Error())
				return
			}
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Cancel aborts a pending password change
// @Summary Cancel password change
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Router /account/password/cancel [post]
func (h *PasswordHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	if err := h.service.Cancel(r.Context(), claims.UserID); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Status reports whether a password change awaits PIN confirmation
// @Summary Password change status
// @Security BearerAuth
// @Produce json
// @Success 200 {object} StatusResponse
// @Failure 401 {object} ErrorResponse
// @Router /account/password/status [get]
func (h *PasswordHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	pending, err := h.service.Pending(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, StatusResponse{Pending: pending})
}
