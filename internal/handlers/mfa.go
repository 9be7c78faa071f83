package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nornex-as/portal/internal/auth"
	"github.com/nornex-as/portal/internal/models"
	"github.com/nornex-as/portal/internal/services"
	pkghttp "github.com/nornex-as/portal/pkg/http"
)

// MFAServiceInterface defines the interface for MFA management
type MFAServiceInterface interface {
	Setup(ctx context.Context, customerID string) (*services.MFASetupResponse, error)
	Enable(ctx context.Context, customerID, code string) error
	Disable(ctx context.Context, customerID, code string) error
}

// MFAHandler handles MFA management HTTP requests
type MFAHandler struct {
	service MFAServiceInterface
}

// NewMFAHandler creates a new MFAHandler
func NewMFAHandler(service MFAServiceInterface) *MFAHandler {
	return &MFAHandler{service: service}
}

// MFACodeRequest represents a request carrying a TOTP code
type MFACodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// Setup generates a TOTP secret and QR code for the authenticator app
// @Summary Initiate MFA setup
// @Security BearerAuth
// @Produce json
// @Success 200 {object} services.MFASetupResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /account/mfa/setup [post]
func (h *MFAHandler) Setup(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	resp, err := h.service.Setup(r.Context(), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "MFA is already enabled")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Customer not found")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Enable activates MFA after verifying a code from the authenticator app
// @Summary Enable MFA
// @Accept json
// @Security BearerAuth
// @Param request body MFACodeRequest true "TOTP code"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /account/mfa/enable [post]
func (h *MFAHandler) Enable(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req MFACodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Enable(r.Context(), claims.UserID, req.Code); err != nil {
		switch {
		case errors.Is(err, models.ErrMFAInvalidCode):
			pkghttp.WriteError(w, http.StatusBadRequest, "mfa_invalid_code", "Invalid MFA code")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "MFA is already enabled")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "MFA setup has not been initiated")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Disable turns MFA off after verifying a code
// @Summary Disable MFA
// @Accept json
// @Security BearerAuth
// @Param request body MFACodeRequest true "TOTP code"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /account/mfa/disable [post]
func (h *MFAHandler) Disable(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req MFACodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Disable(r.Context(), claims.UserID, req.Code); err != nil {
		switch {
		case errors.Is(err, models.ErrMFAInvalidCode):
			pkghttp.WriteError(w, http.StatusBadRequest, "mfa_invalid_code", "Invalid MFA code")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "MFA is not enabled")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
