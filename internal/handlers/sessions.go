package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nornex-as/portal/internal/auth"
	"github.com/nornex-as/portal/internal/models"
	"github.com/nornex-as/portal/internal/services"
	pkghttp "github.com/nornex-as/portal/pkg/http"
)

// SessionServiceInterface defines the interface for the device session registry
type SessionServiceInterface interface {
	List(ctx context.Context, customerID, currentSessionID string) ([]*services.SessionResponse, error)
	Terminate(ctx context.Context, customerID, sessionID string) error
}

// SessionHandler handles device session HTTP requests
type SessionHandler struct {
	service SessionServiceInterface
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(service SessionServiceInterface) *SessionHandler {
	return &SessionHandler{service: service}
}

// List returns the customer's live device sessions. The session behind the
// presented token is flagged as current.
// @Summary List device sessions
// @Security BearerAuth
// @Produce json
// @Success 200 {array} services.SessionResponse
// @Failure 401 {object} ErrorResponse
// @Router /account/sessions [get]
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	sessions, err := h.service.List(r.Context(), claims.UserID, claims.SessionID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, sessions)
}

// Terminate removes one device session. Terminating the current session logs
// this device out.
// @Summary Terminate device session
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /account/sessions/{id} [delete]
func (h *SessionHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		pkghttp.WriteBadRequest(w, "Session ID is required")
		return
	}

	if err := h.service.Terminate(r.Context(), claims.UserID, sessionID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Session not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
