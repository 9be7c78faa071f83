package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nornex-as/portal/internal/models"
	"github.com/nornex-as/portal/internal/services"
	pkghttp "github.com/nornex-as/portal/pkg/http"
)

// CompanyLookupInterface defines the interface for registry lookups
type CompanyLookupInterface interface {
	Lookup(ctx context.Context, orgNumber string) (*services.CompanyLookupResult, error)
}

// CompanyHandler handles business registry lookup requests, used by the
// registration form to prefill company details.
type CompanyHandler struct {
	service CompanyLookupInterface
}

// NewCompanyHandler creates a new CompanyHandler
func NewCompanyHandler(service CompanyLookupInterface) *CompanyHandler {
	return &CompanyHandler{service: service}
}

// Lookup resolves an organization number against the business registry
// @Summary Look up company by organization number
// @Param orgNumber path string true "Nine-digit organization number"
// @Produce json
// @Success 200 {object} services.CompanyLookupResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /companies/{orgNumber} [get]
func (h *CompanyHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	orgNumber := chi.URLParam(r, "orgNumber")
	if orgNumber == "" {
		pkghttp.WriteBadRequest(w, "Organization number is required")
		return
	}

	result, err := h.service.Lookup(r.Context(), orgNumber)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid organization number")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Company not found")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}
