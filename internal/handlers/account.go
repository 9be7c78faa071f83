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

// AccountServiceInterface defines the interface for account business logic
type AccountServiceInterface interface {
	GetProfile(ctx context.Context, customerID string) (*models.Customer, error)
	UpdateProfile(ctx context.Context, customerID string, update services.ProfileUpdate) (*models.Customer, error)
	UpdateCompanyProfile(ctx context.Context, customerID string, update services.CompanyUpdate) (*models.Customer, error)
}

// AccountHandler handles customer profile HTTP requests
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// UpdateProfileRequest represents the request body for a profile update.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

// UpdateCompanyRequest represents the request body for a company profile update
type UpdateCompanyRequest struct {
	CompanyName   string              `json:"company_name" validate:"required,min=1,max=200"`
	OrgNumber     string              `json:"org_number,omitempty" validate:"omitempty,len=9,numeric"`
	VATNumber     *string             `json:"vat_number,omitempty" validate:"omitempty,max=20"`
	Industry      *string             `json:"industry,omitempty" validate:"omitempty,max=100"`
	ContactPerson string              `json:"contact_person,omitempty" validate:"omitempty,max=200"`
	BillingStreet string              `json:"billing_street,omitempty" validate:"omitempty,max=200"`
	BillingZip    string              `json:"billing_zip,omitempty" validate:"omitempty,max=10"`
	BillingCity   string              `json:"billing_city,omitempty" validate:"omitempty,max=100"`
	Departments   []DepartmentRequest `json:"departments,omitempty" validate:"omitempty,dive"`
}

// DepartmentRequest represents one department in a company profile update
type DepartmentRequest struct {
	Name          string `json:"name" validate:"required,min=1,max=100"`
	EmployeeCount int    `json:"employee_count" validate:"gte=0"`
	Budget        int64  `json:"budget" validate:"gte=0"`
}

// GetProfile returns the authenticated customer's profile
// @Summary Get customer profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} services.CustomerResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /account/profile [get]
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	customer, err := h.service.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Customer not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, services.CustomerToResponse(customer))
}

// UpdateProfile updates the authenticated customer's profile fields
// @Summary Update customer profile
// @Accept json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile update"
// @Produce json
// @Success 200 {object} services.CustomerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /account/profile [put]
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), claims.UserID, services.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Customer not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, services.CustomerToResponse(updated))
}

// UpdateCompany replaces the company profile of a company account
// @Summary Update company profile
// @Accept json
// @Security BearerAuth
// @Param request body UpdateCompanyRequest true "Company profile update"
// @Produce json
// @Success 200 {object} services.CustomerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /account/company [put]
func (h *AccountHandler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req UpdateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	departments := make([]models.Department, 0, len(req.Departments))
	for _, d := range req.Departments {
		departments = append(departments, models.Department{
			Name:          d.Name,
			EmployeeCount: d.EmployeeCount,
			Budget:        d.Budget,
		})
	}

	updated, err := h.service.UpdateCompanyProfile(r.Context(), claims.UserID, services.CompanyUpdate{
		CompanyName:   req.CompanyName,
		OrgNumber:     req.OrgNumber,
		VATNumber:     req.VATNumber,
		Industry:      req.Industry,
		ContactPerson: req.ContactPerson,
		BillingStreet: req.BillingStreet,
		BillingZip:    req.BillingZip,
		BillingCity:   req.BillingCity,
		Departments:   departments,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrForbidden):
			pkghttp.WriteForbidden(w, "Private accounts cannot have a company profile")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, err.Error())
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Customer not found")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, services.CustomerToResponse(updated))
}
