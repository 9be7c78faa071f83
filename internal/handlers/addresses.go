package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nornex-as/portal/internal/auth"
	"github.com/nornex-as/portal/internal/models"
	pkghttp "github.com/nornex-as/portal/pkg/http"
)

// AddressServiceInterface defines the interface for address book business logic
type AddressServiceInterface interface {
	ListAddresses(ctx context.Context, customerID string) ([]*models.Address, error)
	AddAddress(ctx context.Context, address *models.Address) (*models.Address, error)
	UpdateAddress(ctx context.Context, address *models.Address) (*models.Address, error)
	RemoveAddress(ctx context.Context, customerID, id string) error
	SetDefaultAddress(ctx context.Context, customerID, id, addressType string) error
}

// AddressHandler handles address book HTTP requests
type AddressHandler struct {
	service AddressServiceInterface
}

// NewAddressHandler creates a new AddressHandler
func NewAddressHandler(service AddressServiceInterface) *AddressHandler {
	return &AddressHandler{service: service}
}

// AddressRequest represents the request body for creating or updating an address
type AddressRequest struct {
	Type       string `json:"type" validate:"required,oneof=shipping billing"`
	Label      string `json:"label,omitempty" validate:"omitempty,max=50"`
	Street     string `json:"street" validate:"required,min=1,max=200"`
	PostalCode string `json:"postal_code" validate:"required,min=4,max=10"`
	City       string `json:"city" validate:"required,min=1,max=100"`
	Country    string `json:"country,omitempty" validate:"omitempty,max=100"`
}

// SetDefaultRequest represents the request body for changing the default address
type SetDefaultRequest struct {
	Type string `json:"type" validate:"required,oneof=shipping billing"`
}

// AddressResponse represents an address in the HTTP response
type AddressResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Label      string `json:"label,omitempty"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"is_default"`
	CreatedAt  string `json:"created_at"`
}

func addressToResponse(a *models.Address) *AddressResponse {
	return &AddressResponse{
		ID:         a.ID,
		Type:       a.Type,
		Label:      a.Label,
		Street:     a.Street,
		PostalCode: a.PostalCode,
		City:       a.City,
		Country:    a.Country,
		IsDefault:  a.IsDefault,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
}

// List returns the customer's address book
// @Summary List addresses
// @Security BearerAuth
// @Produce json
// @Success 200 {array} AddressResponse
// @Failure 401 {object} ErrorResponse
// @Router /account/addresses [get]
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	addresses, err := h.service.ListAddresses(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	responses := make([]*AddressResponse, 0, len(addresses))
	for _, a := range addresses {
		responses = append(responses, addressToResponse(a))
	}

	pkghttp.WriteJSON(w, http.StatusOK, responses)
}

// Create adds an address to the customer's address book
// @Summary Add address
// @Accept json
// @Security BearerAuth
// @Param request body AddressRequest true "Address"
// @Produce json
// @Success 201 {object} AddressResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /account/addresses [post]
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req AddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	country := req.Country
	if country == "" {
		country = "Norge"
	}

	created, err := h.service.AddAddress(r.Context(), &models.Address{
		CustomerID: claims.UserID,
		Type:       req.Type,
		Label:      req.Label,
		Street:     req.Street,
		PostalCode: req.PostalCode,
		City:       req.City,
		Country:    country,
	})
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, addressToResponse(created))
}

// Update modifies an existing address
// @Summary Update address
// @Accept json
// @Security BearerAuth
// @Param id path string true "Address ID"
// @Param request body AddressRequest true "Address"
// @Produce json
// @Success 200 {object} AddressResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /account/addresses/{id} [put]
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	addressID := chi.URLParam(r, "id")
	if addressID == "" {
		pkghttp.WriteBadRequest(w, "Address ID is required")
		return
	}

	var req AddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	updated, err := h.service.UpdateAddress(r.Context(), &models.Address{
		ID:         addressID,
		CustomerID: claims.UserID,
		Type:       req.Type,
		Label:      req.Label,
		Street:     req.Street,
		PostalCode: req.PostalCode,
		City:       req.City,
		Country:    req.Country,
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Address not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, addressToResponse(updated))
}

// Delete removes an address from the address book
// @Summary Delete address
// @Security BearerAuth
// @Param id path string true "Address ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /account/addresses/{id} [delete]
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	addressID := chi.URLParam(r, "id")
	if addressID == "" {
		pkghttp.WriteBadRequest(w, "Address ID is required")
		return
	}

	if err := h.service.RemoveAddress(r.Context(), claims.UserID, addressID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Address not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetDefault makes an address the default for its type
// @Summary Set default address
// @Accept json
// @Security BearerAuth
// @Param id path string true "Address ID"
// @Param request body SetDefaultRequest true "Address type"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /account/addresses/{id}/default [post]
func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	addressID := chi.URLParam(r, "id")
	if addressID == "" {
		pkghttp.WriteBadRequest(w, "Address ID is required")
		return
	}

	var req SetDefaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.SetDefaultAddress(r.Context(), claims.UserID, addressID, req.Type)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Address not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
