package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nornex-as/portal/internal/models"
)

// AddressRepository defines the interface for address book data access
type AddressRepository interface {
	ListByCustomer(ctx context.Context, customerID string) ([]*models.Address, error)
	GetByID(ctx context.Context, customerID, id string) (*models.Address, error)
	Create(ctx context.Context, address *models.Address) (*models.Address, error)
	Update(ctx context.Context, address *models.Address) (*models.Address, error)
	Delete(ctx context.Context, customerID, id string) error
	SetDefault(ctx context.Context, customerID, id, addressType string) error
}

// ProfileUpdate carries the partial profile fields of an update request.
// Nil fields are left unchanged.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// CompanyUpdate carries a full replacement of the company profile
type CompanyUpdate struct {
	CompanyName   string
	OrgNumber     string
	VATNumber     *string
	Industry      *string
	ContactPerson string
	BillingStreet string
	BillingZip    string
	BillingCity   string
	Departments   []models.Department
}

// AccountService handles customer profile and address book business logic
type AccountService struct {
	repo        CustomerRepository
	addressRepo AddressRepository
	logger      *slog.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(repo CustomerRepository, addressRepo AddressRepository, logger *slog.Logger) *AccountService {
	return &AccountService{
		repo:        repo,
		addressRepo: addressRepo,
		logger:      logger,
	}
}

// GetProfile retrieves the customer profile
func (s *AccountService) GetProfile(ctx context.Context, customerID string) (*models.Customer, error) {
	customer, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get customer", slog.String("customer_id", customerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return customer, nil
}

// UpdateProfile shallow-merges the supplied fields into the profile
func (s *AccountService) UpdateProfile(ctx context.Context, customerID string, update ProfileUpdate) (*models.Customer, error) {
	customer, err := s.GetProfile(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		if name := strings.TrimSpace(*update.FirstName); name != "" {
			customer.FirstName = name
		}
	}
	if update.LastName != nil {
		if name := strings.TrimSpace(*update.LastName); name != "" {
			customer.LastName = name
		}
	}
	if update.Phone != nil {
		if phone := strings.TrimSpace(*update.Phone); phone != "" {
			customer.Phone = &phone
		} else {
			customer.Phone = nil
		}
	}

	updated, err := s.repo.Update(ctx, customerID, customer)
	if err != nil {
		s.logger.Error("failed to update customer", slog.String("customer_id", customerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("customer profile updated", slog.String("customer_id", customerID))
	return updated, nil
}

// UpdateCompanyProfile replaces the company profile of a company account.
// Private accounts cannot carry one.
func (s *AccountService) UpdateCompanyProfile(ctx context.Context, customerID string, update CompanyUpdate) (*models.Customer, error) {
	customer, err := s.GetProfile(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if !customer.IsCompany() {
		return nil, fmt.Errorf("%w: private account cannot have a company profile", models.ErrForbidden)
	}

	companyName := strings.TrimSpace(update.CompanyName)
	if companyName == "" {
		return nil, fmt.Errorf("%w: company name is required", models.ErrBadRequest)
	}

	orgNumber := strings.TrimSpace(update.OrgNumber)
	if orgNumber != "" && !ValidOrgNumber(orgNumber) {
		return nil, fmt.Errorf("%w: invalid organization number", models.ErrBadRequest)
	}

	contactPerson := strings.TrimSpace(update.ContactPerson)
	if contactPerson == "" {
		contactPerson = customer.FullName()
	}

	profile := &models.CompanyProfile{
		CustomerID:    customerID,
		CompanyName:   companyName,
		OrgNumber:     orgNumber,
		VATNumber:     update.VATNumber,
		Industry:      update.Industry,
		ContactPerson: contactPerson,
		BillingStreet: update.BillingStreet,
		BillingZip:    update.BillingZip,
		BillingCity:   update.BillingCity,
		Departments:   update.Departments,
	}

	if err := s.repo.SaveCompanyProfile(ctx, profile); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to save company profile", slog.String("customer_id", customerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("company profile updated", slog.String("customer_id", customerID))
	return s.GetProfile(ctx, customerID)
}

// ListAddresses returns the customer's address book
func (s *AccountService) ListAddresses(ctx context.Context, customerID string) ([]*models.Address, error) {
	addresses, err := s.addressRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		s.logger.Error("failed to list addresses", slog.String("customer_id", customerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return addresses, nil
}

// AddAddress adds an address to the customer's address book
func (s *AccountService) AddAddress(ctx context.Context, address *models.Address) (*models.Address, error) {
	if !models.ValidAddressType(address.Type) {
		return nil, fmt.Errorf("%w: unknown address type %q", models.ErrBadRequest, address.Type)
	}

	// The first address of a type becomes the default automatically
	existing, err := s.addressRepo.ListByCustomer(ctx, address.CustomerID)
	if err != nil {
		s.logger.Error("failed to list addresses", slog.String("customer_id", address.CustomerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	hasType := false
	for _, a := range existing {
		if a.Type == address.Type {
			hasType = true
			break
		}
	}
	if !hasType {
		address.IsDefault = true
	}

	created, err := s.addressRepo.Create(ctx, address)
	if err != nil {
		s.logger.Error("failed to create address", slog.String("customer_id", address.CustomerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("address added",
		slog.String("customer_id", address.CustomerID),
		slog.String("address_id", created.ID),
		slog.String("type", created.Type))
	return created, nil
}

// UpdateAddress modifies an address. The type of an address is fixed after
// creation; changing it would silently move default flags between scopes.
func (s *AccountService) UpdateAddress(ctx context.Context, address *models.Address) (*models.Address, error) {
	existing, err := s.addressRepo.GetByID(ctx, address.CustomerID, address.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get address", slog.String("address_id", address.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	address.Type = existing.Type

	updated, err := s.addressRepo.Update(ctx, address)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update address", slog.String("address_id", address.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return updated, nil
}

// RemoveAddress deletes an address. No cascading effects on other entities.
func (s *AccountService) RemoveAddress(ctx context.Context, customerID, id string) error {
	err := s.addressRepo.Delete(ctx, customerID, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete address", slog.String("address_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// SetDefaultAddress makes the address the default for the given type.
// Addresses of the other type are untouched; after the call exactly one
// address of that type is the default.
func (s *AccountService) SetDefaultAddress(ctx context.Context, customerID, id, addressType string) error {
	if !models.ValidAddressType(addressType) {
		return fmt.Errorf("%w: unknown address type %q", models.ErrBadRequest, addressType)
	}

	err := s.addressRepo.SetDefault(ctx, customerID, id, addressType)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to set default address",
			slog.String("customer_id", customerID),
			slog.String("address_id", id),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("default address changed",
		slog.String("customer_id", customerID),
		slog.String("address_id", id),
		slog.String("type", addressType))
	return nil
}
