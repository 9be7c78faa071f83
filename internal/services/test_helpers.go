package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nornex-as/portal/internal/models"
)

// MockCustomerRepository implements CustomerRepository for testing
type MockCustomerRepository struct {
	GetByIDFunc            func(ctx context.Context, id string) (*models.Customer, error)
	GetByEmailFunc         func(ctx context.Context, email string) (*models.Customer, error)
	CreateFunc             func(ctx context.Context, customer *models.Customer) (*models.Customer, error)
	UpdateFunc             func(ctx context.Context, id string, customer *models.Customer) (*models.Customer, error)
	DeleteFunc             func(ctx context.Context, id string) error
	UpdatePasswordFunc     func(ctx context.Context, id, passwordHash string) error
	TouchLastLoginFunc     func(ctx context.Context, id string, at time.Time) error
	SaveCompanyProfileFunc func(ctx context.Context, profile *models.CompanyProfile) error
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCustomerRepository) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockCustomerRepository) Create(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, customer)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCustomerRepository) Update(ctx context.Context, id string, customer *models.Customer) (*models.Customer, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, customer)
	}
	return customer, nil
}

func (m *MockCustomerRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockCustomerRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockCustomerRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if m.TouchLastLoginFunc != nil {
		return m.TouchLastLoginFunc(ctx, id, at)
	}
	return nil
}

func (m *MockCustomerRepository) SaveCompanyProfile(ctx context.Context, profile *models.CompanyProfile) error {
	if m.SaveCompanyProfileFunc != nil {
		return m.SaveCompanyProfileFunc(ctx, profile)
	}
	return nil
}

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	CreateFunc              func(ctx context.Context, session *models.Session) error
	GetByIDFunc             func(ctx context.Context, customerID, sessionID string) (*models.Session, error)
	ListByCustomerFunc      func(ctx context.Context, customerID string) ([]*models.Session, error)
	TouchFunc               func(ctx context.Context, customerID, sessionID string, at time.Time) error
	DeleteFunc              func(ctx context.Context, customerID, sessionID string) error
	DeleteAllByCustomerFunc func(ctx context.Context, customerID string) error
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, customerID, sessionID string) (*models.Session, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, customerID, sessionID)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionRepository) ListByCustomer(ctx context.Context, customerID string) ([]*models.Session, error) {
	if m.ListByCustomerFunc != nil {
		return m.ListByCustomerFunc(ctx, customerID)
	}
	return []*models.Session{}, nil
}

func (m *MockSessionRepository) Touch(ctx context.Context, customerID, sessionID string, at time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, customerID, sessionID, at)
	}
	return nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, customerID, sessionID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, customerID, sessionID)
	}
	return nil
}

func (m *MockSessionRepository) DeleteAllByCustomer(ctx context.Context, customerID string) error {
	if m.DeleteAllByCustomerFunc != nil {
		return m.DeleteAllByCustomerFunc(ctx, customerID)
	}
	return nil
}

// MockTokenRevocationRepository implements TokenRevocationRepository for testing
type MockTokenRevocationRepository struct {
	RevokeTokenFunc    func(ctx context.Context, jti, customerID, tokenType string, expiresAt time.Time, reason string) error
	IsTokenRevokedFunc func(ctx context.Context, jti string) (bool, error)
}

func (m *MockTokenRevocationRepository) RevokeToken(ctx context.Context, jti, customerID, tokenType string, expiresAt time.Time, reason string) error {
	if m.RevokeTokenFunc != nil {
		return m.RevokeTokenFunc(ctx, jti, customerID, tokenType, expiresAt, reason)
	}
	return nil
}

func (m *MockTokenRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if m.IsTokenRevokedFunc != nil {
		return m.IsTokenRevokedFunc(ctx, jti)
	}
	return false, nil
}

// MockNotificationRepository implements NotificationRepository for testing.
// With no funcs set it behaves like an empty in-memory feed.
type MockNotificationRepository struct {
	ListByCustomerFunc func(ctx context.Context, customerID string, limit, offset int) ([]*models.Notification, error)
	CountUnreadFunc    func(ctx context.Context, customerID string) (int, error)
	CreateFunc         func(ctx context.Context, n *models.Notification) (*models.Notification, error)
	MarkReadFunc       func(ctx context.Context, customerID, id string) error
	MarkAllReadFunc    func(ctx context.Context, customerID string) error
	DeleteFunc         func(ctx context.Context, customerID, id string) error
}

func (m *MockNotificationRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*models.Notification, error) {
	if m.ListByCustomerFunc != nil {
		return m.ListByCustomerFunc(ctx, customerID, limit, offset)
	}
	return []*models.Notification{}, nil
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, customerID string) (int, error) {
	if m.CountUnreadFunc != nil {
		return m.CountUnreadFunc(ctx, customerID)
	}
	return 0, nil
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, n)
	}
	n.ID = fmt.Sprintf("notif_%d", time.Now().UnixNano())
	n.CreatedAt = time.Now()
	return n, nil
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, customerID, id string) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, customerID, id)
	}
	return nil
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, customerID string) error {
	if m.MarkAllReadFunc != nil {
		return m.MarkAllReadFunc(ctx, customerID)
	}
	return nil
}

func (m *MockNotificationRepository) Delete(ctx context.Context, customerID, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, customerID, id)
	}
	return nil
}

// MockAddressRepository implements AddressRepository for testing
type MockAddressRepository struct {
	ListByCustomerFunc func(ctx context.Context, customerID string) ([]*models.Address, error)
	GetByIDFunc        func(ctx context.Context, customerID, id string) (*models.Address, error)
	CreateFunc         func(ctx context.Context, address *models.Address) (*models.Address, error)
	UpdateFunc         func(ctx context.Context, address *models.Address) (*models.Address, error)
	DeleteFunc         func(ctx context.Context, customerID, id string) error
	SetDefaultFunc     func(ctx context.Context, customerID, id, addressType string) error
}

func (m *MockAddressRepository) ListByCustomer(ctx context.Context, customerID string) ([]*models.Address, error) {
	if m.ListByCustomerFunc != nil {
		return m.ListByCustomerFunc(ctx, customerID)
	}
	return []*models.Address{}, nil
}

func (m *MockAddressRepository) GetByID(ctx context.Context, customerID, id string) (*models.Address, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, customerID, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAddressRepository) Create(ctx context.Context, address *models.Address) (*models.Address, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, address)
	}
	address.ID = fmt.Sprintf("addr_%d", time.Now().UnixNano())
	return address, nil
}

func (m *MockAddressRepository) Update(ctx context.Context, address *models.Address) (*models.Address, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, address)
	}
	return address, nil
}

func (m *MockAddressRepository) Delete(ctx context.Context, customerID, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, customerID, id)
	}
	return nil
}

func (m *MockAddressRepository) SetDefault(ctx context.Context, customerID, id, addressType string) error {
	if m.SetDefaultFunc != nil {
		return m.SetDefaultFunc(ctx, customerID, id, addressType)
	}
	return nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendPasswordChangePINFunc func(ctx context.Context, email, pin string, validFor time.Duration) error
}

func (m *MockEmailService) SendPasswordChangePIN(ctx context.Context, email, pin string, validFor time.Duration) error {
	if m.SendPasswordChangePINFunc != nil {
		return m.SendPasswordChangePINFunc(ctx, email, pin, validFor)
	}
	return nil
}

// ============================================================================
// Test Fixtures
// ============================================================================

// NewTestCustomer creates an active private customer
func NewTestCustomer(id, email, firstName, lastName string) *models.Customer {
	now := time.Now()
	return &models.Customer{
		ID:          id,
		Email:       email,
		FirstName:   firstName,
		LastName:    lastName,
		AccountType: models.AccountTypePrivate,
		Status:      "active",
		TokenKey:    "test_token_key",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewTestCompanyCustomer creates an active company customer with a profile
func NewTestCompanyCustomer(id, email, firstName, lastName, companyName string) *models.Customer {
	customer := NewTestCustomer(id, email, firstName, lastName)
	customer.AccountType = models.AccountTypeCompany
	customer.Company = &models.CompanyProfile{
		CustomerID:    id,
		CompanyName:   companyName,
		OrgNumber:     "974760673",
		ContactPerson: customer.FullName(),
	}
	return customer
}

// NewTestCustomerWithPassword creates a customer with a password hash
func NewTestCustomerWithPassword(id, email, firstName, lastName, passwordHash string) *models.Customer {
	customer := NewTestCustomer(id, email, firstName, lastName)
	customer.PasswordHash = passwordHash
	return customer
}

// NewTestCustomerWithStatus creates a customer with the given account status
func NewTestCustomerWithStatus(id, email, firstName, lastName, status string) *models.Customer {
	customer := NewTestCustomer(id, email, firstName, lastName)
	customer.Status = status
	return customer
}

// NewTestSession creates a device session
func NewTestSession(id, customerID, device string) *models.Session {
	now := time.Now()
	return &models.Session{
		ID:         id,
		CustomerID: customerID,
		Device:     device,
		IPAddress:  "84.212.x.x",
		CreatedAt:  now,
		LastActive: now,
	}
}

// NewTestNotification creates an unread notification
func NewTestNotification(id, customerID, notificationType, title string) *models.Notification {
	return &models.Notification{
		ID:         id,
		CustomerID: customerID,
		Type:       notificationType,
		Title:      title,
		Body:       "test body",
		IsRead:     false,
		CreatedAt:  time.Now(),
	}
}

// NewTestAddress creates an address book entry
func NewTestAddress(id, customerID, addressType string, isDefault bool) *models.Address {
	now := time.Now()
	return &models.Address{
		ID:         id,
		CustomerID: customerID,
		Type:       addressType,
		Label:      "Hjemme",
		Street:     "Storgata 1",
		PostalCode: "0155",
		City:       "Oslo",
		Country:    "Norge",
		IsDefault:  isDefault,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
