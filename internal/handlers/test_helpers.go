package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/nornex-as/portal/internal/auth"
	"github.com/nornex-as/portal/internal/models"
	"github.com/nornex-as/portal/internal/services"
	pkghttp "github.com/nornex-as/portal/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds customer claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, customerID, email string) *http.Request {
	claims := &models.TokenClaims{
		UserID:    customerID,
		Email:     email,
		SessionID: "sess_test",
		Type:      "access",
	}
	ctx := context.WithValue(req.Context(), auth.CustomerContextKey, claims)
	return req.WithContext(ctx)
}

// WithURLParam injects a chi route parameter into the request context
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc        func(ctx context.Context, email, password, totpCode string, meta services.LoginMetadata) (*services.AuthResponse, error)
	RegisterFunc     func(ctx context.Context, input services.RegisterInput) (*models.Customer, error)
	RefreshTokenFunc func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	LogoutFunc       func(ctx context.Context, accessToken string) error
	LogoutAllFunc    func(ctx context.Context, customerID string) error
}

func (m *MockAuthService) Login(ctx context.Context, email, password, totpCode string, meta services.LoginMetadata) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, totpCode, meta)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Register(ctx context.Context, input services.RegisterInput) (*models.Customer, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, input)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Logout(ctx context.Context, accessToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, accessToken)
	}
	return nil
}

func (m *MockAuthService) LogoutAll(ctx context.Context, customerID string) error {
	if m.LogoutAllFunc != nil {
		return m.LogoutAllFunc(ctx, customerID)
	}
	return nil
}

// MockAddressService implements AddressServiceInterface for testing
type MockAddressService struct {
	ListAddressesFunc     func(ctx context.Context, customerID string) ([]*models.Address, error)
	AddAddressFunc        func(ctx context.Context, address *models.Address) (*models.Address, error)
	UpdateAddressFunc     func(ctx context.Context, address *models.Address) (*models.Address, error)
	RemoveAddressFunc     func(ctx context.Context, customerID, id string) error
	SetDefaultAddressFunc func(ctx context.Context, customerID, id, addressType string) error
}

func (m *MockAddressService) ListAddresses(ctx context.Context, customerID string) ([]*models.Address, error) {
	if m.ListAddressesFunc != nil {
		return m.ListAddressesFunc(ctx, customerID)
	}
	return []*models.Address{}, nil
}

func (m *MockAddressService) AddAddress(ctx context.Context, address *models.Address) (*models.Address, error) {
	if m.AddAddressFunc != nil {
		return m.AddAddressFunc(ctx, address)
	}
	return address, nil
}

func (m *MockAddressService) UpdateAddress(ctx context.Context, address *models.Address) (*models.Address, error) {
	if m.UpdateAddressFunc != nil {
		return m.UpdateAddressFunc(ctx, address)
	}
	return address, nil
}

func (m *MockAddressService) RemoveAddress(ctx context.Context, customerID, id string) error {
	if m.RemoveAddressFunc != nil {
		return m.RemoveAddressFunc(ctx, customerID, id)
	}
	return nil
}

func (m *MockAddressService) SetDefaultAddress(ctx context.Context, customerID, id, addressType string) error {
	if m.SetDefaultAddressFunc != nil {
		return m.SetDefaultAddressFunc(ctx, customerID, id, addressType)
	}
	return nil
}

// MockPasswordService implements PasswordServiceInterface for testing
type MockPasswordService struct {
	RequestChangeFunc func(ctx context.Context, customerID string) error
	ConfirmChangeFunc func(ctx context.Context, customerID, currentSessionID, pin, newPassword string) error
	CancelFunc        func(ctx context.Context, customerID string) error
	PendingFunc       func(ctx context.Context, customerID string) (bool, error)
}

func (m *MockPasswordService) RequestChange(ctx context.Context, customerID string) error {
	if m.RequestChangeFunc != nil {
		return m.RequestChangeFunc(ctx, customerID)
	}
	return nil
}

func (m *MockPasswordService) ConfirmChange(ctx context.Context, customerID, currentSessionID, pin, newPassword string) error {
	if m.ConfirmChangeFunc != nil {
		return m.ConfirmChangeFunc(ctx, customerID, currentSessionID, pin, newPassword)
	}
	return nil
}

func (m *MockPasswordService) Cancel(ctx context.Context, customerID string) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, customerID)
	}
	return nil
}

func (m *MockPasswordService) Pending(ctx context.Context, customerID string) (bool, error) {
	if m.PendingFunc != nil {
		return m.PendingFunc(ctx, customerID)
	}
	return false, nil
}
