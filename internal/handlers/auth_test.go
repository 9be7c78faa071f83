package handlers_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nornex-as/portal/internal/handlers"
	"github.com/nornex-as/portal/internal/models"
	"github.com/nornex-as/portal/internal/services"
	pkghttp "github.com/nornex-as/portal/pkg/http"
)

func TestLogin_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, totpCode string, meta services.LoginMetadata) (*services.AuthResponse, error) {
			return &services.AuthResponse{
				AccessToken:  "access_token_123",
				RefreshToken: "refresh_token_123",
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "kunde@example.com",
		Password: "SikkertPassord123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp services.AuthResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "access_token_123", resp.AccessToken)
	assert.Equal(t, "refresh_token_123", resp.RefreshToken)
}

func TestLogin_AuthenticationFailed(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, totpCode string, meta services.LoginMetadata) (*services.AuthResponse, error) {
			return nil, models.ErrUnauthorized
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "kunde@example.com",
		Password: "FeilPassord999",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestLogin_MFARequired(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password, totpCode string, meta services.LoginMetadata) (*services.AuthResponse, error) {
			return nil, models.ErrMFARequired
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "kunde@example.com",
		Password: "SikkertPassord123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	// Distinct error code so the client knows to re-submit with a TOTP code
	handlers.AssertErrorResponse(t, w, 401, "mfa_required")
}

func TestLogin_AccountStatusErrors_AntiEnumeration(t *testing.T) {
	// All account state failures return the same generic message
	accountErrors := []error{
		models.ErrUnauthorized,
		models.ErrAccountDisabled,
		models.ErrAccountSuspended,
	}

	for _, accountErr := range accountErrors {
		t.Run("account error: "+accountErr.Error(), func(t *testing.T) {
			mockAuth := &handlers.MockAuthService{
				LoginFunc: func(ctx context.Context, email, password, totpCode string, meta services.LoginMetadata) (*services.AuthResponse, error) {
					return nil, accountErr
				},
			}

			handler := handlers.NewAuthHandler(mockAuth, nil)
			req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
				Email:    "kunde@example.com",
				Password: "SikkertPassord123",
			})

			w := httptest.NewRecorder()
			handler.Login(w, req)

			handlers.AssertErrorResponse(t, w, 401, "unauthorized")

			var resp pkghttp.ErrorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			assert.Equal(t, "Authentication failed", resp.Message)
		})
	}
}

func TestLogin_InvalidBody(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email: "not-an-email",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestRegister_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, input services.RegisterInput) (*models.Customer, error) {
			return &models.Customer{
				ID:          "cust_1",
				Email:       input.Email,
				FirstName:   input.FirstName,
				LastName:    input.LastName,
				AccountType: input.AccountType,
				Status:      "active",
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:       "ny@example.com",
		Password:    "SikkertPassord123",
		FirstName:   "Kari",
		LastName:    "Nordmann",
		AccountType: "private",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	var resp services.CustomerResponse
	handlers.AssertJSONResponse(t, w, 201, &resp)
	assert.Equal(t, "cust_1", resp.ID)
	assert.Equal(t, "ny@example.com", resp.Email)
	assert.Equal(t, "private", resp.AccountType)
	assert.Nil(t, resp.Company)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, input services.RegisterInput) (*models.Customer, error) {
			return nil, models.ErrConflict
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:       "finnes@example.com",
		Password:    "SikkertPassord123",
		FirstName:   "Kari",
		LastName:    "Nordmann",
		AccountType: "private",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorResponse(t, w, 409, "conflict")
}

func TestRegister_InvalidAccountType(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:       "ny@example.com",
		Password:    "SikkertPassord123",
		FirstName:   "Kari",
		LastName:    "Nordmann",
		AccountType: "enterprise",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestRegister_MalformedOrgNumber(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, nil)
	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:       "firma@example.com",
		Password:    "SikkertPassord123",
		FirstName:   "Ola",
		LastName:    "Hansen",
		AccountType: "company",
		CompanyName: "Testfirma AS",
		OrgNumber:   "12345",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}
