package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/nornex-as/portal/internal/auth"
	"github.com/nornex-as/portal/internal/models"
	pkgauth "github.com/nornex-as/portal/pkg/auth"
	pkglogger "github.com/nornex-as/portal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "SikkertPassord123"

func newTestAuthService(t *testing.T, repo *MockCustomerRepository, sessionRepo *MockSessionRepository, revokeRepo *MockTokenRevocationRepository) *AuthService {
	t.Helper()

	logger := slog.Default()
	tm := auth.NewTokenManager("test-secret-that-is-long-enough-for-hs256", 15*time.Minute, 7*24*time.Hour)
	notifSvc := NewNotificationService(&MockNotificationRepository{}, logger)

	return NewAuthService(
		repo,
		sessionRepo,
		revokeRepo,
		tm,
		nil, // TOTP manager not needed unless a test enables MFA
		notifSvc,
		logger,
		pkglogger.NewAuditLogger(logger),
		"test",
	)
}

func hashTestPassword(t *testing.T) string {
	t.Helper()
	hash, err := pkgauth.HashPassword(testPassword)
	require.NoError(t, err)
	return hash
}

// ============================================================================
// Login Tests
// ============================================================================

func TestAuthService_Login_PrivateAccount(t *testing.T) {
	customer := NewTestCustomerWithPassword("cust_1", "kari@example.no", "Kari", "Nordmann", hashTestPassword(t))

	var createdSession *models.Session
	mockRepo := &MockCustomerRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Customer, error) {
			assert.Equal(t, "kari@example.no", email)
			return customer, nil
		},
	}
	mockSessions := &MockSessionRepository{
		CreateFunc: func(ctx context.Context, session *models.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := newTestAuthService(t, mockRepo, mockSessions, &MockTokenRevocationRepository{})

	resp, err := svc.Login(context.Background(), "Kari@Example.NO", testPassword, "", LoginMetadata{
		IPAddress: "84.212.17.3",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0",
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.AccountTypePrivate, resp.Customer.AccountType)
	assert.Nil(t, resp.Customer.Company)

	require.NotNil(t, createdSession)
	assert.Equal(t, "cust_1", createdSession.CustomerID)
	assert.Equal(t, "Chrome on Windows", createdSession.Device)
	assert.Equal(t, "84.212.x.x", createdSession.IPAddress)
}

func TestAuthService_Login_CompanyAccount(t *testing.T) {
	customer := NewTestCompanyCustomer("cust_2", "post@acme.no", "Ola", "Hansen", "Acme AS")
	customer.PasswordHash = hashTestPassword(t)

	mockRepo := &MockCustomerRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Customer, error) {
			return customer, nil
		},
	}

	svc := newTestAuthService(t, mockRepo, &MockSessionRepository{}, &MockTokenRevocationRepository{})

	resp, err := svc.Login(context.Background(), "post@acme.no", testPassword, "", LoginMetadata{})

	require.NoError(t, err)
	assert.Equal(t, models.AccountTypeCompany, resp.Customer.AccountType)
	require.NotNil(t, resp.Customer.Company)
	assert.Equal(t, "Acme AS", resp.Customer.Company.CompanyName)
	assert.Equal(t, "974760673", resp.Customer.Company.OrgNumber)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	customer := NewTestCustomerWithPassword("cust_1", "kari@example.no", "Kari", "Nordmann", hashTestPassword(t))

	mockRepo := &MockCustomerRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Customer, error) {
			return customer, nil
		},
	}

	svc := newTestAuthService(t, mockRepo, &MockSessionRepository{}, &MockTokenRevocationRepository{})

	resp, err := svc.Login(context.Background(), "kari@example.no", "feil-passord", "", LoginMetadata{})

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Nil(t, resp)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc := newTestAuthService(t, &MockCustomerRepository{}, &MockSessionRepository{}, &MockTokenRevocationRepository{})

	resp, err := svc.Login(context.Background(), "ingen@example.no", testPassword, "", LoginMetadata{})

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Nil(t, resp)
}

func TestAuthService_Login_SuspendedAccount(t *testing.T) {
	customer := NewTestCustomerWithStatus("cust_1", "kari@example.no", "Kari", "Nordmann", "suspended")
	customer.PasswordHash = hashTestPassword(t)

	mockRepo := &MockCustomerRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Customer, error) {
			return customer, nil
		},
	}

	svc := newTestAuthService(t, mockRepo, &MockSessionRepository{}, &MockTokenRevocationRepository{})

	_, err := svc.Login(context.Background(), "kari@example.no", testPassword, "", LoginMetadata{})

	assert.ErrorIs(t, err, models.ErrAccountSuspended)
}

func TestAuthService_Login_MFARequiredWithoutCode(t *testing.T) {
	customer := NewTestCustomerWithPassword("cust_1", "kari@example.no", "Kari", "Nordmann", hashTestPassword(t))
	customer.MFAEnabled = true
	customer.TOTPSecret = []byte("encrypted")
	customer.TOTPNonce = []byte("nonce")

	mockRepo := &MockCustomerRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Customer, error) {
			return customer, nil
		},
	}

	svc := newTestAuthService(t, mockRepo, &MockSessionRepository{}, &MockTokenRevocationRepository{})

	resp, err := svc.Login(context.Background(), "kari@example.no", testPassword, "", LoginMetadata{})

	assert.ErrorIs(t, err, models.ErrMFARequired)
	assert.Nil(t, resp)
}

// ============================================================================
// Register Tests
// ============================================================================

func TestAuthService_Register_PrivateAccount(t *testing.T) {
	mockRepo := &MockCustomerRepository{
		CreateFunc: func(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
			customer.ID = "cust_new"
			customer.CreatedAt = time.Now()
			customer.UpdatedAt = time.Now()
			return customer, nil
		},
	}

	svc := newTestAuthService(t, mockRepo, &MockSessionRepository{}, &MockTokenRevocationRepository{})

	created, err := svc.Register(context.Background(), RegisterInput{
		Email:       "Ny.Kunde@Example.NO",
		Password:    testPassword,
		FirstName:   "Nina",
		LastName:    "Berg",
		AccountType: models.AccountTypePrivate,
	})

	require.NoError(t, err)
	assert.Equal(t, "ny.kunde@example.no", created.Email)
	assert.Equal(t, models.AccountTypePrivate, created.AccountType)
	assert.Nil(t, created.Company)
}

func TestAuthService_Register_CompanyWithoutName(t *testing.T) {
	mockRepo := &MockCustomerRepository{
		CreateFunc: func(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
			customer.ID = "cust_new"
			return customer, nil
		},
	}

	svc := newTestAuthService(t, mockRepo, &MockSessionRepository{}, &MockTokenRevocationRepository{})

	created, err := svc.Register(context.Background(), RegisterInput{
		Email:       "post@firma.no",
		Password:    testPassword,
		FirstName:   "Per",
		LastName:    "Olsen",
		AccountType: models.AccountTypeCompany,
	})

	require.NoError(t, err)
	assert.Equal(t, models.AccountTypeCompany, created.AccountType)
	assert.Nil(t, created.Company, "company account without a company name starts without a profile")
}

func TestAuthService_Register_CompanyWithName(t *testing.T) {
	mockRepo := &MockCustomerRepository{
		CreateFunc: func(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
			customer.ID = "cust_new"
			return customer, nil
		},
	}

	svc := newTestAuthService(t, mockRepo, &MockSessionRepository{}, &MockTokenRevocationRepository{})

	created, err := svc.Register(context.Background(), RegisterInput{
		Email:       "post@acme.no",
		Password:    testPassword,
		FirstName:   "Ola",
		LastName:    "Hansen",
		AccountType: models.AccountTypeCompany,
		CompanyName: "Acme AS",
		OrgNumber:   "974760673",
	})

	require.NoError(t, err)
	require.NotNil(t, created.Company)
	assert.Equal(t, "Acme AS", created.Company.CompanyName)
	assert.Equal(t, "Ola Hansen", created.Company.ContactPerson)
}

func TestAuthService_Register_InvalidOrgNumber(t *testing.T) {
	svc := newTestAuthService(t, &MockCustomerRepository{}, &MockSessionRepository{}, &MockTokenRevocationRepository{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:       "post@acme.no",
		Password:    testPassword,
		FirstName:   "Ola",
		LastName:    "Hansen",
		AccountType: models.AccountTypeCompany,
		CompanyName: "Acme AS",
		OrgNumber:   "974760674",
	})

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	existing := NewTestCustomer("cust_1", "kari@example.no", "Kari", "Nordmann")

	mockRepo := &MockCustomerRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Customer, error) {
			return existing, nil
		},
	}

	svc := newTestAuthService(t, mockRepo, &MockSessionRepository{}, &MockTokenRevocationRepository{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:       "kari@example.no",
		Password:    testPassword,
		FirstName:   "Kari",
		LastName:    "Nordmann",
		AccountType: models.AccountTypePrivate,
	})

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	svc := newTestAuthService(t, &MockCustomerRepository{}, &MockSessionRepository{}, &MockTokenRevocationRepository{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:       "kari@example.no",
		Password:    "kort",
		FirstName:   "Kari",
		LastName:    "Nordmann",
		AccountType: models.AccountTypePrivate,
	})

	assert.Error(t, err)
}

// ============================================================================
// Logout / Refresh Tests
// ============================================================================

func TestAuthService_Logout_RevokesTokenAndSession(t *testing.T) {
	customer := NewTestCustomerWithPassword("cust_1", "kari@example.no", "Kari", "Nordmann", hashTestPassword(t))

	var revokedJTI string
	var deletedSession string
	mockRepo := &MockCustomerRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Customer, error) {
			return customer, nil
		},
	}
	mockSessions := &MockSessionRepository{
		DeleteFunc: func(ctx context.Context, customerID, sessionID string) error {
			deletedSession = sessionID
			return nil
		},
	}
	mockRevoke := &MockTokenRevocationRepository{
		RevokeTokenFunc: func(ctx context.Context, jti, customerID, tokenType string, expiresAt time.Time, reason string) error {
			revokedJTI = jti
			return nil
		},
	}

	svc := newTestAuthService(t, mockRepo, mockSessions, mockRevoke)

	resp, err := svc.Login(context.Background(), "kari@example.no", testPassword, "", LoginMetadata{})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), resp.AccessToken)

	require.NoError(t, err)
	assert.NotEmpty(t, revokedJTI)
	assert.NotEmpty(t, deletedSession)
}

func TestAuthService_RefreshToken_TerminatedSession(t *testing.T) {
	customer := NewTestCustomerWithPassword("cust_1", "kari@example.no", "Kari", "Nordmann", hashTestPassword(t))

	mockRepo := &MockCustomerRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Customer, error) {
			return customer, nil
		},
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Customer, error) {
			return customer, nil
		},
	}
	// Session registry returns not-found: the session was terminated
	mockSessions := &MockSessionRepository{
		GetByIDFunc: func(ctx context.Context, customerID, sessionID string) (*models.Session, error) {
			return nil, models.ErrNotFound
		},
	}

	svc := newTestAuthService(t, mockRepo, mockSessions, &MockTokenRevocationRepository{})

	loginResp, err := svc.Login(context.Background(), "kari@example.no", testPassword, "", LoginMetadata{})
	require.NoError(t, err)

	resp, err := svc.RefreshToken(context.Background(), loginResp.RefreshToken)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Nil(t, resp)
}

func TestAuthService_RefreshToken_RejectsAccessToken(t *testing.T) {
	customer := NewTestCustomerWithPassword("cust_1", "kari@example.no", "Kari", "Nordmann", hashTestPassword(t))

	mockRepo := &MockCustomerRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Customer, error) {
			return customer, nil
		},
	}

	svc := newTestAuthService(t, mockRepo, &MockSessionRepository{}, &MockTokenRevocationRepository{})

	loginResp, err := svc.Login(context.Background(), "kari@example.no", testPassword, "", LoginMetadata{})
	require.NoError(t, err)

	resp, err := svc.RefreshToken(context.Background(), loginResp.AccessToken)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Nil(t, resp)
}

// ============================================================================
// Helpers
// ============================================================================

func TestDeviceFromUserAgent(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		expected  string
	}{
		{"chrome on windows", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0 Safari/537.36", "Chrome on Windows"},
		{"safari on iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Version/17.0 Safari/604.1", "Safari on iOS"},
		{"edge on windows", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0 Safari/537.36 Edg/120.0", "Edge on Windows"},
		{"firefox on linux", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", "Firefox on Linux"},
		{"empty", "", "Unknown device"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, deviceFromUserAgent(tt.userAgent))
		})
	}
}
