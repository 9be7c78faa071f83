package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/nornex-as/portal/internal/auth"
	"github.com/nornex-as/portal/internal/models"
	"github.com/pquerna/otp/totp"
	pkglogger "github.com/nornex-as/portal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMFAService(t *testing.T, repo *MockCustomerRepository) *MFAService {
	t.Helper()

	key := make([]byte, 32)
	copy(key, "test-encryption-key-for-mfa-suit")

	totpMgr, err := auth.NewTOTPManager(key, "NORNEX Portal Test")
	require.NoError(t, err)

	logger := slog.Default()
	return NewMFAService(repo, totpMgr, logger, pkglogger.NewAuditLogger(logger))
}

func TestMFAService_SetupThenEnable(t *testing.T) {
	customer := NewTestCustomer("cust_1", "kari@example.no", "Kari", "Nordmann")

	repo := &MockCustomerRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Customer, error) {
			return customer, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Customer) (*models.Customer, error) {
			customer = c
			return c, nil
		},
	}

	svc := newTestMFAService(t, repo)

	setup, err := svc.Setup(context.Background(), "cust_1")
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.QRCodeURL, "data:image/png;base64,")

	assert.False(t, customer.MFAEnabled, "setup alone does not enable MFA")
	assert.NotEmpty(t, customer.TOTPSecret)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.Enable(context.Background(), "cust_1", code))
	assert.True(t, customer.MFAEnabled)
}

func TestMFAService_Enable_InvalidCode(t *testing.T) {
	customer := NewTestCustomer("cust_1", "kari@example.no", "Kari", "Nordmann")

	repo := &MockCustomerRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Customer, error) {
			return customer, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Customer) (*models.Customer, error) {
			customer = c
			return c, nil
		},
	}

	svc := newTestMFAService(t, repo)

	_, err := svc.Setup(context.Background(), "cust_1")
	require.NoError(t, err)

	err = svc.Enable(context.Background(), "cust_1", "000000")

	assert.ErrorIs(t, err, models.ErrMFAInvalidCode)
	assert.False(t, customer.MFAEnabled)
}

func TestMFAService_Enable_WithoutSetup(t *testing.T) {
	customer := NewTestCustomer("cust_1", "kari@example.no", "Kari", "Nordmann")

	repo := &MockCustomerRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Customer, error) {
			return customer, nil
		},
	}

	svc := newTestMFAService(t, repo)

	err := svc.Enable(context.Background(), "cust_1", "123456")

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestMFAService_Setup_AlreadyEnabled(t *testing.T) {
	customer := NewTestCustomer("cust_1", "kari@example.no", "Kari", "Nordmann")
	customer.MFAEnabled = true

	repo := &MockCustomerRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Customer, error) {
			return customer, nil
		},
	}

	svc := newTestMFAService(t, repo)

	_, err := svc.Setup(context.Background(), "cust_1")

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestMFAService_Disable(t *testing.T) {
	customer := NewTestCustomer("cust_1", "kari@example.no", "Kari", "Nordmann")

	repo := &MockCustomerRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Customer, error) {
			return customer, nil
		},
		UpdateFunc: func(ctx context.Context, id string, c *models.Customer) (*models.Customer, error) {
			customer = c
			return c, nil
		},
	}

	svc := newTestMFAService(t, repo)

	setup, err := svc.Setup(context.Background(), "cust_1")
	require.NoError(t, err)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.Enable(context.Background(), "cust_1", code))

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.Disable(context.Background(), "cust_1", code))

	assert.False(t, customer.MFAEnabled)
	assert.Empty(t, customer.TOTPSecret, "secret is cleared on disable")
}
