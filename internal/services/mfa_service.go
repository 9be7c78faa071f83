package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nornex-as/portal/internal/auth"
	"github.com/nornex-as/portal/internal/models"
	pkglogger "github.com/nornex-as/portal/pkg/logger"
)

// MFASetupResponse is returned when MFA setup is initiated. The secret is
// shown once for manual entry; afterwards only the encrypted copy exists.
type MFASetupResponse struct {
	Secret    string `json:"secret"`
	QRCodeURL string `json:"qr_code_url"`
}

// MFAService handles TOTP setup, activation, and removal. The encrypted
// secret is written at setup with MFA still disabled; only a valid code from
// the authenticator app flips it on, so a customer can never lock themselves
// out with a secret their app never saw.
type MFAService struct {
	repo        CustomerRepository
	totpMgr     *auth.TOTPManager
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewMFAService creates a new MFA service
func NewMFAService(repo CustomerRepository, totpMgr *auth.TOTPManager, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *MFAService {
	return &MFAService{
		repo:        repo,
		totpMgr:     totpMgr,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Setup generates a fresh TOTP secret and stores it encrypted. MFA stays
// disabled until Enable confirms the customer's authenticator produces valid
// codes.
func (s *MFAService) Setup(ctx context.Context, customerID string) (*MFASetupResponse, error) {
	customer, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get customer", slog.String("customer_id", customerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if customer.MFAEnabled {
		return nil, models.ErrConflict
	}

	encrypted, nonce, secret, qrCode, err := s.totpMgr.GenerateSecretWithQR(customer.Email)
	if err != nil {
		s.logger.Error("failed to generate TOTP secret", slog.String("customer_id", customerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	customer.TOTPSecret = encrypted
	customer.TOTPNonce = nonce
	customer.MFAEnabled = false

	if _, err := s.repo.Update(ctx, customerID, customer); err != nil {
		s.logger.Error("failed to store TOTP secret", slog.String("customer_id", customerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("mfa setup initiated", slog.String("customer_id", customerID))

	return &MFASetupResponse{
		Secret:    secret,
		QRCodeURL: qrCode,
	}, nil
}

// Enable activates MFA after verifying a code against the pending secret
func (s *MFAService) Enable(ctx context.Context, customerID, code string) error {
	customer, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get customer", slog.String("customer_id", customerID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if customer.MFAEnabled {
		return models.ErrConflict
	}
	if len(customer.TOTPSecret) == 0 {
		return models.ErrBadRequest
	}

	if err := s.verifyCode(customer, code); err != nil {
		return err
	}

	customer.MFAEnabled = true
	if _, err := s.repo.Update(ctx, customerID, customer); err != nil {
		s.logger.Error("failed to enable mfa", slog.String("customer_id", customerID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("mfa enabled", slog.String("customer_id", customerID))
	s.auditLogger.LogAccountAction("mfa_enabled", customerID, "", nil)

	return nil
}

// Disable turns MFA off. A valid code is required so a hijacked session
// cannot silently strip the second factor.
func (s *MFAService) Disable(ctx context.Context, customerID, code string) error {
	customer, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get customer", slog.String("customer_id", customerID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !customer.MFAEnabled {
		return models.ErrBadRequest
	}

	if err := s.verifyCode(customer, code); err != nil {
		return err
	}

	customer.MFAEnabled = false
	customer.TOTPSecret = nil
	customer.TOTPNonce = nil

	if _, err := s.repo.Update(ctx, customerID, customer); err != nil {
		s.logger.Error("failed to disable mfa", slog.String("customer_id", customerID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("mfa disabled", slog.String("customer_id", customerID))
	s.auditLogger.LogAccountAction("mfa_disabled", customerID, "", nil)

	return nil
}

func (s *MFAService) verifyCode(customer *models.Customer, code string) error {
	if code == "" {
		return models.ErrMFARequired
	}

	secret, err := s.totpMgr.DecryptSecret(customer.TOTPSecret, customer.TOTPNonce)
	if err != nil {
		s.logger.Error("failed to decrypt TOTP secret", slog.String("customer_id", customer.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	valid, err := s.totpMgr.ValidateTOTP(secret, code)
	if err != nil {
		s.logger.Error("failed to validate TOTP code", slog.String("customer_id", customer.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !valid {
		return models.ErrMFAInvalidCode
	}

	return nil
}
