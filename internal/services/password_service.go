package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/nornex-as/portal/internal/models"
	pkgauth "github.com/nornex-as/portal/pkg/auth"
	pkglogger "github.com/nornex-as/portal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// PINConfig holds configuration for the password-change PIN workflow
type PINConfig struct {
	Length      int
	TTL         time.Duration
	MaxAttempts int
}

// PasswordService owns the PIN-confirmed password-change workflow. The PIN
// digest and attempt counter live in Redis under a TTL, so a pending change
// expires on its own and never survives the validity window. The plaintext
// PIN leaves the service only inside the confirmation e-mail; callers can
// only ask for verification, never read the PIN back.
type PasswordService struct {
	repo        CustomerRepository
	sessionRepo SessionRepository
	email       EmailService
	redisClient *redis.Client
	config      PINConfig
	notifier    *NotificationService
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewPasswordService creates a new PasswordService
func NewPasswordService(
	repo CustomerRepository,
	sessionRepo SessionRepository,
	email EmailService,
	redisClient *redis.Client,
	config PINConfig,
	notifier *NotificationService,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *PasswordService {
	return &PasswordService{
		repo:        repo,
		sessionRepo: sessionRepo,
		email:       email,
		redisClient: redisClient,
		config:      config,
		notifier:    notifier,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

func pinKey(customerID string) string {
	return "pwdpin:" + customerID
}

func pinAttemptsKey(customerID string) string {
	return "pwdpin:att:" + customerID
}

// RequestChange starts a password change: generates a PIN, stores its digest
// with the validity TTL, and mails the PIN to the account's address.
func (s *PasswordService) RequestChange(ctx context.Context, customerID string) error {
	customer, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get customer", slog.String("customer_id", customerID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	pin, err := s.generatePIN()
	if err != nil {
		s.logger.Error("failed to generate pin", slog.Any("error", err))
		return models.ErrInternalServer
	}

	digest := hashPIN(pin)
	if err := s.redisClient.Set(ctx, pinKey(customerID), digest, s.config.TTL).Err(); err != nil {
		s.logger.Error("failed to store pin", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if err := s.redisClient.Set(ctx, pinAttemptsKey(customerID), 0, s.config.TTL).Err(); err != nil {
		s.logger.Error("failed to initialize pin attempts", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.email.SendPasswordChangePIN(ctx, customer.Email, pin, s.config.TTL); err != nil {
		// Do not leave a usable PIN behind if the mail never went out
		s.redisClient.Del(ctx, pinKey(customerID), pinAttemptsKey(customerID))
		s.logger.Error("failed to send pin email", slog.String("customer_id", customerID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password change requested", slog.String("customer_id", customerID))
	s.auditLogger.LogAccountAction("password_change_requested", customerID, "", nil)

	return nil
}

// Pending reports whether a password change is awaiting confirmation
func (s *PasswordService) Pending(ctx context.Context, customerID string) (bool, error) {
	ttl, err := s.redisClient.TTL(ctx, pinKey(customerID)).Result()
	if err != nil {
		s.logger.Error("failed to check pin ttl", slog.Any("error", err))
		return false, models.ErrInternalServer
	}
	return ttl > 0, nil
}

// verifyPIN compares a candidate against the stored digest, counting
// attempts. The stored PIN is consumed on success.
func (s *PasswordService) verifyPIN(ctx context.Context, customerID, candidate string) error {
	attempts, err := s.redisClient.Incr(ctx, pinAttemptsKey(customerID)).Result()
	if err != nil {
		s.logger.Error("failed to increment pin attempts", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if attempts > int64(s.config.MaxAttempts) {
		s.redisClient.Del(ctx, pinKey(customerID), pinAttemptsKey(customerID))
		return models.ErrPINMaxAttempts
	}

	stored, err := s.redisClient.Get(ctx, pinKey(customerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.ErrPINNotFound
		}
		s.logger.Error("failed to get pin", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(hashPIN(candidate))) != 1 {
		return models.ErrPINInvalid
	}

	s.redisClient.Del(ctx, pinKey(customerID), pinAttemptsKey(customerID))
	return nil
}

// ConfirmChange verifies the PIN and commits the new password. On success
// the per-customer token key is rotated and all other device sessions are
// cleared, so stolen tokens die with the old password.
func (s *PasswordService) ConfirmChange(ctx context.Context, customerID, currentSessionID, pin, newPassword string) error {
	if err := s.verifyPIN(ctx, customerID, pin); err != nil {
		s.auditLogger.LogAccountAction("password_change_rejected", customerID, "", map[string]string{
			"reason": err.Error(),
		})
		return err
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashed, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, customerID, hashed); err != nil {
		s.logger.Error("failed to update password", slog.String("customer_id", customerID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Rotate the token key so tokens issued before the change stop verifying
	customer, err := s.repo.GetByID(ctx, customerID)
	if err == nil {
		if newKey, keyErr := pkgauth.GenerateTokenKey(); keyErr == nil {
			customer.TokenKey = newKey
			if _, updErr := s.repo.Update(ctx, customerID, customer); updErr != nil {
				s.logger.Warn("failed to rotate token key", slog.String("customer_id", customerID), slog.Any("error", updErr))
			}
		}
	}

	// Every other device has to log in again with the new password
	sessions, err := s.sessionRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		s.logger.Warn("failed to list sessions after password change", slog.Any("error", err))
	} else {
		for _, session := range sessions {
			if session.ID == currentSessionID {
				continue
			}
			if err := s.sessionRepo.Delete(ctx, customerID, session.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
				s.logger.Warn("failed to terminate session after password change",
					slog.String("session_id", session.ID), slog.Any("error", err))
			}
		}
	}

	s.notifier.NotifyPasswordChanged(ctx, customerID)

	s.logger.Info("password changed", slog.String("customer_id", customerID))
	s.auditLogger.LogAccountAction("password_changed", customerID, "", nil)

	return nil
}

// Cancel aborts a pending password change (e.g. on logout)
func (s *PasswordService) Cancel(ctx context.Context, customerID string) error {
	if err := s.redisClient.Del(ctx, pinKey(customerID), pinAttemptsKey(customerID)).Err(); err != nil {
		s.logger.Error("failed to cancel pending password change", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// generatePIN produces a cryptographically random numeric PIN
func (s *PasswordService) generatePIN() (string, error) {
	length := s.config.Length
	if length <= 0 {
		length = 6
	}

	digits := make([]byte, length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}

	return string(digits), nil
}

func hashPIN(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}
