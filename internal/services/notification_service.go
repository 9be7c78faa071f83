package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nornex-as/portal/internal/models"
)

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, customerID string) (int, error)
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	MarkRead(ctx context.Context, customerID, id string) error
	MarkAllRead(ctx context.Context, customerID string) error
	Delete(ctx context.Context, customerID, id string) error
}

// NotificationService maintains the portal notification feed. The unread
// total is always derived from the stored rows, so every mutation keeps the
// feed and the counter consistent by construction.
type NotificationService struct {
	repo   NotificationRepository
	logger *slog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		logger: logger,
	}
}

// Feed returns a page of notifications (most recent first) together with the
// unread total.
func (s *NotificationService) Feed(ctx context.Context, customerID string, limit, offset int) (*models.NotificationFeed, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	notifications, err := s.repo.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list notifications", slog.String("customer_id", customerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	unread, err := s.repo.CountUnread(ctx, customerID)
	if err != nil {
		s.logger.Error("failed to count unread notifications", slog.String("customer_id", customerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &models.NotificationFeed{
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}

// Add inserts a notification at the head of the feed
func (s *NotificationService) Add(ctx context.Context, customerID, notificationType, title, body string, link *string) (*models.Notification, error) {
	if !models.ValidNotificationType(notificationType) {
		return nil, fmt.Errorf("%w: unknown notification type %q", models.ErrBadRequest, notificationType)
	}

	n := &models.Notification{
		CustomerID: customerID,
		Type:       notificationType,
		Title:      title,
		Body:       body,
		Link:       link,
	}

	created, err := s.repo.Create(ctx, n)
	if err != nil {
		s.logger.Error("failed to create notification", slog.String("customer_id", customerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return created, nil
}

// MarkRead flags one notification as read. Idempotent: marking an already
// read notification changes nothing.
func (s *NotificationService) MarkRead(ctx context.Context, customerID, id string) error {
	err := s.repo.MarkRead(ctx, customerID, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to mark notification read", slog.String("customer_id", customerID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// MarkAllRead flags every notification of the customer as read
func (s *NotificationService) MarkAllRead(ctx context.Context, customerID string) error {
	if err := s.repo.MarkAllRead(ctx, customerID); err != nil {
		s.logger.Error("failed to mark all notifications read", slog.String("customer_id", customerID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// Remove deletes one notification from the feed
func (s *NotificationService) Remove(ctx context.Context, customerID, id string) error {
	err := s.repo.Delete(ctx, customerID, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete notification", slog.String("customer_id", customerID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// NotifyWelcome posts the account-created notification. Failures are logged,
// never surfaced: a missing notification must not fail registration.
func (s *NotificationService) NotifyWelcome(ctx context.Context, customerID, firstName string) {
	_, err := s.Add(ctx, customerID, models.NotificationTypeAccount,
		"Velkommen til NORNEX",
		fmt.Sprintf("Hei %s! Kontoen din er opprettet. Her finner du ordrer, reparasjoner og fakturaer.", firstName),
		nil,
	)
	if err != nil {
		s.logger.Warn("failed to post welcome notification", slog.String("customer_id", customerID), slog.Any("error", err))
	}
}

// NotifyNewLogin posts a security notification about a fresh device login
func (s *NotificationService) NotifyNewLogin(ctx context.Context, customerID, device, maskedIP string) {
	link := "/konto/sikkerhet"
	_, err := s.Add(ctx, customerID, models.NotificationTypeAccount,
		"Ny innlogging",
		fmt.Sprintf("Ny innlogging fra %s (%s). Var ikke dette deg? Avslutt økten under Sikkerhet.", device, maskedIP),
		&link,
	)
	if err != nil {
		s.logger.Warn("failed to post login notification", slog.String("customer_id", customerID), slog.Any("error", err))
	}
}

// NotifyPasswordChanged posts a security notification after a password change
func (s *NotificationService) NotifyPasswordChanged(ctx context.Context, customerID string) {
	_, err := s.Add(ctx, customerID, models.NotificationTypeAccount,
		"Passordet er endret",
		"Passordet for kontoen din ble nettopp endret. Kontakt oss hvis dette ikke var deg.",
		nil,
	)
	if err != nil {
		s.logger.Warn("failed to post password change notification", slog.String("customer_id", customerID), slog.Any("error", err))
	}
}
