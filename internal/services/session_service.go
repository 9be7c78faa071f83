package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nornex-as/portal/internal/models"
)

// SessionResponse represents a device session in the HTTP response. IsCurrent
// is derived per request from the caller's own session id, so exactly one
// entry is current from any caller's point of view.
type SessionResponse struct {
	ID         string `json:"id"`
	Device     string `json:"device"`
	Location   string `json:"location,omitempty"`
	IPAddress  string `json:"ip_address"`
	IsCurrent  bool   `json:"is_current"`
	CreatedAt  string `json:"created_at"`
	LastActive string `json:"last_active"`
}

// SessionService handles the device session registry
type SessionService struct {
	repo   SessionRepository
	logger *slog.Logger
}

// NewSessionService creates a new SessionService
func NewSessionService(repo SessionRepository, logger *slog.Logger) *SessionService {
	return &SessionService{
		repo:   repo,
		logger: logger,
	}
}

// List returns all live sessions of a customer. currentSessionID is the sid
// claim of the token the caller presented.
func (s *SessionService) List(ctx context.Context, customerID, currentSessionID string) ([]*SessionResponse, error) {
	sessions, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		s.logger.Error("failed to list sessions", slog.String("customer_id", customerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, &SessionResponse{
			ID:         session.ID,
			Device:     session.Device,
			Location:   session.Location,
			IPAddress:  session.IPAddress,
			IsCurrent:  session.ID == currentSessionID,
			CreatedAt:  session.CreatedAt.Format(time.RFC3339),
			LastActive: session.LastActive.Format(time.RFC3339),
		})
	}

	return responses, nil
}

// Terminate removes one session from the registry. Terminating the caller's
// current session is allowed: it is an own-device logout, and the refresh
// token bound to that session stops working immediately.
func (s *SessionService) Terminate(ctx context.Context, customerID, sessionID string) error {
	err := s.repo.Delete(ctx, customerID, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to terminate session",
			slog.String("customer_id", customerID),
			slog.String("session_id", sessionID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("session terminated",
		slog.String("customer_id", customerID),
		slog.String("session_id", sessionID))
	return nil
}
