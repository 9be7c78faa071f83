package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/nornex-as/portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_List_MarksCurrent(t *testing.T) {
	mockSessions := &MockSessionRepository{
		ListByCustomerFunc: func(ctx context.Context, customerID string) ([]*models.Session, error) {
			return []*models.Session{
				NewTestSession("sess_old", customerID, "Safari on macOS"),
				NewTestSession("sess_now", customerID, "Chrome on Windows"),
			}, nil
		},
	}

	svc := NewSessionService(mockSessions, slog.Default())

	sessions, err := svc.List(context.Background(), "cust_1", "sess_now")

	require.NoError(t, err)
	require.Len(t, sessions, 2)

	currentCount := 0
	for _, s := range sessions {
		if s.IsCurrent {
			currentCount++
			assert.Equal(t, "sess_now", s.ID)
		}
	}
	assert.Equal(t, 1, currentCount, "exactly one session is current for a caller")
}

func TestSessionService_List_NoCurrentAfterTermination(t *testing.T) {
	// The caller's own session is gone from the registry; nothing is current
	mockSessions := &MockSessionRepository{
		ListByCustomerFunc: func(ctx context.Context, customerID string) ([]*models.Session, error) {
			return []*models.Session{
				NewTestSession("sess_other", customerID, "Safari on macOS"),
			}, nil
		},
	}

	svc := NewSessionService(mockSessions, slog.Default())

	sessions, err := svc.List(context.Background(), "cust_1", "sess_terminated")

	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.False(t, sessions[0].IsCurrent)
}

func TestSessionService_Terminate(t *testing.T) {
	var deletedID string
	mockSessions := &MockSessionRepository{
		DeleteFunc: func(ctx context.Context, customerID, sessionID string) error {
			deletedID = sessionID
			return nil
		},
	}

	svc := NewSessionService(mockSessions, slog.Default())

	err := svc.Terminate(context.Background(), "cust_1", "sess_old")

	require.NoError(t, err)
	assert.Equal(t, "sess_old", deletedID)
}

func TestSessionService_Terminate_CurrentSessionAllowed(t *testing.T) {
	// Terminating the session behind the caller's own token is an own-device
	// logout, not an error.
	mockSessions := &MockSessionRepository{
		DeleteFunc: func(ctx context.Context, customerID, sessionID string) error {
			return nil
		},
	}

	svc := NewSessionService(mockSessions, slog.Default())

	err := svc.Terminate(context.Background(), "cust_1", "sess_now")

	assert.NoError(t, err)
}

func TestSessionService_Terminate_UnknownSession(t *testing.T) {
	mockSessions := &MockSessionRepository{
		DeleteFunc: func(ctx context.Context, customerID, sessionID string) error {
			return models.ErrNotFound
		},
	}

	svc := NewSessionService(mockSessions, slog.Default())

	err := svc.Terminate(context.Background(), "cust_1", "missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
}
