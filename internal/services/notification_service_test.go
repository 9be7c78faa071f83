package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/nornex-as/portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNotificationStore is an in-memory NotificationRepository used to check
// feed behavior across several operations.
type fakeNotificationStore struct {
	notifications []*models.Notification
}

func (f *fakeNotificationStore) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*models.Notification, error) {
	var out []*models.Notification
	for _, n := range f.notifications {
		if n.CustomerID == customerID {
			out = append(out, n)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeNotificationStore) CountUnread(ctx context.Context, customerID string) (int, error) {
	count := 0
	for _, n := range f.notifications {
		if n.CustomerID == customerID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationStore) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	f.notifications = append(f.notifications, n)
	return n, nil
}

func (f *fakeNotificationStore) MarkRead(ctx context.Context, customerID, id string) error {
	for _, n := range f.notifications {
		if n.CustomerID == customerID && n.ID == id {
			n.IsRead = true
			return nil
		}
	}
	return models.ErrNotFound
}

func (f *fakeNotificationStore) MarkAllRead(ctx context.Context, customerID string) error {
	for _, n := range f.notifications {
		if n.CustomerID == customerID {
			n.IsRead = true
		}
	}
	return nil
}

func (f *fakeNotificationStore) Delete(ctx context.Context, customerID, id string) error {
	for i, n := range f.notifications {
		if n.CustomerID == customerID && n.ID == id {
			f.notifications = append(f.notifications[:i], f.notifications[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func TestNotificationService_Feed_UnreadCountMatchesStore(t *testing.T) {
	store := &fakeNotificationStore{
		notifications: []*models.Notification{
			NewTestNotification("n1", "cust_1", models.NotificationTypeOrder, "Ordre sendt"),
			NewTestNotification("n2", "cust_1", models.NotificationTypeInvoice, "Ny faktura"),
			NewTestNotification("n3", "cust_1", models.NotificationTypeRepair, "Reparasjon klar"),
		},
	}
	store.notifications[2].IsRead = true

	svc := NewNotificationService(store, slog.Default())

	feed, err := svc.Feed(context.Background(), "cust_1", 20, 0)

	require.NoError(t, err)
	assert.Len(t, feed.Notifications, 3)
	assert.Equal(t, 2, feed.UnreadCount)
}

func TestNotificationService_MarkRead_DecrementsUnread(t *testing.T) {
	store := &fakeNotificationStore{
		notifications: []*models.Notification{
			NewTestNotification("n1", "cust_1", models.NotificationTypeOrder, "Ordre sendt"),
			NewTestNotification("n2", "cust_1", models.NotificationTypePromo, "Tilbud"),
		},
	}

	svc := NewNotificationService(store, slog.Default())

	require.NoError(t, svc.MarkRead(context.Background(), "cust_1", "n1"))

	feed, err := svc.Feed(context.Background(), "cust_1", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, feed.UnreadCount)
}

func TestNotificationService_MarkRead_Idempotent(t *testing.T) {
	store := &fakeNotificationStore{
		notifications: []*models.Notification{
			NewTestNotification("n1", "cust_1", models.NotificationTypeOrder, "Ordre sendt"),
		},
	}

	svc := NewNotificationService(store, slog.Default())

	require.NoError(t, svc.MarkRead(context.Background(), "cust_1", "n1"))
	require.NoError(t, svc.MarkRead(context.Background(), "cust_1", "n1"))

	feed, err := svc.Feed(context.Background(), "cust_1", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, feed.UnreadCount)
}

func TestNotificationService_MarkRead_UnknownID(t *testing.T) {
	svc := NewNotificationService(&fakeNotificationStore{}, slog.Default())

	err := svc.MarkRead(context.Background(), "cust_1", "missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	store := &fakeNotificationStore{
		notifications: []*models.Notification{
			NewTestNotification("n1", "cust_1", models.NotificationTypeOrder, "Ordre sendt"),
			NewTestNotification("n2", "cust_1", models.NotificationTypeInvoice, "Ny faktura"),
			NewTestNotification("n3", "cust_2", models.NotificationTypeOrder, "Annen kunde"),
		},
	}

	svc := NewNotificationService(store, slog.Default())

	require.NoError(t, svc.MarkAllRead(context.Background(), "cust_1"))

	feed, err := svc.Feed(context.Background(), "cust_1", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, feed.UnreadCount)

	otherFeed, err := svc.Feed(context.Background(), "cust_2", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, otherFeed.UnreadCount, "other customers' feeds are untouched")
}

func TestNotificationService_Remove_AdjustsUnread(t *testing.T) {
	store := &fakeNotificationStore{
		notifications: []*models.Notification{
			NewTestNotification("n1", "cust_1", models.NotificationTypeOrder, "Ordre sendt"),
			NewTestNotification("n2", "cust_1", models.NotificationTypePromo, "Tilbud"),
		},
	}

	svc := NewNotificationService(store, slog.Default())

	require.NoError(t, svc.Remove(context.Background(), "cust_1", "n2"))

	feed, err := svc.Feed(context.Background(), "cust_1", 20, 0)
	require.NoError(t, err)
	assert.Len(t, feed.Notifications, 1)
	assert.Equal(t, 1, feed.UnreadCount)
}

func TestNotificationService_Add_RejectsUnknownType(t *testing.T) {
	svc := NewNotificationService(&fakeNotificationStore{}, slog.Default())

	_, err := svc.Add(context.Background(), "cust_1", "spam", "Hei", "body", nil)

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestNotificationService_Feed_ClampsLimit(t *testing.T) {
	store := &fakeNotificationStore{}
	for i := 0; i < 30; i++ {
		store.notifications = append(store.notifications,
			NewTestNotification("n"+string(rune('a'+i)), "cust_1", models.NotificationTypeOrder, "Ordre"))
	}

	svc := NewNotificationService(store, slog.Default())

	feed, err := svc.Feed(context.Background(), "cust_1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, feed.Notifications, 20, "limit defaults to 20")
}
