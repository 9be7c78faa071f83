package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nornex-as/portal/internal/database"
	"github.com/nornex-as/portal/internal/models"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{pool: db.Pool}
}

const notificationColumns = `id, customer_id, type, title, body, link, is_read, created_at`

func scanNotificationRow(scanner rowScanner) (*models.Notification, error) {
	var n models.Notification
	err := scanner.Scan(
		&n.ID, &n.CustomerID, &n.Type, &n.Title, &n.Body, &n.Link, &n.IsRead, &n.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &n, nil
}

// ListByCustomer returns a page of notifications, most recent first
func (r *NotificationRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*models.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notifications
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, notificationColumns)

	rows, err := r.pool.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		n, err := scanNotificationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return notifications, nil
}

// CountUnread returns the number of unread notifications. The unread total is
// always computed from the rows, never maintained as a separate counter.
func (r *NotificationRepository) CountUnread(ctx context.Context, customerID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE customer_id = $1 AND NOT is_read`,
		customerID,
	).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()

	query := `
		INSERT INTO notifications (id, customer_id, type, title, body, link, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		n.ID, n.CustomerID, n.Type, n.Title, n.Body, n.Link, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return n, nil
}

// MarkRead flags one notification as read. Marking an already-read
// notification is a no-op, so the call is idempotent.
func (r *NotificationRepository) MarkRead(ctx context.Context, customerID, id string) error {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1 AND customer_id = $2)`,
		id, customerID,
	).Scan(&exists)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if !exists {
		return models.ErrNotFound
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND customer_id = $2 AND NOT is_read`,
		id, customerID,
	)
	return database.MapPostgresError(err)
}

// MarkAllRead flags every unread notification of a customer as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, customerID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE customer_id = $1 AND NOT is_read`,
		customerID,
	)
	return database.MapPostgresError(err)
}

func (r *NotificationRepository) Delete(ctx context.Context, customerID, id string) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND customer_id = $2`, id, customerID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteReadOlderThan removes read notifications older than the cutoff.
// Used by the background cleanup task.
func (r *NotificationRepository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE is_read AND created_at < $1`, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
