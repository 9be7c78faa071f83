package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nornex-as/portal/internal/models"
	"github.com/redis/go-redis/v9"
)

// SessionRepository stores device sessions in Redis. Each session lives under
// its own key with a TTL; a per-customer set indexes the session IDs so the
// registry can be listed without SCAN.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{client: client, ttl: ttl}
}

func sessionKey(customerID, sessionID string) string {
	return fmt.Sprintf("sess:%s:%s", customerID, sessionID)
}

func sessionIndexKey(customerID string) string {
	return fmt.Sprintf("sess:idx:%s", customerID)
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := sessionKey(session.CustomerID, session.ID)
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	if err := r.client.SAdd(ctx, sessionIndexKey(session.CustomerID), session.ID).Err(); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}

	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, customerID, sessionID string) (*models.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(customerID, sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// ListByCustomer returns all live sessions of a customer, oldest first.
// Index entries whose session key has expired are pruned as they are found.
func (r *SessionRepository) ListByCustomer(ctx context.Context, customerID string) ([]*models.Session, error) {
	ids, err := r.client.SMembers(ctx, sessionIndexKey(customerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list session index: %w", err)
	}

	sessions := make([]*models.Session, 0, len(ids))
	for _, id := range ids {
		session, err := r.GetByID(ctx, customerID, id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				_ = r.client.SRem(ctx, sessionIndexKey(customerID), id).Err()
				continue
			}
			return nil, err
		}
		sessions = append(sessions, session)
	}

	// Oldest first, so the original login device appears at the top
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	return sessions, nil
}

// Touch refreshes the last-active timestamp and extends the session TTL
func (r *SessionRepository) Touch(ctx context.Context, customerID, sessionID string, at time.Time) error {
	session, err := r.GetByID(ctx, customerID, sessionID)
	if err != nil {
		return err
	}

	session.LastActive = at

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return r.client.Set(ctx, sessionKey(customerID, sessionID), data, r.ttl).Err()
}

// Delete removes one session. Deleting the caller's current session is
// allowed; it is simply a logout of that device.
func (r *SessionRepository) Delete(ctx context.Context, customerID, sessionID string) error {
	deleted, err := r.client.Del(ctx, sessionKey(customerID, sessionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if err := r.client.SRem(ctx, sessionIndexKey(customerID), sessionID).Err(); err != nil {
		return fmt.Errorf("failed to unindex session: %w", err)
	}

	if deleted == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteAllByCustomer clears the whole registry for a customer (logout-all)
func (r *SessionRepository) DeleteAllByCustomer(ctx context.Context, customerID string) error {
	ids, err := r.client.SMembers(ctx, sessionIndexKey(customerID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list session index: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(customerID, id))
	}
	keys = append(keys, sessionIndexKey(customerID))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	return nil
}
