package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nornex-as/portal/internal/auth"
	"github.com/nornex-as/portal/internal/models"
	pkghttp "github.com/nornex-as/portal/pkg/http"
)

// NotificationServiceInterface defines the interface for notification feed logic
type NotificationServiceInterface interface {
	Feed(ctx context.Context, customerID string, limit, offset int) (*models.NotificationFeed, error)
	MarkRead(ctx context.Context, customerID, id string) error
	MarkAllRead(ctx context.Context, customerID string) error
	Remove(ctx context.Context, customerID, id string) error
}

// NotificationHandler handles notification feed HTTP requests
type NotificationHandler struct {
	service NotificationServiceInterface
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(service NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// NotificationResponse represents one notification in the feed response
type NotificationResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Link      string `json:"link,omitempty"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// FeedResponse represents the notification feed with its unread total
type FeedResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	UnreadCount   int                     `json:"unread_count"`
}

func feedToResponse(feed *models.NotificationFeed) *FeedResponse {
	resp := &FeedResponse{
		Notifications: make([]*NotificationResponse, 0, len(feed.Notifications)),
		UnreadCount:   feed.UnreadCount,
	}
	for _, n := range feed.Notifications {
		nr := &NotificationResponse{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Body:      n.Body,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		}
		if n.Link != nil {
			nr.Link = *n.Link
		}
		resp.Notifications = append(resp.Notifications, nr)
	}
	return resp
}

// Feed returns a page of the customer's notifications with the unread count
// @Summary Get notification feed
// @Security BearerAuth
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Page offset"
// @Produce json
// @Success 200 {object} FeedResponse
// @Failure 401 {object} ErrorResponse
// @Router /account/notifications [get]
func (h *NotificationHandler) Feed(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	feed, err := h.service.Feed(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, feedToResponse(feed))
}

// MarkRead flags one notification as read
// @Summary Mark notification read
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /account/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	notificationID := chi.URLParam(r, "id")
	if notificationID == "" {
		pkghttp.WriteBadRequest(w, "Notification ID is required")
		return
	}

	if err := h.service.MarkRead(r.Context(), claims.UserID, notificationID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Notification not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead flags every notification as read
// @Summary Mark all notifications read
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Router /account/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	if err := h.service.MarkAllRead(r.Context(), claims.UserID); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a notification from the feed
// @Summary Delete notification
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /account/notifications/{id} [delete]
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	notificationID := chi.URLParam(r, "id")
	if notificationID == "" {
		pkghttp.WriteBadRequest(w, "Notification ID is required")
		return
	}

	if err := h.service.Remove(r.Context(), claims.UserID, notificationID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Notification not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
