package models

import "time"

// Notification categories surfaced in the portal feed.
const (
	NotificationTypeOrder   = "order"
	NotificationTypeRepair  = "repair"
	NotificationTypeInvoice = "invoice"
	NotificationTypeAccount = "account"
	NotificationTypePromo   = "promo"
)

type Notification struct {
	ID         string
	CustomerID string
	Type       string
	Title      string
	Body       string
	Link       *string // optional deep link into the portal
	IsRead     bool
	CreatedAt  time.Time
}

// NotificationFeed is a page of notifications together with the unread total.
// UnreadCount is read from the store in the same transaction as the list, so
// it always equals the number of notifications with IsRead = false.
type NotificationFeed struct {
	Notifications []*Notification
	UnreadCount   int
}

// ValidNotificationType reports whether t is a known feed category.
func ValidNotificationType(t string) bool {
	switch t {
	case NotificationTypeOrder, NotificationTypeRepair, NotificationTypeInvoice,
		NotificationTypeAccount, NotificationTypePromo:
		return true
	}
	return false
}
