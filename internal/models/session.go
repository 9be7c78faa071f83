package models

import "time"

// Session records one authenticated device. Sessions live in Redis with a TTL
// equal to the refresh-token lifetime. "Current" is not stored: it is derived
// by comparing a session ID against the sid claim of the presented token, so
// exactly one session is current from any caller's point of view.
type Session struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Device     string    `json:"device"`
	Location   string    `json:"location,omitempty"`
	IPAddress  string    `json:"ip_address"` // stored pre-masked, e.g. "84.212.x.x"
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}
