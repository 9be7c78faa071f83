package models

import (
	"github.com/golang-jwt/jwt/v5"
)

type TokenClaims struct {
	Type      string `json:"type"` // "access" or "refresh"
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	SessionID string `json:"sid,omitempty"` // ties the token to a device session
	jwt.RegisteredClaims
}
