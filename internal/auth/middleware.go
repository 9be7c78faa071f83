package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/nornex-as/portal/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// CustomerContextKey is the key for storing token claims in context
	CustomerContextKey contextKey = "customer"
	// RawTokenContextKey is the key for storing the raw bearer token in context
	RawTokenContextKey contextKey = "raw_token"
)

// TokenRevocationChecker defines the interface for checking if tokens are revoked
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// RevocationConfig holds configuration for token revocation behavior
type RevocationConfig struct {
	FailClosed bool // If true, deny access if revocation check fails
}

// Middleware validates JWT tokens and injects claims into the request context
func Middleware(tm *TokenManager) func(next http.Handler) http.Handler {
	return MiddlewareWithRevocation(tm, nil, RevocationConfig{FailClosed: false})
}

// MiddlewareWithRevocation validates JWT tokens and checks revocation status
func MiddlewareWithRevocation(tm *TokenManager, revocationChecker TokenRevocationChecker, revocationConfig RevocationConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			tokenString := parts[1]

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			// Refresh tokens are only accepted by /auth/refresh
			if claims.Type == "refresh" {
				http.Error(w, "refresh tokens cannot be used for API access", http.StatusUnauthorized)
				return
			}

			if revocationChecker != nil && claims.ID != "" {
				revoked, err := revocationChecker.IsTokenRevoked(r.Context(), claims.ID)
				if err != nil {
					if revocationConfig.FailClosed {
						http.Error(w, "unable to verify token status", http.StatusServiceUnavailable)
						return
					}
					// Fail open: availability over strictness when the
					// blacklist is unreachable. Expired tokens still fail.
				}
				if revoked {
					http.Error(w, "token has been revoked", http.StatusUnauthorized)
					return
				}
			}

			ctx := context.WithValue(r.Context(), CustomerContextKey, claims)
			ctx = context.WithValue(ctx, RawTokenContextKey, tokenString)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaimsFromContext extracts token claims from the request context
func GetClaimsFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(CustomerContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetTokenFromContext extracts the raw bearer token from the request context
func GetTokenFromContext(r *http.Request) string {
	token, ok := r.Context().Value(RawTokenContextKey).(string)
	if !ok {
		return ""
	}
	return token
}
