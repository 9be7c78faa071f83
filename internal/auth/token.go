package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nornex-as/portal/internal/models"
)

// CustomerTokenKeyFetcher defines the interface for retrieving a customer's TokenKey
type CustomerTokenKeyFetcher interface {
	GetByID(ctx context.Context, id string) (*models.Customer, error)
}

// TokenManager handles JWT token generation and validation
type TokenManager struct {
	secret             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	customerRepo       CustomerTokenKeyFetcher
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:             secret,
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
	}
}

// SetCustomerRepo enables composite signing with a per-customer TokenKey.
// Call after TokenManager is created to enable the feature.
func (tm *TokenManager) SetCustomerRepo(repo CustomerTokenKeyFetcher) {
	tm.customerRepo = repo
}

// getSigningKey returns composite key (global_secret + customer.TokenKey) or global secret
func (tm *TokenManager) getSigningKey(customerID string) ([]byte, error) {
	if tm.customerRepo == nil {
		return []byte(tm.secret), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	customer, err := tm.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		// Graceful degradation: use global secret if customer not found
		return []byte(tm.secret), nil
	}

	composite := tm.secret + customer.TokenKey
	return []byte(composite), nil
}

// GenerateAccessToken creates a short-lived access token bound to a session
func (tm *TokenManager) GenerateAccessToken(customerID, email, sessionID string) (string, error) {
	return tm.generate("access", customerID, email, sessionID, tm.accessTokenExpiry)
}

// GenerateRefreshToken creates a long-lived refresh token bound to a session
func (tm *TokenManager) GenerateRefreshToken(customerID, email, sessionID string) (string, error) {
	return tm.generate("refresh", customerID, email, sessionID, tm.refreshTokenExpiry)
}

func (tm *TokenManager) generate(tokenType, customerID, email, sessionID string, expiry time.Duration) (string, error) {
	claims := &models.TokenClaims{
		Type:      tokenType,
		UserID:    customerID,
		Email:     email,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signingKey, err := tm.getSigningKey(customerID)
	if err != nil {
		return "", fmt.Errorf("failed to get signing key: %w", err)
	}

	tokenString, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		// Extract customer ID from claims for composite key lookup
		if tmpClaims, ok := token.Claims.(*models.TokenClaims); ok && tmpClaims.UserID != "" {
			signingKey, err := tm.getSigningKey(tmpClaims.UserID)
			if err != nil {
				return []byte(tm.secret), nil
			}
			return signingKey, nil
		}

		return []byte(tm.secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type == "" {
		return nil, fmt.Errorf("invalid token: missing type")
	}

	return claims, nil
}
