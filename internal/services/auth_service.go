package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nornex-as/portal/internal/auth"
	"github.com/nornex-as/portal/internal/models"
	pkgauth "github.com/nornex-as/portal/pkg/auth"
	pkghttp "github.com/nornex-as/portal/pkg/http"
	pkglogger "github.com/nornex-as/portal/pkg/logger"
)

// CustomerRepository defines the interface for customer data access
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*models.Customer, error)
	GetByEmail(ctx context.Context, email string) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) (*models.Customer, error)
	Update(ctx context.Context, id string, customer *models.Customer) (*models.Customer, error)
	Delete(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	SaveCompanyProfile(ctx context.Context, profile *models.CompanyProfile) error
}

// SessionRepository defines the interface for the device session registry
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, customerID, sessionID string) (*models.Session, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*models.Session, error)
	Touch(ctx context.Context, customerID, sessionID string, at time.Time) error
	Delete(ctx context.Context, customerID, sessionID string) error
	DeleteAllByCustomer(ctx context.Context, customerID string) error
}

// TokenRevocationRepository defines the interface for token revocation operations
type TokenRevocationRepository interface {
	RevokeToken(ctx context.Context, jti, customerID, tokenType string, expiresAt time.Time, reason string) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// LoginMetadata carries device information captured at the HTTP edge
type LoginMetadata struct {
	IPAddress string
	UserAgent string
	Location  string
}

// RegisterInput is the data needed to create a new customer account
type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Phone       string
	AccountType string
	CompanyName string
	OrgNumber   string
}

// AuthService handles authentication business logic
type AuthService struct {
	repo         CustomerRepository
	sessionRepo  SessionRepository
	revokeRepo   TokenRevocationRepository
	tm           *auth.TokenManager
	totp         *auth.TOTPManager
	notification *NotificationService
	pinCanceler  PINCanceler
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
	env          string
}

// PINCanceler voids a pending password-change PIN. Satisfied by
// PasswordService; optional so auth can be wired before the password flow.
type PINCanceler interface {
	Cancel(ctx context.Context, customerID string) error
}

// SetPINCanceler wires the password-change flow so logout clears any
// pending PIN state.
func (s *AuthService) SetPINCanceler(p PINCanceler) {
	s.pinCanceler = p
}

// NewAuthService creates a new AuthService
func NewAuthService(
	repo CustomerRepository,
	sessionRepo SessionRepository,
	revokeRepo TokenRevocationRepository,
	tm *auth.TokenManager,
	totp *auth.TOTPManager,
	notification *NotificationService,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	env string,
) *AuthService {
	return &AuthService{
		repo:         repo,
		sessionRepo:  sessionRepo,
		revokeRepo:   revokeRepo,
		tm:           tm,
		totp:         totp,
		notification: notification,
		logger:       logger,
		auditLogger:  auditLogger,
		env:          env,
	}
}

// CustomerResponse represents a customer in the HTTP response
type CustomerResponse struct {
	ID          string           `json:"id"`
	Email       string           `json:"email"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	Phone       string           `json:"phone,omitempty"`
	AccountType string           `json:"account_type"`
	Company     *CompanyResponse `json:"company_info,omitempty"`
	MFAEnabled  bool             `json:"mfa_enabled"`
	CreatedAt   string           `json:"created_at"`
	LastLoginAt string           `json:"last_login_at,omitempty"`
}

// CompanyResponse represents the company part of a company account
type CompanyResponse struct {
	CompanyName   string               `json:"company_name"`
	OrgNumber     string               `json:"org_number"`
	VATNumber     string               `json:"vat_number,omitempty"`
	Industry      string               `json:"industry,omitempty"`
	ContactPerson string               `json:"contact_person"`
	BillingStreet string               `json:"billing_street"`
	BillingZip    string               `json:"billing_zip"`
	BillingCity   string               `json:"billing_city"`
	Departments   []DepartmentResponse `json:"departments"`
}

// DepartmentResponse represents a company department
type DepartmentResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	EmployeeCount int    `json:"employee_count"`
	Budget        int64  `json:"budget"`
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	Customer     *CustomerResponse `json:"customer"`
}

// Login authenticates a customer against the credential store and opens a
// device session. The account type comes from the stored account, never from
// the shape of the email address. totpCode is required when MFA is enabled.
func (s *AuthService) Login(ctx context.Context, email, password, totpCode string, meta LoginMetadata) (*AuthResponse, error) {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		s.logger.Warn("login attempt with empty email")
		return nil, models.ErrUnauthorized
	}

	customer, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				IPAddress:     meta.IPAddress,
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get customer by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(customer); err != nil {
		s.logger.Info("login blocked due to account state",
			slog.String("customer_id", customer.ID),
			slog.String("status", customer.Status))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			CustomerID:    customer.ID,
			IPAddress:     meta.IPAddress,
			FailureReason: "account_blocked",
			Success:       false,
		})
		return nil, err
	}

	if err := pkgauth.ComparePassword(customer.PasswordHash, password); err != nil {
		s.logger.Info("login failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			CustomerID:    customer.ID,
			IPAddress:     meta.IPAddress,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return nil, models.ErrUnauthorized
	}

	if customer.MFAEnabled {
		if err := s.verifyTOTP(customer, totpCode); err != nil {
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				CustomerID:    customer.ID,
				IPAddress:     meta.IPAddress,
				FailureReason: "mfa",
				Success:       false,
			})
			return nil, err
		}
	}

	session := &models.Session{
		ID:         uuid.New().String(),
		CustomerID: customer.ID,
		Device:     deviceFromUserAgent(meta.UserAgent),
		Location:   meta.Location,
		IPAddress:  pkghttp.MaskIP(meta.IPAddress),
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		s.logger.Error("failed to create session", slog.String("customer_id", customer.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	accessToken, refreshToken, err := s.issueTokenPair(customer, session.ID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.TouchLastLogin(ctx, customer.ID, time.Now()); err != nil {
		s.logger.Warn("failed to stamp last login", slog.String("customer_id", customer.ID), slog.Any("error", err))
	}

	s.notification.NotifyNewLogin(ctx, customer.ID, session.Device, session.IPAddress)

	s.logger.Info("customer logged in", slog.String("customer_id", customer.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:  "login_success",
		CustomerID: customer.ID,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Success:    true,
	})

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Customer:     CustomerToResponse(customer),
	}, nil
}

func (s *AuthService) verifyTOTP(customer *models.Customer, code string) error {
	if code == "" {
		return models.ErrMFARequired
	}
	if len(customer.TOTPSecret) == 0 {
		s.logger.Error("mfa enabled but no secret stored", slog.String("customer_id", customer.ID))
		return models.ErrInternalServer
	}

	secret, err := s.totp.DecryptSecret(customer.TOTPSecret, customer.TOTPNonce)
	if err != nil {
		s.logger.Error("failed to decrypt totp secret", slog.String("customer_id", customer.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	valid, err := s.totp.ValidateTOTP(secret, code)
	if err != nil {
		s.logger.Error("failed to validate totp", slog.String("customer_id", customer.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !valid {
		return models.ErrMFAInvalidCode
	}

	return nil
}

// Register creates a new customer account. A company profile is attached only
// when the account is a company account and a company name was supplied;
// otherwise the account starts without one.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)

	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrBadRequest)
	}
	if firstName == "" || lastName == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrBadRequest)
	}
	if input.AccountType != models.AccountTypePrivate && input.AccountType != models.AccountTypeCompany {
		return nil, fmt.Errorf("%w: unknown account type %q", models.ErrBadRequest, input.AccountType)
	}

	if err := pkgauth.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: customer already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if customer exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	customer := &models.Customer{
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    firstName,
		LastName:     lastName,
		AccountType:  input.AccountType,
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		customer.Phone = &phone
	}

	if input.AccountType == models.AccountTypeCompany {
		companyName := strings.TrimSpace(input.CompanyName)
		if companyName != "" {
			orgNumber := strings.TrimSpace(input.OrgNumber)
			if orgNumber != "" && !ValidOrgNumber(orgNumber) {
				return nil, fmt.Errorf("%w: invalid organization number", models.ErrBadRequest)
			}
			customer.Company = &models.CompanyProfile{
				CompanyName:   companyName,
				OrgNumber:     orgNumber,
				ContactPerson: customer.FullName(),
			}
		}
	}

	created, err := s.repo.Create(ctx, customer)
	if err != nil {
		s.logger.Error("failed to create customer", slog.Any("error", err))
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, models.ErrInternalServer
	}

	s.notification.NotifyWelcome(ctx, created.ID, created.FirstName)

	s.logger.Info("customer registered",
		slog.String("customer_id", created.ID),
		slog.String("account_type", created.AccountType))
	s.auditLogger.LogAccountAction("customer_registered", created.ID, "", nil)

	return created, nil
}

// RefreshToken generates a new token pair from a refresh token. The session
// the refresh token is bound to must still exist in the registry.
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string) (*AuthResponse, error) {
	if refreshTokenString = strings.TrimSpace(refreshTokenString); refreshTokenString == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateToken(refreshTokenString)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	if claims.Type != "refresh" {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("customer_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	customer, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get customer for token refresh", slog.String("customer_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(customer); err != nil {
		s.logger.Info("token refresh blocked due to account state",
			slog.String("customer_id", customer.ID),
			slog.String("status", customer.Status))
		return nil, models.ErrUnauthorized
	}

	// A terminated session invalidates its refresh token
	if claims.SessionID != "" {
		if _, err := s.sessionRepo.GetByID(ctx, customer.ID, claims.SessionID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				s.logger.Info("token refresh blocked: session terminated",
					slog.String("customer_id", customer.ID))
				return nil, models.ErrUnauthorized
			}
			s.logger.Error("failed to check session", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if err := s.sessionRepo.Touch(ctx, customer.ID, claims.SessionID, time.Now()); err != nil {
			s.logger.Warn("failed to touch session", slog.Any("error", err))
		}
	}

	accessToken, refreshToken, err := s.issueTokenPair(customer, claims.SessionID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("token refreshed", slog.String("customer_id", customer.ID))

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Customer:     CustomerToResponse(customer),
	}, nil
}

// Logout revokes the presented access token and removes its device session.
// All other ephemeral state tied to the session (pending password change)
// expires with it.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tm.ValidateToken(accessToken)
	if err != nil {
		return models.ErrUnauthorized
	}

	expiresAt := claims.ExpiresAt.Time
	if err := s.revokeRepo.RevokeToken(ctx, claims.ID, claims.UserID, claims.Type, expiresAt, "logout"); err != nil {
		s.logger.Error("failed to revoke token", slog.String("jti", claims.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if claims.SessionID != "" {
		if err := s.sessionRepo.Delete(ctx, claims.UserID, claims.SessionID); err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to delete session", slog.String("customer_id", claims.UserID), slog.Any("error", err))
			return models.ErrInternalServer
		}
	}

	s.cancelPendingPasswordChange(ctx, claims.UserID)

	s.logger.Info("customer logged out", slog.String("customer_id", claims.UserID))
	return nil
}

// LogoutAll clears the whole session registry and rotates the customer's
// TokenKey, invalidating every outstanding token.
func (s *AuthService) LogoutAll(ctx context.Context, customerID string) error {
	if err := s.sessionRepo.DeleteAllByCustomer(ctx, customerID); err != nil {
		s.logger.Error("failed to delete sessions", slog.String("customer_id", customerID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	customer, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		s.logger.Error("failed to get customer", slog.String("customer_id", customerID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	newTokenKey, err := pkgauth.GenerateTokenKey()
	if err != nil {
		s.logger.Error("failed to generate new token key", slog.Any("error", err))
		return models.ErrInternalServer
	}

	customer.TokenKey = newTokenKey
	if _, err := s.repo.Update(ctx, customerID, customer); err != nil {
		s.logger.Error("failed to rotate token key", slog.String("customer_id", customerID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.cancelPendingPasswordChange(ctx, customerID)

	s.logger.Info("customer logged out from all devices", slog.String("customer_id", customerID))
	return nil
}

// cancelPendingPasswordChange voids any outstanding password-change PIN.
// Best effort: the PIN expires on its own either way.
func (s *AuthService) cancelPendingPasswordChange(ctx context.Context, customerID string) {
	if s.pinCanceler == nil {
		return
	}
	if err := s.pinCanceler.Cancel(ctx, customerID); err != nil {
		s.logger.Warn("failed to cancel pending password change", slog.String("customer_id", customerID), slog.Any("error", err))
	}
}

func (s *AuthService) issueTokenPair(customer *models.Customer, sessionID string) (string, string, error) {
	accessToken, err := s.tm.GenerateAccessToken(customer.ID, customer.Email, sessionID)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("customer_id", customer.ID), slog.Any("error", err))
		return "", "", models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(customer.ID, customer.Email, sessionID)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("customer_id", customer.ID), slog.Any("error", err))
		return "", "", models.ErrInternalServer
	}

	return accessToken, refreshToken, nil
}

// validateAccountState checks if the account is in a valid state for authentication
func validateAccountState(customer *models.Customer) error {
	switch customer.Status {
	case "disabled":
		return models.ErrAccountDisabled
	case "suspended":
		return models.ErrAccountSuspended
	case "active":
		return nil
	default:
		return fmt.Errorf("unknown account status: %s", customer.Status)
	}
}

// deviceFromUserAgent derives a short device descriptor from a User-Agent
func deviceFromUserAgent(userAgent string) string {
	ua := strings.ToLower(userAgent)

	var os string
	switch {
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		os = "iOS"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		return "Unknown device"
	}

	var browser string
	switch {
	case strings.Contains(ua, "edg/"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	default:
		return os
	}

	return browser + " on " + os
}

// CustomerToResponse converts a customer model to its response DTO
func CustomerToResponse(c *models.Customer) *CustomerResponse {
	resp := &CustomerResponse{
		ID:          c.ID,
		Email:       c.Email,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		AccountType: c.AccountType,
		MFAEnabled:  c.MFAEnabled,
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
	if c.Phone != nil {
		resp.Phone = *c.Phone
	}
	if c.LastLoginAt != nil {
		resp.LastLoginAt = c.LastLoginAt.Format(time.RFC3339)
	}
	if c.Company != nil {
		resp.Company = companyToResponse(c.Company)
	}
	return resp
}

func companyToResponse(p *models.CompanyProfile) *CompanyResponse {
	resp := &CompanyResponse{
		CompanyName:   p.CompanyName,
		OrgNumber:     p.OrgNumber,
		ContactPerson: p.ContactPerson,
		BillingStreet: p.BillingStreet,
		BillingZip:    p.BillingZip,
		BillingCity:   p.BillingCity,
		Departments:   make([]DepartmentResponse, 0, len(p.Departments)),
	}
	if p.VATNumber != nil {
		resp.VATNumber = *p.VATNumber
	}
	if p.Industry != nil {
		resp.Industry = *p.Industry
	}
	for _, d := range p.Departments {
		resp.Departments = append(resp.Departments, DepartmentResponse{
			ID:            d.ID,
			Name:          d.Name,
			EmployeeCount: d.EmployeeCount,
			Budget:        d.Budget,
		})
	}
	return resp
}
