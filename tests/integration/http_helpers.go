package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/nornex-as/portal/internal/auth"
	"github.com/nornex-as/portal/internal/config"
	"github.com/nornex-as/portal/internal/database"
	"github.com/nornex-as/portal/internal/handlers"
	"github.com/nornex-as/portal/internal/repositories"
	"github.com/nornex-as/portal/internal/routes"
	"github.com/nornex-as/portal/internal/services"
	pkghttp "github.com/nornex-as/portal/pkg/http"
	pkglogger "github.com/nornex-as/portal/pkg/logger"
)

// SentEmail represents a captured email message
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// MockEmailService captures sent emails for test assertions
type MockEmailService struct {
	SentEmails []SentEmail
	mu         sync.Mutex
}

// SendPasswordChangePIN records the email
func (m *MockEmailService) SendPasswordChangePIN(ctx context.Context, email, pin string, validFor time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	emailMsg := SentEmail{
		To:      email,
		Subject: "Din PIN-kode for passordendring",
		Body:    "PIN-kode: " + pin,
	}
	m.SentEmails = append(m.SentEmails, emailMsg)
	return nil
}

// GetLastEmail returns the most recent email sent
func (m *MockEmailService) GetLastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// TestServer wraps httptest.Server with database, Redis and all dependencies
type TestServer struct {
	Server       *httptest.Server
	Pool         *database.DB
	Redis        *miniredis.Miniredis
	EmailService *MockEmailService
	Config       *config.Config

	brregStub   *httptest.Server
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewTestServer initializes a complete HTTP server with real database,
// in-process Redis, a stubbed company registry and mocked email
func NewTestServer(db *database.DB) (*TestServer, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	mr, err := miniredis.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	brregStub := newBrregStub()

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret-32-characters-long-for-testing",
			TOTPEncryptionKey:  []byte("0123456789abcdef0123456789abcdef"),
			TOTPIssuer:         "NORNEX Portal Test",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
			SessionTTL:         7 * 24 * time.Hour,
			PINLength:          6,
			PINExpiry:          10 * time.Minute,
			PINMaxAttempts:     5,
			CleanupInterval:    1 * time.Hour,
		},
		Server: config.ServerConfig{
			Port:               "0",
			Env:                "test",
			AllowedOrigins:     []string{},
			CompanyRegistryURL: brregStub.URL,
		},
	}

	customerRepo, addressRepo, notificationRepo, revokeRepo := InitializeRepositories(db)
	sessionRepo := repositories.NewSessionRepository(redisClient, cfg.Auth.SessionTTL)

	mockEmail := &MockEmailService{
		SentEmails: []SentEmail{},
	}

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)
	tokenManager.SetCustomerRepo(customerRepo)

	totpManager, err := auth.NewTOTPManager(cfg.Auth.TOTPEncryptionKey, cfg.Auth.TOTPIssuer)
	if err != nil {
		mr.Close()
		brregStub.Close()
		return nil, fmt.Errorf("failed to create TOTP manager: %w", err)
	}

	auditLogger := pkglogger.NewAuditLogger(logger)

	notificationService := services.NewNotificationService(notificationRepo, logger)
	authService := services.NewAuthService(customerRepo, sessionRepo, revokeRepo, tokenManager, totpManager, notificationService, logger, auditLogger, cfg.Server.Env)
	accountService := services.NewAccountService(customerRepo, addressRepo, logger)
	sessionService := services.NewSessionService(sessionRepo, logger)
	passwordService := services.NewPasswordService(
		customerRepo,
		sessionRepo,
		mockEmail,
		redisClient,
		services.PINConfig{
			Length:      cfg.Auth.PINLength,
			TTL:         cfg.Auth.PINExpiry,
			MaxAttempts: cfg.Auth.PINMaxAttempts,
		},
		notificationService,
		logger,
		auditLogger,
	)
	authService.SetPINCanceler(passwordService)
	mfaService := services.NewMFAService(customerRepo, totpManager, logger, auditLogger)
	companyLookup := services.NewCompanyLookupService(cfg.Server.CompanyRegistryURL, logger)

	ipConfig := &pkghttp.IPConfig{
		TrustedProxies: []string{},
	}
	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService, ipConfig),
		Account:      handlers.NewAccountHandler(accountService),
		Address:      handlers.NewAddressHandler(accountService),
		Notification: handlers.NewNotificationHandler(notificationService),
		Session:      handlers.NewSessionHandler(sessionService),
		Password:     handlers.NewPasswordHandler(passwordService),
		MFA:          handlers.NewMFAHandler(mfaService),
		Company:      handlers.NewCompanyHandler(companyLookup),
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, h, tokenManager, revokeRepo)

	server := httptest.NewServer(r)

	return &TestServer{
		Server:       server,
		Pool:         db,
		Redis:        mr,
		EmailService: mockEmail,
		Config:       cfg,
		brregStub:    brregStub,
		redisClient:  redisClient,
		logger:       logger,
	}, nil
}

// Close shuts down the test server and its backing stubs
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
	if ts.brregStub != nil {
		ts.brregStub.Close()
	}
	if ts.redisClient != nil {
		ts.redisClient.Close()
	}
	if ts.Redis != nil {
		ts.Redis.Close()
	}
}

// newBrregStub serves canned company registry lookups for the seeded
// test organization numbers
func newBrregStub() *httptest.Server {
	units := map[string]string{
		"974760673": `{
			"organisasjonsnummer": "974760673",
			"navn": "REGISTERENHETEN I BRØNNØYSUND",
			"naeringskode1": {"beskrivelse": "Generell offentlig administrasjon"},
			"forretningsadresse": {
				"adresse": ["Havnegata 48"],
				"postnummer": "8900",
				"poststed": "BRØNNØYSUND"
			}
		}`,
		"923609016": `{
			"organisasjonsnummer": "923609016",
			"navn": "EQUINOR ASA",
			"naeringskode1": {"beskrivelse": "Utvinning av råolje"},
			"forretningsadresse": {
				"adresse": ["Forusbeen 50"],
				"postnummer": "4035",
				"poststed": "STAVANGER"
			}
		}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/enheter/", func(w http.ResponseWriter, r *http.Request) {
		org := r.URL.Path[len("/enheter/"):]
		body, ok := units[org]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
	return httptest.NewServer(mux)
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with access token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractTokensFromResponse extracts access/refresh tokens from auth response
func ExtractTokensFromResponse(resp *http.Response) (accessToken, refreshToken string, err error) {
	defer resp.Body.Close()

	var authResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", "", fmt.Errorf("failed to parse response: %w", err)
	}

	if access, ok := authResp["access_token"].(string); ok {
		accessToken = access
	}
	if refresh, ok := authResp["refresh_token"].(string); ok {
		refreshToken = refresh
	}

	return accessToken, refreshToken, nil
}
