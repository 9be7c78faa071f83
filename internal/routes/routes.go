package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/nornex-as/portal/internal/auth"
	"github.com/nornex-as/portal/internal/handlers"
	"github.com/nornex-as/portal/internal/middleware"
	"github.com/nornex-as/portal/internal/repositories"
)

// Handlers groups the HTTP handlers registered on the router
type Handlers struct {
	Auth         *handlers.AuthHandler
	Account      *handlers.AccountHandler
	Address      *handlers.AddressHandler
	Notification *handlers.NotificationHandler
	Session      *handlers.SessionHandler
	Password     *handlers.PasswordHandler
	MFA          *handlers.MFAHandler
	Company      *handlers.CompanyHandler
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	tokenManager *auth.TokenManager,
	revokeRepo *repositories.TokenRevocationRepository,
) {
	authRateLimit := middleware.DefaultAuthRateLimit()
	lookupRateLimit := middleware.DefaultLookupRateLimit()

	// Public routes
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/login", h.Auth.Login)
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/register", h.Auth.Register)
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/refresh", h.Auth.RefreshToken)
	router.With(middleware.RateLimitByIP(lookupRateLimit)).Get("/companies/{orgNumber}", h.Company.Lookup)

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(auth.MiddlewareWithRevocation(tokenManager, revokeRepo, auth.RevocationConfig{FailClosed: false}))

		r.Post("/auth/logout", h.Auth.Logout)
		r.Post("/auth/logout-all", h.Auth.LogoutAll)

		r.Get("/account/profile", h.Account.GetProfile)
		r.Put("/account/profile", h.Account.UpdateProfile)
		r.Put("/account/company", h.Account.UpdateCompany)

		r.Get("/account/addresses", h.Address.List)
		r.Post("/account/addresses", h.Address.Create)
		r.Put("/account/addresses/{id}", h.Address.Update)
		r.Delete("/account/addresses/{id}", h.Address.Delete)
		r.Post("/account/addresses/{id}/default", h.Address.SetDefault)

		r.Get("/account/notifications", h.Notification.Feed)
		r.Post("/account/notifications/{id}/read", h.Notification.MarkRead)
		r.Post("/account/notifications/read-all", h.Notification.MarkAllRead)
		r.Delete("/account/notifications/{id}", h.Notification.Delete)

		r.Get("/account/sessions", h.Session.List)
		r.Delete("/account/sessions/{id}", h.Session.Terminate)

		r.With(middleware.RateLimitByIP(middleware.DefaultPINRateLimit())).
			Post("/account/password/request", h.Password.Request)
		r.Post("/account/password/confirm", h.Password.Confirm)
		r.Post("/account/password/cancel", h.Password.Cancel)
		r.Get("/account/password/status", h.Password.Status)

		r.Post("/account/mfa/setup", h.MFA.Setup)
		r.Post("/account/mfa/enable", h.MFA.Enable)
		r.Post("/account/mfa/disable", h.MFA.Disable)
	})
}
