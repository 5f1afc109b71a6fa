package handlers

import (
	"net/http"

	"smsgateway/internal/analytics"
	"smsgateway/internal/config"
	"smsgateway/internal/db"
	"smsgateway/internal/middleware"
	"smsgateway/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Admin roles. roleSuper is never grantable, so only super admins pass it.
const (
	RolePromo   = "promo"
	RoleFinance = "finance"
	RoleOps     = "ops"
	roleSuper   = "super"
)

var grantableRoles = map[string]bool{
	RolePromo:   true,
	RoleFinance: true,
	RoleOps:     true,
}

type Deps struct {
	TxRunner    db.TxRunner
	Users       UserStore
	Admins      AdminStore
	Audit       AuditStore
	APIKeys     APIKeyStore
	Contacts    ContactStore
	Templates   TemplateStore
	Wallet      WalletService
	SMS         SMSService
	Delivery    DeliveryService
	Promo       PromoService
	Maintenance MaintenanceService
	Cleanup     CleanupTrigger
	Deletions   DeletionQueue
	Analytics   *analytics.Counter
	Hub         *websocket.Hub
}

type Handler struct {
	cfg         config.Config
	txRunner    db.TxRunner
	users       UserStore
	admin       AdminStore
	audit       AuditStore
	apiKeys     APIKeyStore
	contacts    ContactStore
	templates   TemplateStore
	wallet      WalletService
	sms         SMSService
	delivery    DeliveryService
	promo       PromoService
	maintenance MaintenanceService
	cleanup     CleanupTrigger
	deletions   DeletionQueue
	analytics   *analytics.Counter
	hub         *websocket.Hub
}

func New(cfg config.Config, deps Deps) *Handler {
	counter := deps.Analytics
	if counter == nil {
		counter = analytics.NewCounter()
	}
	return &Handler{
		cfg:         cfg,
		txRunner:    deps.TxRunner,
		users:       deps.Users,
		admin:       deps.Admins,
		audit:       deps.Audit,
		apiKeys:     deps.APIKeys,
		contacts:    deps.Contacts,
		templates:   deps.Templates,
		wallet:      deps.Wallet,
		sms:         deps.SMS,
		delivery:    deps.Delivery,
		promo:       deps.Promo,
		maintenance: deps.Maintenance,
		cleanup:     deps.Cleanup,
		deletions:   deps.Deletions,
		analytics:   counter,
		hub:         deps.Hub,
	}
}

func (h *Handler) Routes() http.Handler {
	authenticated := middleware.Auth(h.cfg.JWTSecret, h.apiKeys)

	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.APIKeyHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.RateLimit(h.cfg.RateLimit.Standard))
	router.Use(analytics.Middleware(h.analytics))

	router.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(h.cfg.RateLimit.Strict))
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(authenticated).Get("/me", h.Me)
	})

	router.Route("/wallet", func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/balance", h.GetBalance)
		r.Post("/topup", h.Topup)
		r.Get("/transactions", h.ListTransactions)
		r.Get("/self-check", h.SelfCheck)
	})

	router.Route("/sms", func(r chi.Router) {
		r.Use(middleware.APIRateLimit(h.cfg.RateLimit.API))
		r.Use(authenticated)
		r.Post("/send", h.SendSMS)
		r.Get("/history", h.SMSHistory)
		r.Delete("/history/{id}", h.DeleteSMSHistory)
		r.Get("/{id}/reports", h.ListDeliveryReports)
		r.Delete("/reports/{id}", h.DeleteDeliveryReport)
	})
	router.Post("/callbacks/delivery", h.DeliveryCallback)

	router.Route("/promo", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/validate", h.ValidatePromo)
		r.Post("/apply", h.ApplyPromo)
		r.Get("/codes/{code}", h.GetPromoCode)
	})

	router.Route("/referrals", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/", h.CreateReferral)
		r.Get("/", h.ListReferrals)
		r.Get("/rewards", h.ReferralRewards)
		r.Delete("/{code}", h.DeleteReferral)
	})

	router.Route("/api-keys", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/", h.CreateAPIKey)
		r.Get("/", h.ListAPIKeys)
		r.Post("/{id}/deactivate", h.DeactivateAPIKey)
		r.Delete("/{id}", h.DeleteAPIKey)
	})

	router.Route("/contacts", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/", h.CreateContact)
		r.Get("/", h.ListContacts)
		r.Get("/{id}", h.GetContact)
		r.Put("/{id}", h.UpdateContact)
		r.Delete("/{id}", h.DeleteContact)
	})

	router.Route("/templates", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/", h.CreateTemplate)
		r.Get("/", h.ListTemplates)
		r.Get("/{id}", h.GetTemplate)
		r.Put("/{id}", h.UpdateTemplate)
		r.Delete("/{id}", h.DeleteTemplate)
	})

	router.Route("/me", func(r chi.Router) {
		r.Use(authenticated)
		r.Delete("/", h.RequestAccountDeletion)
		r.Get("/deletion/{id}", h.GetAccountDeletion)
		r.Delete("/deletion/{id}", h.CancelAccountDeletion)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticated)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.admin, RolePromo))
			r.Post("/promo/codes", h.AdminCreatePromo)
			r.Get("/promo/codes", h.AdminListPromos)
			r.Put("/promo/codes/{code}", h.AdminUpdatePromo)
			r.Delete("/promo/codes/{code}", h.AdminDeactivatePromo)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.admin, RoleFinance))
			r.Post("/promo/usages/{id}/rewards/{type}/paid", h.AdminMarkRewardPaid)
			r.Get("/reconcile", h.Reconcile)
			r.Get("/audit", h.ListAuditLogs)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.admin, RoleOps))
			r.Get("/analytics", h.Analytics)
			r.Get("/maintenance/status", h.MaintenanceStatus)
			r.Post("/maintenance/cleanup", h.TriggerCleanup)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.admin, roleSuper))
			r.Post("/promote", h.PromoteAdmin)
			r.Post("/roles/grant", h.GrantRole)
		})
	})

	router.Get("/ws/balances", h.WSBalances)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
