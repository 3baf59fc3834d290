package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/muamalati/internal/audit"
	"github.com/frahmantamala/muamalati/internal/auth"
	"github.com/frahmantamala/muamalati/internal/core/user"
	"github.com/frahmantamala/muamalati/internal/general"
	"github.com/frahmantamala/muamalati/internal/notification"
	"github.com/frahmantamala/muamalati/internal/transaction"
	"github.com/frahmantamala/muamalati/internal/transport/middleware"
	"github.com/frahmantamala/muamalati/internal/transport/swagger"
	userHandler "github.com/frahmantamala/muamalati/internal/user"
	"github.com/frahmantamala/muamalati/pkg/metrics"
)

// Routes carries everything the router mounts. Nil handlers leave their routes unmounted.
type Routes struct {
	Auth         *auth.Handler
	User         *userHandler.Handler
	General      *general.Handler
	Transaction  *transaction.Handler
	Notification *notification.Handler

	RBAC        *auth.RBACAuthorization
	Audit       *audit.Recorder
	RateLimiter *middleware.RateLimiter
	Health      *HealthHandler

	AllowedOrigins []string
	MetricsPath    string
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, rt Routes) {
	logger := rt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rbac := rt.RBAC
	if rbac == nil {
		rbac = auth.NewRBACAuthorization(logger)
	}
	record := func(action, entity string) func(http.Handler) http.Handler {
		if rt.Audit == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return rt.Audit.Middleware(action, entity)
	}

	// Apply global middleware
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.SecurityHeaders)
	router.Use(middleware.CORS(rt.AllowedOrigins))
	router.Use(metrics.Instrument)
	router.Use(middleware.LoggingMiddleware(logger))

	if rt.MetricsPath != "" {
		router.Handle(rt.MetricsPath, metrics.Handler())
	}

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", swagger.SpecHandler)
	router.Handle("/swagger/*", swagger.Handler())

	if rt.Health != nil {
		router.Get("/health", rt.Health.healthCheckHandler)
	}

	router.Route("/api", func(r chi.Router) {
		if rt.Health != nil {
			r.Get("/health", rt.Health.healthCheckHandler)
			r.Get("/ping", rt.Health.pingHandler)
		}

		r.Group(func(r chi.Router) {
			if rt.RateLimiter != nil {
				r.Use(rt.RateLimiter.Middleware)
			}

			if rt.Auth != nil {
				r.With(record("register", "user")).Post("/auth/register", rt.Auth.Register)
				r.With(record("login", "user")).Post("/auth/login", rt.Auth.Login)
			}

			if rt.General != nil {
				r.Get("/general/provinces", rt.General.Provinces)
				r.Get("/general/departments", rt.General.Departments)
				r.Get("/general/transaction-types", rt.General.TransactionTypes)
			}

			if rt.Auth == nil {
				return
			}

			// Protected routes that require authentication
			r.Group(func(pr chi.Router) {
				pr.Use(rt.Auth.AuthMiddleware)
				pr.Use(middleware.UserContext)

				if rt.User != nil {
					pr.Get("/auth/profile", rt.User.GetProfile)
					pr.With(record("update_profile", "user")).Put("/auth/profile", rt.User.UpdateProfile)
					pr.With(record("change_password", "user")).Post("/auth/change-password", rt.User.ChangePassword)
				}

				if rt.General != nil {
					pr.Get("/general/rejection-reasons", rt.General.RejectionReasons)
					pr.Get("/general/statistics", rt.General.Statistics)
				}

				if rt.Transaction != nil {
					pr.Route("/transactions", func(tr chi.Router) {
						tr.With(rbac.RequireCitizen(), record("create_transaction", "transaction")).Post("/", rt.Transaction.Create)
						tr.Get("/", rt.Transaction.List)
						tr.With(rbac.RequireStaff()).Get("/export", rt.Transaction.Export)
						tr.Get("/{id}", rt.Transaction.Get)
						tr.With(rbac.RequireStaff(), record("update_transaction", "transaction")).Put("/{id}", rt.Transaction.Update)
						tr.With(record("delete_transaction", "transaction")).Delete("/{id}", rt.Transaction.Delete)
						tr.With(rbac.RequireCitizen(), record("submit_transaction", "transaction")).Post("/{id}/submit", rt.Transaction.Submit)
						tr.With(rbac.RequireRoles(user.RoleCitizen, user.RoleAdmin), record("cancel_transaction", "transaction")).Post("/{id}/cancel", rt.Transaction.Cancel)
						tr.With(rbac.RequireCitizen(), record("upload_document", "document")).Post("/{id}/documents", rt.Transaction.UploadDocument)
					})
				}

				if rt.Notification != nil {
					pr.Route("/notifications", func(nr chi.Router) {
						nr.Get("/", rt.Notification.List)
						nr.Get("/unread-count", rt.Notification.UnreadCount)
						nr.Put("/mark-all-read", rt.Notification.MarkAllRead)
						nr.Put("/{id}/read", rt.Notification.MarkRead)
						nr.Delete("/{id}", rt.Notification.Delete)
					})
				}
			})
		})
	})
}
