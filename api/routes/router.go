package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/construplaza/construplaza-backend/api/controllers"
	"github.com/construplaza/construplaza-backend/api/middleware"
	"github.com/construplaza/construplaza-backend/pkg/auth/session"
	"github.com/construplaza/construplaza-backend/pkg/config"
	"github.com/construplaza/construplaza-backend/pkg/db"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/redis"
)

// Services groups the domain services the router hands to controllers.
type Services struct {
	Auth          controllers.AuthService
	Suppliers     controllers.SupplierService
	AdminSupplier controllers.AdminSupplierService
	Search        controllers.SearchService
	Quotes        controllers.QuoteService
	Reviews       controllers.ReviewService
	Subscriptions controllers.SubscriptionService
	Payments      controllers.PaymentService
	Invoices      controllers.InvoiceService
	AdminPayments controllers.AdminPaymentService
	AdminInvoices controllers.AdminInvoiceService
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	sessions session.AccessSessionChecker,
	registry prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/search", controllers.PublicSearch(svcs.Search, logg))
		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", controllers.PublicSupplierList(svcs.Suppliers, logg))
			r.Get("/{supplierId}", controllers.PublicSupplierDetail(svcs.Suppliers, logg))
			r.Get("/{supplierId}/reviews", controllers.PublicReviewList(svcs.Reviews, logg))
		})
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/azul", controllers.AzulWebhook(svcs.Payments, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
	})

	// Supplier onboarding creates the user account too, so it sits outside
	// the authenticated group.
	r.Post("/api/v1/suppliers/register", controllers.SupplierRegister(svcs.Suppliers, logg))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Get("/ping", controllers.PrivatePing())
		r.Post("/v1/auth/logout", controllers.AuthLogout(svcs.Auth, logg))

		r.Route("/v1/suppliers/me", func(r chi.Router) {
			r.Get("/", controllers.SupplierMe(svcs.Suppliers, logg))
			r.Put("/", controllers.SupplierMeUpdate(svcs.Suppliers, logg))
		})

		r.Route("/v1/quotes", func(r chi.Router) {
			r.Post("/", controllers.QuoteCreate(svcs.Quotes, logg))
			r.Get("/", controllers.QuoteListForBuyer(svcs.Quotes, logg))
			r.With(middleware.RequireSupplier(logg)).Get("/inbox", controllers.QuoteListForSupplier(svcs.Quotes, logg))
			r.Get("/{quoteId}", controllers.QuoteDetail(svcs.Quotes, logg))
			r.With(middleware.RequireSupplier(logg)).Post("/{quoteId}/respond", controllers.QuoteRespond(svcs.Quotes, logg))
			r.Post("/{quoteId}/close", controllers.QuoteClose(svcs.Quotes, logg))
		})

		r.Post("/v1/reviews", controllers.ReviewCreate(svcs.Reviews, logg))

		r.Route("/v1/subscriptions", func(r chi.Router) {
			r.Use(middleware.RequireSupplier(logg))
			r.Post("/", controllers.SubscriptionCreate(svcs.Subscriptions, logg))
			r.Get("/current", controllers.SubscriptionCurrent(svcs.Subscriptions, logg))
			r.Post("/cancel", controllers.SubscriptionCancel(svcs.Subscriptions, logg))
			r.Post("/reactivate", controllers.SubscriptionReactivate(svcs.Subscriptions, logg))
			r.Post("/change-plan", controllers.SubscriptionChangePlan(svcs.Subscriptions, logg))
			r.Post("/preview-proration", controllers.SubscriptionPreviewProration(svcs.Subscriptions, logg))
		})

		r.With(middleware.RequireSupplier(logg)).Post("/v1/payments/checkout", controllers.PaymentCheckout(svcs.Payments, logg))
		r.With(middleware.RequireSupplier(logg)).Get("/v1/invoices", controllers.InvoiceList(svcs.Invoices, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Get("/ping", controllers.AdminPing())
		r.Route("/v1/suppliers", func(r chi.Router) {
			r.Get("/", controllers.AdminSupplierList(svcs.AdminSupplier, logg))
			r.Post("/{supplierId}/verify", controllers.AdminSupplierSetVerified(svcs.AdminSupplier, logg))
		})
		r.Get("/v1/payments", controllers.AdminPaymentList(svcs.AdminPayments, logg))
		r.Get("/v1/invoices", controllers.AdminInvoiceList(svcs.AdminInvoices, logg))
		r.Get("/v1/ncf/availability", controllers.AdminNCFAvailability(svcs.AdminInvoices, logg))
		r.Get("/v1/plans", controllers.AdminPlanCatalog(logg))
	})

	return r
}
