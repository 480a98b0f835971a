package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/farmlink/farmlink-backend/api/controllers"
	cartcontrollers "github.com/farmlink/farmlink-backend/api/controllers/cart"
	ordercontrollers "github.com/farmlink/farmlink-backend/api/controllers/orders"
	"github.com/farmlink/farmlink-backend/api/middleware"
	"github.com/farmlink/farmlink-backend/internal/auth"
	"github.com/farmlink/farmlink-backend/internal/cart"
	"github.com/farmlink/farmlink-backend/internal/catalog"
	"github.com/farmlink/farmlink-backend/internal/deliveries"
	"github.com/farmlink/farmlink-backend/internal/orders"
	"github.com/farmlink/farmlink-backend/pkg/auth/session"
	"github.com/farmlink/farmlink-backend/pkg/config"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	"github.com/farmlink/farmlink-backend/pkg/logger"
	"github.com/farmlink/farmlink-backend/pkg/metrics"
	pkgredis "github.com/farmlink/farmlink-backend/pkg/redis"
)

// Params carries everything the router mounts. Nil Idempotency or
// RateLimiter disables the corresponding middleware.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	Sessions    session.AccessSessionChecker
	Idempotency pkgredis.IdempotencyStore
	RateLimiter middleware.RateLimiter
	Readiness   map[string]controllers.Pinger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Auth       auth.Service
	Cart       cart.Service
	Orders     orders.Service
	Catalog    catalog.Service
	Deliveries deliveries.Service
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.AuthRateLimitPolicy{
		Name:       "login",
		Window:     cfg.AuthRateLimit.LoginWindow,
		IPLimit:    cfg.AuthRateLimit.LoginIPLimit,
		EmailLimit: cfg.AuthRateLimit.LoginEmailLimit,
	}
	registerPolicy := middleware.AuthRateLimitPolicy{
		Name:       "register",
		Window:     cfg.AuthRateLimit.RegisterWindow,
		IPLimit:    cfg.AuthRateLimit.RegisterIPLimit,
		EmailLimit: cfg.AuthRateLimit.RegisterEmailLimit,
	}
	idempotent := middleware.Idempotency(p.Idempotency, 0, logg)
	authenticated := middleware.Auth(cfg.JWT, p.Sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.Readiness, logg))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, p.RateLimiter, logg)).Post("/register", controllers.AuthRegister(p.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.RateLimiter, logg)).Post("/login", controllers.AuthLogin(p.Auth, cfg.JWT, logg))
		r.With(authenticated).Post("/logout", controllers.AuthLogout(p.Auth, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authenticated)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.Fetch(p.Cart, logg))
			r.Delete("/", cartcontrollers.Clear(p.Cart, logg))
			r.Get("/count", cartcontrollers.Count(p.Cart, logg))
			r.Post("/items", cartcontrollers.AddItem(p.Cart, logg))
			r.Put("/items/{cartItemId}", cartcontrollers.UpdateItem(p.Cart, logg))
			r.Delete("/items/{cartItemId}", cartcontrollers.RemoveItem(p.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(idempotent).Post("/", ordercontrollers.Place(p.Orders, logg))
			r.With(idempotent).Post("/from-cart", ordercontrollers.PlaceFromCart(p.Orders, logg))
			r.Get("/me", ordercontrollers.ListMine(p.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))
			r.With(idempotent).Post("/{orderId}/cancel", ordercontrollers.Cancel(p.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.RoleAdmin)).Patch("/{orderId}/status", ordercontrollers.UpdateStatus(p.Orders, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/{itemId}", controllers.GetInventoryItem(p.Catalog, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleAdmin, enums.RoleFarmer))
				r.Post("/", controllers.CreateInventoryItem(p.Catalog, logg))
				r.Patch("/{itemId}/stock", controllers.SetInventoryStock(p.Catalog, logg))
			})
		})

		r.Route("/listings", func(r chi.Router) {
			r.Get("/{listingId}", controllers.GetListing(p.Catalog, logg))
			r.With(middleware.RequireRole(logg, enums.RoleAdmin, enums.RoleFarmer)).Post("/", controllers.CreateListing(p.Catalog, logg))
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleDriver)).Get("/me", controllers.MyDeliveries(p.Deliveries, logg))
			r.Get("/{deliveryId}", controllers.GetDelivery(p.Deliveries, logg))
			r.With(middleware.RequireRole(logg, enums.RoleDriver, enums.RoleAdmin)).Patch("/{deliveryId}/status", controllers.UpdateDeliveryStatus(p.Deliveries, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
			r.Patch("/orders/{orderId}/status", ordercontrollers.UpdateStatus(p.Orders, logg))
			r.Patch("/deliveries/{deliveryId}/assign", controllers.AssignDelivery(p.Deliveries, logg))
		})
	})

	return r
}
