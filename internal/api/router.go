package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sevatrust/seva-donations/internal/api/handlers"
	"github.com/sevatrust/seva-donations/internal/auth"
	"github.com/sevatrust/seva-donations/internal/config"
	"github.com/sevatrust/seva-donations/internal/metrics"
	"github.com/sevatrust/seva-donations/internal/middleware"
	"github.com/sevatrust/seva-donations/internal/models"
	"github.com/sevatrust/seva-donations/internal/services"
)

type RouterDeps struct {
	Cfg      config.Config
	Tokens   *auth.TokenManager
	Users    *services.UserService
	Donation *services.DonationService
	Catalog  *services.CatalogService
	Content  *services.ContentService
	Contact  *services.ContactService
}

// contentRoutes maps url segments to content sections.
var contentRoutes = map[string]models.ContentKind{
	"banners":      models.ContentBanners,
	"quotes":       models.ContentQuotes,
	"gallery":      models.ContentGallery,
	"videos":       models.ContentVideos,
	"testimonials": models.ContentTestimonials,
	"social-links": models.ContentSocialLinks,
}

func NewRouter(d RouterDeps) http.Handler {
	am := middleware.NewAuthMiddleware(d.Tokens)
	admin := func(r chi.Router) chi.Router {
		return r.With(am.Auth, middleware.RequireRole(models.RoleAdmin))
	}

	authH := handlers.NewAuthHandler(d.Users)
	donH := handlers.NewDonationHandler(d.Donation)
	payH := handlers.NewPaymentHandler(d.Donation, d.Cfg.FrontendURL)
	catH := handlers.NewCatalogHandler(d.Catalog)
	contactH := handlers.NewContactHandler(d.Contact)
	userH := handlers.NewUserHandler(d.Users)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{d.Cfg.FrontendURL},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	// ---------- donation checkout ----------
	r.With(am.Optional).Post("/donations", donH.Create)
	r.Get("/donations/{txnid}", donH.Status)
	if d.Cfg.Simulated() {
		r.Post("/payments/simulate/confirm", payH.SimulateConfirm)
	} else {
		r.Post("/payments/success", payH.Success)
		r.Post("/payments/failure", payH.Failure)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)

		// ---------- catalog ----------
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", catH.ListCategories)
			r.Get("/{id}", catH.GetCategory)
			r.Get("/{id}/cards", catH.CategoryCards)
			r.Get("/{id}/bank-details", catH.CategoryBankDetails)
			admin(r).Get("/all", catH.ListAllCategories)
			admin(r).Post("/", catH.CreateCategory)
			admin(r).Put("/{id}", catH.UpdateCategory)
			admin(r).Delete("/{id}", catH.DeleteCategory)
		})
		r.Route("/events", func(r chi.Router) {
			r.Get("/", catH.ListEvents)
			r.Get("/{id}", catH.GetEvent)
			r.Get("/{id}/cards", catH.EventCards)
			r.Get("/{id}/bank-details", catH.EventBankDetails)
			admin(r).Get("/all", catH.ListAllEvents)
			admin(r).Post("/", catH.CreateEvent)
			admin(r).Put("/{id}", catH.UpdateEvent)
			admin(r).Delete("/{id}", catH.DeleteEvent)
		})
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", catH.ListCards)
			r.Get("/{id}", catH.GetCard)
			admin(r).Get("/all", catH.ListAllCards)
			admin(r).Post("/", catH.CreateCard)
			admin(r).Put("/{id}", catH.UpdateCard)
			admin(r).Delete("/{id}", catH.DeleteCard)
		})

		// ---------- static sections ----------
		for seg, kind := range contentRoutes {
			h := handlers.NewContentHandler(d.Content, kind)
			r.Route("/"+seg, func(r chi.Router) {
				r.Get("/", h.List)
				r.Get("/{id}", h.Get)
				admin(r).Get("/all", h.ListAll)
				admin(r).Post("/", h.Create)
				admin(r).Put("/{id}", h.Update)
				admin(r).Delete("/{id}", h.Delete)
			})
		}

		r.Route("/contact-messages", func(r chi.Router) {
			r.Post("/", contactH.Submit)
			admin(r).Get("/", contactH.List)
			admin(r).Get("/{id}", contactH.Get)
			admin(r).Put("/{id}/read", contactH.MarkRead)
			admin(r).Delete("/{id}", contactH.Delete)
		})

		// ---------- admin only ----------
		r.Group(func(r chi.Router) {
			r.Use(am.Auth, middleware.RequireRole(models.RoleAdmin))

			r.Get("/users", userH.List)
			r.Post("/users", userH.Create)
			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
			r.Delete("/users/{id}", userH.Delete)

			r.Get("/donations", donH.List)
			r.Get("/donations/{id}", donH.Get)
			r.Delete("/donations/{id}", donH.Delete)
		})
	})

	return r
}
