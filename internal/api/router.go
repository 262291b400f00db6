/**
 * @description
 * HTTP router for the AllRails API. Public routes serve the visitor page and the
 * type registry; owner routes sit behind the bearer-token middleware.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: routing and standard middleware.
 * - github.com/go-chi/cors: browser access from the web frontend.
 */
package api

import (
	"net/http"
	"time"

	allmw "github.com/DanstheMan1981/allrails/pkg/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries the collaborators the router wires in.
type RouterConfig struct {
	Auth           *allmw.Authenticator
	PublicLimiter  allmw.Limiter
	AllowedOrigins []string
}

// NewRouter creates the chi router with all API routes registered.
func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/payment-types", h.PaymentTypesHandler)

		r.Group(func(r chi.Router) {
			if cfg.PublicLimiter != nil {
				r.Use(allmw.RateLimit(cfg.PublicLimiter, h.logger))
			}
			r.Get("/p/{username}", h.PublicPageHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.Middleware)

			r.Get("/profile", h.GetProfileHandler)
			r.Put("/profile", h.UpsertProfileHandler)

			r.Get("/payment-methods", h.ListPaymentMethodsHandler)
			r.Post("/payment-methods", h.CreatePaymentMethodHandler)
			// Registered before /{id} so "reorder" is never read as an id.
			r.Patch("/payment-methods/reorder", h.ReorderPaymentMethodsHandler)
			r.Put("/payment-methods/{id}", h.UpdatePaymentMethodHandler)
			r.Delete("/payment-methods/{id}", h.DeletePaymentMethodHandler)
		})
	})

	return r
}
