package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/http/middleware"
)

// RouteRegistrar mounts routes that need an authenticated principal.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// AdminRouteRegistrar mounts routes restricted to the admin role.
type AdminRouteRegistrar interface {
	RegisterAdminRoutes(r chi.Router)
}

// InternalRouteRegistrar mounts operator routes under /internal.
type InternalRouteRegistrar interface {
	RegisterInternalRoutes(r chi.Router)
}

type Options struct {
	JWTSecret          []byte
	ChannelID          string
	ChannelKey         string
	Limiter            middleware.Limiter
	RateLimitPerMinute int
	RequestTimeout     time.Duration
}

func New(opts Options, controllers ...RouteRegistrar) *chi.Mux {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(opts.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("healthy"))
	})
	registerSwaggerRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTPrincipal(opts.JWTSecret))
		r.Use(middleware.RateLimit(opts.Limiter, "api", opts.RateLimitPerMinute, time.Minute))

		for _, c := range controllers {
			c.RegisterRoutes(r)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleAdmin))
			for _, c := range controllers {
				if admin, ok := c.(AdminRouteRegistrar); ok {
					admin.RegisterAdminRoutes(r)
				}
			}
		})
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.BasicAuth(opts.ChannelID, opts.ChannelKey))
		for _, c := range controllers {
			if internal, ok := c.(InternalRouteRegistrar); ok {
				internal.RegisterInternalRoutes(r)
			}
		}
	})

	return r
}
