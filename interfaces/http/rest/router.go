package rest

import (
	"context"
	"net/http"

	"tablegrid/infrastructure/di"
	"tablegrid/interfaces/http/rest/handlers"
	"tablegrid/interfaces/http/rest/middleware"
	apperrors "tablegrid/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Router creates and configures the HTTP router
type Router struct {
	c *di.Container
}

// NewRouter creates a new router instance
func NewRouter(c *di.Container) *Router {
	return &Router{c: c}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	c := rt.c
	cfg := c.Config
	secure := cfg.Environment == "production"

	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(c.ErrorHandler.Middleware)
	router.Use(middleware.Logger(c.Logger))
	router.Use(middleware.Metrics(c.Collector))

	if cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	health := handlers.NewHealthHandler(func(ctx context.Context) error {
		_, err := c.Loader.Load(ctx, false)
		return err
	}, c.Logger)
	router.Get("/health", health.Health)
	router.Get("/ready", health.Ready)
	router.Method(http.MethodGet, "/metrics", c.Collector.Handler())

	authHandler := handlers.NewAuthHandler(c.Gate, c.Issuer, c.LoginLimiter, cfg.LoginRatePerMinute, c.Sessions, c.ErrorHandler, secure, c.Logger)
	router.Get("/login", authHandler.LoginPage)
	router.Post("/login", authHandler.Login)
	router.Post("/logout", authHandler.Logout)

	grid := handlers.NewGridHandler(c.CommandBus, c.QueryBus, c.ErrorHandler, cfg.TableName, c.Logger)

	router.With(middleware.RequireSessionPage(c.Issuer, c.Logger)).Get("/", grid.Page)

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireSession(c.Issuer, c.ErrorHandler))
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			c.ErrorHandler.Handle(w, r, apperrors.NewNotFoundError("route "+r.URL.Path))
		})

		r.Get("/rows", grid.Rows)
		r.Post("/rows", grid.AddRow)
		r.Put("/rows/{id}", grid.UpdateRow)
		r.Delete("/rows/{id}", grid.DeleteRow)
		r.Post("/refresh", grid.Refresh)
		r.Post("/diff", grid.Diff)
		r.Post("/submit", grid.Submit)
	})

	return router
}
