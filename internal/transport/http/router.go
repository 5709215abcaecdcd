// Package http exposes the engine over a JSON API: admin scheduling routes,
// public storefront reads, and the buyer reservation flow.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bao99257/flashsale-engine/internal/clock"
)

// RouterConfig carries every collaborator the router wires into handlers.
type RouterConfig struct {
	Programs     ProgramAdmin
	Items        ItemAdmin
	Reservations Reserver
	Sessions     SessionManager
	Dashboards   DashboardProvider
	DB           Pinger
	Clock        clock.Clock
	Logger       zerolog.Logger
	CORSOrigins  []string
}

// NewRouter assembles the chi router with logging, metrics and CORS applied
// to every route.
func NewRouter(cfg RouterConfig) http.Handler {
	programs := &programHandler{programs: cfg.Programs, clock: cfg.Clock}
	items := &itemHandler{items: cfg.Items, clock: cfg.Clock}
	sessions := &sessionHandler{reservations: cfg.Reservations, sessions: cfg.Sessions}
	dashboards := &dashboardHandler{dashboards: cfg.Dashboards}
	health := &healthHandler{db: cfg.DB}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(RequestLogger(cfg.Logger))
	r.Use(RequestMetrics)
	r.Use(WithUserIdentity)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", health.get)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin", func(r chi.Router) {
		r.Route("/programs", func(r chi.Router) {
			r.Post("/", programs.create)
			r.Get("/", programs.list)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", programs.get)
				r.Put("/", programs.update)
				r.Delete("/", programs.delete)
				r.Post("/deactivate", programs.deactivate)
				r.Post("/items", items.create)
				r.Get("/items", items.listByProgram)
			})
		})
		r.Route("/items/{id}", func(r chi.Router) {
			r.Get("/", items.get)
			r.Put("/", items.update)
			r.Delete("/", items.deactivate)
		})
	})

	r.Route("/programs", func(r chi.Router) {
		r.Get("/today", programs.listToday)
		r.Get("/current", programs.current)
		r.Get("/upcoming", programs.upcoming)
		r.Get("/{id}/items", items.listByProgram)
	})
	r.Get("/dashboard", dashboards.get)

	r.Post("/reserve", sessions.reserve)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Post("/confirm", sessions.confirm)
		r.Post("/release", sessions.release)
	})

	return r
}
