package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/slotswapper/slotswapper/internal/auth"
)

// NewRouter assembles the full HTTP surface: public auth and health
// endpoints, bearer-protected event and swap routes, and Prometheus metrics.
func NewRouter(
	log zerolog.Logger,
	issuer *auth.TokenIssuer,
	authH *AuthHandler,
	eventH *EventHandler,
	swapH *SwapHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(cors.AllowAll().Handler)

	r.Get("/health", HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authH.Signup)
		r.Post("/login", authH.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(Authenticator(issuer))

		r.Route("/events", func(r chi.Router) {
			r.Post("/", eventH.Create)
			r.Get("/", eventH.List)
			r.Get("/{id}", eventH.Get)
			r.Put("/{id}", eventH.Update)
			r.Delete("/{id}", eventH.Delete)
		})

		r.Route("/swaps", func(r chi.Router) {
			r.Get("/swappable-slots", swapH.ListSwappable)
			r.Post("/request-swap", swapH.Propose)
			r.Get("/incoming-requests", swapH.ListIncoming)
			r.Get("/outgoing-requests", swapH.ListOutgoing)
			r.Post("/response-swap/{id}", swapH.Respond)
		})
	})

	return r
}
