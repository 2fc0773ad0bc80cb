package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"cartshare/backend/internal/identity/handler"
	"cartshare/backend/internal/server/middleware"
)

// Deps are the router's collaborators.
type Deps struct {
	Log  zerolog.Logger
	Auth *handler.Handler
	// Gate protects the authenticated subtree.
	Gate func(http.Handler) http.Handler
	Csrf *middleware.CsrfGuard
	DB   *sql.DB

	AllowedOrigins    []string
	AuthRatePerMinute int
}

// NewRouter assembles the HTTP surface: CORS, request logging, CSRF guard,
// per-IP rate limits on the credential endpoints, and the auth gate on the
// authenticated subtree. The whole tree is wrapped for trace propagation.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	allowed := deps.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Client-Type"},
		AllowCredentials: true, // cookie channel needs credentialed CORS
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))

	r.Use(hlog.NewHandler(deps.Log))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(hlog.RequestIDHandler("request_id", "X-Request-Id"))

	r.Use(deps.Csrf.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if deps.DB != nil {
			if err := deps.DB.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	rate := deps.AuthRatePerMinute
	if rate <= 0 {
		rate = 60
	}

	r.Route("/auth", func(r chi.Router) {
		// Credential endpoints are the brute-force surface.
		r.Group(func(r chi.Router) {
			r.Use(httprate.Limit(rate, time.Minute, httprate.WithKeyFuncs(httprate.KeyByRealIP)))
			r.Post("/register", deps.Auth.Register)
			r.Post("/login", deps.Auth.Login)
			r.Post("/refresh", deps.Auth.Refresh)
		})
		r.Post("/logout", deps.Auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(deps.Gate)
			r.Post("/logout-all", deps.Auth.LogoutAll)
			r.Post("/password", deps.Auth.ChangePassword)
			r.Get("/sessions", deps.Auth.Sessions)
			r.Delete("/sessions/{sessionID}", deps.Auth.RevokeSession)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.Gate)
		r.Get("/me", deps.Auth.Me)
	})

	return otelhttp.NewHandler(r, "cartshare-auth")
}
