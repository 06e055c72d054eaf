// Package api exposes the storage service over a JSON REST API with JWT
// bearer authentication.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/dittobox/internal/logger"
	"github.com/marmos91/dittobox/pkg/api/auth"
	"github.com/marmos91/dittobox/pkg/api/handlers"
	apiMiddleware "github.com/marmos91/dittobox/pkg/api/middleware"
	"github.com/marmos91/dittobox/pkg/metrics"
	"github.com/marmos91/dittobox/pkg/storage"
)

// RequestTimeout bounds every request except uploads and downloads, which
// are bounded by the server read and write timeouts.
const RequestTimeout = 30 * time.Second

// NewRouter creates the chi router with all middleware and routes.
//
// Routes:
//   - GET /health, /health/ready: probes
//   - GET /metrics: Prometheus exposition of the global registry
//   - POST /api/v1/auth/login, /api/v1/auth/refresh: token issuance
//   - /api/v1/files, /api/v1/home, /api/v1/access: actor operations
//   - /api/v1/users: admin only
func NewRouter(svc *storage.Service, jwtService *auth.JWTService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	healthHandler := handlers.NewHealthHandler(svc)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})
	r.Handle("/metrics", metrics.Handler())

	authHandler := handlers.NewAuthHandler(svc, jwtService)
	filesHandler := handlers.NewFilesHandler(svc)
	accessHandler := handlers.NewAccessHandler(svc)
	userHandler := handlers.NewUserHandler(svc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(RequestTimeout))
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/refresh", authHandler.Refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.JWTAuth(jwtService))

			// streaming endpoints
			r.Get("/files/content", filesHandler.Content)
			r.Post("/files/upload", filesHandler.Upload)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(RequestTimeout))

				r.Get("/auth/me", authHandler.Me)

				r.Get("/files", filesHandler.List)
				r.Delete("/files", filesHandler.Delete)
				r.Get("/files/stat", filesHandler.Stat)
				r.Post("/files/mkdir", filesHandler.Mkdir)
				r.Post("/files/rename", filesHandler.Rename)
				r.Post("/home", filesHandler.Home)

				r.Route("/access", func(r chi.Router) {
					r.Get("/grants", accessHandler.Grantees)
					r.Post("/grants", accessHandler.Grant)
					r.Delete("/grants", accessHandler.Revoke)
					r.Get("/shared", accessHandler.Shared)
					r.Get("/decide", accessHandler.Decide)
				})

				r.Route("/users", func(r chi.Router) {
					r.Use(apiMiddleware.RequireAdmin())
					r.Get("/", userHandler.List)
					r.Post("/", userHandler.Create)
					r.Put("/{identity}/password", userHandler.SetPassword)
				})
			})
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs each request through the internal logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDurationMs, time.Since(start).Milliseconds(),
		)
	})
}
