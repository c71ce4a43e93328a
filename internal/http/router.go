package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/auth"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/config"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/httputil"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/logging"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/metrics"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/statement"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, statementHandler *statement.Handler, statusHandler *StatusHandler, authMiddleware *auth.Middleware, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", logging.CorrelationIDHeader},
			ExposedHeaders:   []string{"Content-Length", "Content-Disposition", "Location", logging.CorrelationIDHeader},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.Recoverer)          // Recover from panics
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(logging.CorrelationID)         // Propagate X-Correlation-ID
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context

	// Public routes
	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/status", statusHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Swagger UI - only in development
	// Production builds will not have this route at all
	if cfg.Server.IsDevelopment() {
		logger.Info("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	} else {
		logger.Info("Swagger UI disabled (production mode)")
	}

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.With(auth.RequireRole(auth.RoleAdmin)).Post("/statements", statementHandler.Upload)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireCustomer)
			// PDFs are already compressed; downloads are served as-is
			r.With(middleware.Compress(5)).Get("/statements", statementHandler.List)
			r.Post("/statements/{id}/download-link", statementHandler.CreateDownloadLink)
			r.Get("/downloads/{token}", statementHandler.Download)
		})
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
