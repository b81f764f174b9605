package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/harborline/shipment-tracker/app"
	"github.com/harborline/shipment-tracker/handlers"
	"github.com/harborline/shipment-tracker/services"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(healthDB(deps), deps.Logger)
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	// Missing required configuration answers every functional request with
	// the configuration error, before any auth or parsing runs. Only the
	// liveness endpoints stay reachable.
	if deps.ConfigErr != nil {
		guard := misconfiguredGuard(deps)
		r.Handle("/auth/*", guard)
		r.Handle("/api/*", guard)
		r.NotFound(guard.ServeHTTP)
		return r
	}

	// Session bootstrap
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", deps.AuthHandler.HandleLogin)
		r.Get("/callback", deps.AuthHandler.HandleCallback)
		r.Post("/session", deps.AuthHandler.HandleSession)
		r.Get("/logout", deps.AuthHandler.HandleLogout)
	})

	// API v1 routes
	shipmentHandler := handlers.NewShipmentHandler(deps.ShipmentService, deps.Logger)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/shipments", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", shipmentHandler.List)
			r.Get("/{id}", shipmentHandler.Get)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}

// misconfiguredGuard fails every request with the configuration error
func misconfiguredGuard(deps *app.Dependencies) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deps.Logger.Error("request rejected: service misconfigured",
			zap.String("path", r.URL.Path))
		err := services.NewDomainError(services.ErrorTypeConfig,
			"service misconfigured: "+deps.ConfigErr.Error(), deps.ConfigErr)
		handlers.HandleServiceError(w, err, deps.Logger)
	})
}

// healthDB adapts the optional DB pool to the health handler's interface.
// In degraded mode there is no pool at all.
func healthDB(deps *app.Dependencies) handlers.Pinger {
	if deps.DB == nil {
		return nil
	}
	return deps.DB
}
