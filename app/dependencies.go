package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/harborline/shipment-tracker/auth"
	"github.com/harborline/shipment-tracker/authn"
	"github.com/harborline/shipment-tracker/config"
	"github.com/harborline/shipment-tracker/middleware"
	"github.com/harborline/shipment-tracker/repositories"
	"github.com/harborline/shipment-tracker/repositories/postgres"
	"github.com/harborline/shipment-tracker/services"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// ConfigErr is non-nil when required configuration is missing. The
	// server still starts; the router arms a guard that answers every API
	// request with the configuration error instead of serving traffic.
	ConfigErr error

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Memberships repositories.MembershipRepository
	Shipments   repositories.ShipmentRepository

	// Services
	ShipmentService *services.ShipmentService

	// Auth
	Verifier       *authn.Verifier
	AuthHandler    *auth.Handler
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies. A
// configuration error does not abort the wiring: the returned Dependencies
// carry the error and skip everything that needs the missing values, so the
// degraded server can still come up and report the problem per request.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration invalid, starting in degraded mode", zap.Error(err))
		deps.ConfigErr = err
		return deps, nil
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initAuth(cfg)
	deps.initServices()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection pool and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()
	d.Memberships = repos.Memberships
	d.Shipments = repos.Shipments
	d.Logger.Info("repositories initialized")
}

// initAuth wires the token verifier, the auth middleware, and the session
// bootstrap handler.
func (d *Dependencies) initAuth(cfg *config.Config) {
	d.Verifier = authn.NewVerifier(authn.Config{
		BaseURL:          cfg.Auth.BaseURL,
		AnonKey:          cfg.Auth.AnonKey,
		HTTPTimeout:      cfg.Auth.HTTPTimeout,
		LocalExpiryCheck: cfg.Auth.LocalExpiryCheck,
	})
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Verifier, d.Logger)

	exchanger := auth.NewExchanger(cfg.Auth.BaseURL, cfg.Auth.AnonKey, cfg.Auth.HTTPTimeout)
	d.AuthHandler = auth.NewHandler(cfg, exchanger, d.Verifier, d.Logger)

	d.Logger.Info("auth initialized",
		zap.String("provider", cfg.Auth.BaseURL),
		zap.Bool("local_expiry_check", cfg.Auth.LocalExpiryCheck))
}

// initServices initializes the domain services
func (d *Dependencies) initServices() {
	d.ShipmentService = services.NewShipmentService(d.Memberships, d.Shipments, d.Logger)
	d.Logger.Info("services initialized")
}

// Close releases all held resources
func (d *Dependencies) Close() error {
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			return fmt.Errorf("failed to close repository factory: %w", err)
		}
	}
	return nil
}
