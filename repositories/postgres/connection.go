package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harborline/shipment-tracker/config"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// InitSchema initializes the database schema. The tables are owned and
// populated by the external ingestion process; this is only used to stand
// up local and test databases.
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Shipments table (externally ingested; read-only here)
		CREATE TABLE IF NOT EXISTS shipments (
			id TEXT PRIMARY KEY,
			hbl TEXT,
			mbl TEXT,
			po_number TEXT,
			customer_reference TEXT,
			origin TEXT NOT NULL DEFAULT '',
			destination TEXT NOT NULL DEFAULT '',
			current_status TEXT NOT NULL DEFAULT '',
			eta TIMESTAMPTZ,
			last_event_at TIMESTAMPTZ,
			customer_scope TEXT NOT NULL
		);

		-- Shipment events table
		CREATE TABLE IF NOT EXISTS shipment_events (
			id UUID PRIMARY KEY,
			shipment_id TEXT NOT NULL REFERENCES shipments(id) ON DELETE CASCADE,
			event_code TEXT NOT NULL,
			event_time TIMESTAMPTZ NOT NULL,
			notes TEXT,
			location TEXT,
			source TEXT
		);

		-- Memberships table
		CREATE TABLE IF NOT EXISTS memberships (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL,
			customer_scope TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(email, customer_scope)
		);

		-- Indexes for the read paths
		CREATE INDEX IF NOT EXISTS idx_shipments_customer_scope ON shipments(LOWER(customer_scope));
		CREATE INDEX IF NOT EXISTS idx_shipments_last_event_at ON shipments(last_event_at DESC);
		CREATE INDEX IF NOT EXISTS idx_shipment_events_shipment_id ON shipment_events(shipment_id, event_time DESC);
		CREATE INDEX IF NOT EXISTS idx_memberships_email ON memberships(email);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}
