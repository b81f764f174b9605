package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/harborline/shipment-tracker/models"
	"github.com/harborline/shipment-tracker/repositories"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// listLimit bounds the shipment list response instead of full pagination.
const listLimit = 300

// ShipmentRepository implements the repositories.ShipmentRepository interface
type ShipmentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewShipmentRepository creates a new shipment repository
func NewShipmentRepository(db *DB, logger *zap.Logger) repositories.ShipmentRepository {
	return &ShipmentRepository{
		db:     db,
		logger: logger,
	}
}

const shipmentColumns = `id, hbl, mbl, po_number, customer_reference, origin, destination, current_status, eta, last_event_at, customer_scope`

// ListByScopes returns the shipments owned by any of the given scopes.
// Scope comparison is case-insensitive: the owning scope field is ingested
// from external systems with inconsistent casing.
func (r *ShipmentRepository) ListByScopes(ctx context.Context, scopes []string) ([]*models.Shipment, error) {
	if len(scopes) == 0 {
		return []*models.Shipment{}, nil
	}

	lowered := make([]string, len(scopes))
	for i, scope := range scopes {
		lowered[i] = strings.ToLower(scope)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM shipments
		WHERE LOWER(customer_scope) = ANY($1)
		ORDER BY last_event_at DESC NULLS LAST
		LIMIT %d
	`, shipmentColumns, listLimit)

	rows, err := r.db.QueryContext(ctx, query, pq.Array(lowered))
	if err != nil {
		return nil, fmt.Errorf("failed to query shipments: %w", err)
	}
	defer rows.Close()

	var shipments []*models.Shipment
	for rows.Next() {
		shipment, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, shipment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shipment rows: %w", err)
	}

	r.logger.Debug("listed shipments",
		zap.Int("scopes", len(scopes)),
		zap.Int("count", len(shipments)))

	return shipments, nil
}

// GetByID fetches a shipment by exact identifier match
func (r *ShipmentRepository) GetByID(ctx context.Context, id string) (*models.Shipment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM shipments
		WHERE id = $1
	`, shipmentColumns)

	shipment := &models.Shipment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&shipment.ID,
		&shipment.HBL,
		&shipment.MBL,
		&shipment.PONumber,
		&shipment.CustomerReference,
		&shipment.Origin,
		&shipment.Destination,
		&shipment.CurrentStatus,
		&shipment.ETA,
		&shipment.LastEventAt,
		&shipment.CustomerScope,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.ErrShipmentNotFound
		}
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}

	return shipment, nil
}

// LatestEventCode returns the code of the shipment's most recent event.
// A shipment with zero events yields nil, not an error.
func (r *ShipmentRepository) LatestEventCode(ctx context.Context, shipmentID string) (*string, error) {
	query := `
		SELECT event_code
		FROM shipment_events
		WHERE shipment_id = $1
		ORDER BY event_time DESC
		LIMIT 1
	`

	var code string
	err := r.db.QueryRowContext(ctx, query, shipmentID).Scan(&code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest event code: %w", err)
	}

	return &code, nil
}

// LatestEventCodes returns the most recent event code per shipment in a
// single query, replacing the per-row round trips the list endpoint would
// otherwise need. Shipments with no events are simply absent from the map.
func (r *ShipmentRepository) LatestEventCodes(ctx context.Context, shipmentIDs []string) (map[string]*string, error) {
	codes := make(map[string]*string, len(shipmentIDs))
	if len(shipmentIDs) == 0 {
		return codes, nil
	}

	query := `
		SELECT DISTINCT ON (shipment_id) shipment_id, event_code
		FROM shipment_events
		WHERE shipment_id = ANY($1)
		ORDER BY shipment_id, event_time DESC
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(shipmentIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query latest event codes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var shipmentID, code string
		if err := rows.Scan(&shipmentID, &code); err != nil {
			return nil, fmt.Errorf("failed to scan latest event code: %w", err)
		}
		c := code
		codes[shipmentID] = &c
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating latest event rows: %w", err)
	}

	return codes, nil
}

// EventsForShipment returns the shipment's full event history, newest first
func (r *ShipmentRepository) EventsForShipment(ctx context.Context, shipmentID string) ([]*models.ShipmentEvent, error) {
	query := `
		SELECT id, shipment_id, event_code, event_time, notes, location, source
		FROM shipment_events
		WHERE shipment_id = $1
		ORDER BY event_time DESC
	`

	rows, err := r.db.QueryContext(ctx, query, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipment events: %w", err)
	}
	defer rows.Close()

	events := []*models.ShipmentEvent{}
	for rows.Next() {
		event := &models.ShipmentEvent{}
		err := rows.Scan(
			&event.ID,
			&event.ShipmentID,
			&event.EventCode,
			&event.EventTime,
			&event.Notes,
			&event.Location,
			&event.Source,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shipment event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

// scanShipment scans one shipment row
func scanShipment(rows *sql.Rows) (*models.Shipment, error) {
	shipment := &models.Shipment{}
	err := rows.Scan(
		&shipment.ID,
		&shipment.HBL,
		&shipment.MBL,
		&shipment.PONumber,
		&shipment.CustomerReference,
		&shipment.Origin,
		&shipment.Destination,
		&shipment.CurrentStatus,
		&shipment.ETA,
		&shipment.LastEventAt,
		&shipment.CustomerScope,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan shipment: %w", err)
	}
	return shipment, nil
}
