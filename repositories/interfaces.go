// Package repositories defines the data-access contracts for the read-only
// tracking projection. All implementations are query-only: nothing in this
// system creates, mutates, or deletes rows.
package repositories

import (
	"context"
	"errors"

	"github.com/harborline/shipment-tracker/models"
)

// ErrShipmentNotFound is returned when a shipment identifier resolves to no row
var ErrShipmentNotFound = errors.New("shipment not found")

// MembershipRepository resolves verified identities to customer scopes
type MembershipRepository interface {
	// ScopesForEmail returns the customer scopes the email may view, by
	// exact email match. An empty slice (not an error) means the user has
	// no memberships.
	ScopesForEmail(ctx context.Context, email string) ([]string, error)
}

// ShipmentRepository provides read access to shipments and their events
type ShipmentRepository interface {
	// ListByScopes returns shipments whose owning scope matches any of the
	// given scopes, case-insensitively, ordered by last-event time
	// descending and truncated to the 300 most recent.
	ListByScopes(ctx context.Context, scopes []string) ([]*models.Shipment, error)

	// GetByID fetches a shipment by exact identifier match.
	// Returns ErrShipmentNotFound when no row matches.
	GetByID(ctx context.Context, id string) (*models.Shipment, error)

	// LatestEventCode returns the code of the shipment's most recent event,
	// or nil when the shipment has no events.
	LatestEventCode(ctx context.Context, shipmentID string) (*string, error)

	// LatestEventCodes returns the most recent event code per shipment in a
	// single query. Shipments with no events are absent from the map.
	LatestEventCodes(ctx context.Context, shipmentIDs []string) (map[string]*string, error)

	// EventsForShipment returns all events for a shipment ordered by event
	// time descending, with no limit.
	EventsForShipment(ctx context.Context, shipmentID string) ([]*models.ShipmentEvent, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Memberships MembershipRepository
	Shipments   ShipmentRepository
}
