package models

import (
	"time"

	"github.com/google/uuid"
)

// ShipmentEvent is a single tracking event belonging to exactly one
// shipment. Events are displayed newest first.
type ShipmentEvent struct {
	ID         uuid.UUID `json:"id" db:"id"`
	ShipmentID string    `json:"shipment_id" db:"shipment_id"`
	EventCode  string    `json:"event_code" db:"event_code"`
	EventTime  time.Time `json:"event_time" db:"event_time"`
	Notes      *string   `json:"notes" db:"notes"`
	Location   *string   `json:"location" db:"location"`
	Source     *string   `json:"source" db:"source"`
}

// TableName returns the table name for the ShipmentEvent model
func (ShipmentEvent) TableName() string {
	return "shipment_events"
}
