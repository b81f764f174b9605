package models

import "time"

// Shipment is a read-only projection of a freight shipment row. Rows are
// created and updated by the external ingestion process; this service never
// writes them.
type Shipment struct {
	ID                string     `json:"id" db:"id"`
	HBL               *string    `json:"hbl" db:"hbl"` // house bill of lading / airway bill
	MBL               *string    `json:"mbl" db:"mbl"` // master bill of lading / airway bill
	PONumber          *string    `json:"po_number" db:"po_number"`
	CustomerReference *string    `json:"customer_reference" db:"customer_reference"`
	Origin            string     `json:"origin" db:"origin"`
	Destination       string     `json:"destination" db:"destination"`
	CurrentStatus     string     `json:"current_status" db:"current_status"`
	ETA               *time.Time `json:"eta" db:"eta"`
	LastEventAt       *time.Time `json:"last_event_at" db:"last_event_at"`
	CustomerScope     string     `json:"customer_scope" db:"customer_scope"`
}

// TableName returns the table name for the Shipment model
func (Shipment) TableName() string {
	return "shipments"
}

// Route returns the origin/destination pair as a single display string.
func (s *Shipment) Route() string {
	return s.Origin + " - " + s.Destination
}

// ShipmentSummary is a Shipment augmented with per-read derived metadata:
// the code of its most recent event (nil when the shipment has no events)
// and the canonical lifecycle status derived from both.
type ShipmentSummary struct {
	Shipment
	LatestEventCode *string `json:"latest_event_code"`
	DerivedStatus   string  `json:"derived_status"`
}
