package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership maps a verified user email to one customer scope. A user may
// hold several memberships; memberships are looked up per request and never
// cached server-side so scope changes take effect immediately.
type Membership struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	CustomerScope string    `json:"customer_scope" db:"customer_scope"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Membership model
func (Membership) TableName() string {
	return "memberships"
}

// NewMembership creates a new Membership instance
func NewMembership(email, customerScope string) *Membership {
	return &Membership{
		ID:            uuid.New(),
		Email:         email,
		CustomerScope: customerScope,
		CreatedAt:     time.Now(),
	}
}
