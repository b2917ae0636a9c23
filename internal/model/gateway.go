package model

import "time"

// Gateway is a configured send/receive endpoint for one tenant. It is
// immutable during a routing decision.
type Gateway struct {
	ID              int       `db:"id" json:"id"`
	TenantID        int       `db:"tenant_id" json:"tenant_id"`
	Name            string    `db:"name" json:"name"`
	SenderID        string    `db:"sender_id" json:"sender_id"`
	FallbackGroupID *int      `db:"fallback_group_id" json:"fallback_group_id,omitempty"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
