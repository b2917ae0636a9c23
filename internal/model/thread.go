package model

import "time"

// Thread is the durable routing decision for one (contact, gateway) pair:
// which group currently owns the conversation. At most one open thread may
// exist per pair; reclassification mutates ResolvedGroupID in place instead
// of creating a new thread.
type Thread struct {
	ID              int       `db:"id" json:"id"`
	TenantID        int       `db:"tenant_id" json:"tenant_id"`
	GatewayID       int       `db:"gateway_id" json:"gateway_id"`
	ContactID       int       `db:"contact_id" json:"contact_id"`
	ResolvedGroupID int       `db:"resolved_group_id" json:"resolved_group_id"`
	Resolved        bool      `db:"resolved" json:"resolved"`
	LastMessageAt   time.Time `db:"last_message_at" json:"last_message_at"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
