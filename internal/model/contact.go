package model

import "time"

// Contact is a known phone identifier within a tenant. Contacts are created
// lazily on the first inbound message from an unknown number.
type Contact struct {
	ID             int       `db:"id" json:"id"`
	TenantID       int       `db:"tenant_id" json:"tenant_id"`
	Phone          string    `db:"phone" json:"phone"`
	Name           string    `db:"name" json:"name"`
	DefaultGroupID *int      `db:"default_group_id" json:"default_group_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
