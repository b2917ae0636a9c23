package model

import "time"

// UserRole distinguishes tenant admins from regular members. Admins are the
// level-2 escalation target set.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleMember UserRole = "member"
)

// User is an internal user of a tenant.
type User struct {
	ID        int       `db:"id" json:"id"`
	TenantID  int       `db:"tenant_id" json:"tenant_id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Role      UserRole  `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Group owns threads and carries the escalation policy for messages routed
// to it.
type Group struct {
	ID                       int       `db:"id" json:"id"`
	TenantID                 int       `db:"tenant_id" json:"tenant_id"`
	Name                     string    `db:"name" json:"name"`
	EscalationEnabled        bool      `db:"escalation_enabled" json:"escalation_enabled"`
	EscalationTimeoutMinutes int       `db:"escalation_timeout_minutes" json:"escalation_timeout_minutes"`
	CreatedAt                time.Time `db:"created_at" json:"created_at"`
}
