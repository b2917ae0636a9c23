package model

import "time"

// RuleKind is the closed set of routing rule kinds. Adding a kind means
// extending the switch in the routing service; the compiler finds the rest.
type RuleKind string

const (
	RuleKeyword  RuleKind = "keyword"
	RulePrefix   RuleKind = "prefix"
	RuleFallback RuleKind = "fallback"
)

// RoutingRule maps an inbound message to a target group. Rules are evaluated
// in priority order (ascending); the first match wins. A nil GatewayID means
// the rule applies to every gateway of the tenant.
type RoutingRule struct {
	ID            int       `db:"id" json:"id"`
	TenantID      int       `db:"tenant_id" json:"tenant_id"`
	GatewayID     *int      `db:"gateway_id" json:"gateway_id,omitempty"`
	Kind          RuleKind  `db:"kind" json:"kind"`
	Pattern       string    `db:"pattern" json:"pattern"`
	TargetGroupID int       `db:"target_group_id" json:"target_group_id"`
	Priority      int       `db:"priority" json:"priority"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
