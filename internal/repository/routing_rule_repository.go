package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vaktsms/vaktsms-backend/internal/model"
)

type RoutingRuleRepositoryInterface interface {
	ListActive(ctx context.Context, tenantID, gatewayID int) ([]model.RoutingRule, error)
}

type RoutingRuleRepository struct {
	DB *sql.DB
}

// ListActive returns the tenant's active rules that are either unscoped or
// scoped to the given gateway, in evaluation order (priority ascending).
func (r *RoutingRuleRepository) ListActive(ctx context.Context, tenantID, gatewayID int) ([]model.RoutingRule, error) {
	query := `
        SELECT id, tenant_id, gateway_id, kind, pattern, target_group_id, priority, active, created_at
        FROM routing_rules
        WHERE tenant_id = $1
          AND active = true
          AND (gateway_id IS NULL OR gateway_id = $2)
        ORDER BY priority ASC, id ASC
    `
	rows, err := r.DB.QueryContext(ctx, query, tenantID, gatewayID)
	if err != nil {
		return nil, fmt.Errorf("list routing rules: %w", err)
	}
	defer rows.Close()

	var rules []model.RoutingRule
	for rows.Next() {
		var rule model.RoutingRule
		if err := rows.Scan(
			&rule.ID, &rule.TenantID, &rule.GatewayID, &rule.Kind, &rule.Pattern,
			&rule.TargetGroupID, &rule.Priority, &rule.Active, &rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan routing rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

var _ RoutingRuleRepositoryInterface = (*RoutingRuleRepository)(nil)
