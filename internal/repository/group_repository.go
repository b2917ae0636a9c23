package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vaktsms/vaktsms-backend/internal/model"
)

type GroupRepositoryInterface interface {
	GetByID(ctx context.Context, id int) (*model.Group, error)
	ListEscalationEnabled(ctx context.Context) ([]model.Group, error)
	MemberIDs(ctx context.Context, groupID int) ([]int, error)
	AdminIDs(ctx context.Context, tenantID int) ([]int, error)
}

type GroupRepository struct {
	DB *sql.DB
}

func (r *GroupRepository) GetByID(ctx context.Context, id int) (*model.Group, error) {
	query := `
        SELECT id, tenant_id, name, escalation_enabled, escalation_timeout_minutes, created_at
        FROM groups WHERE id = $1
    `
	var g model.Group
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&g.ID, &g.TenantID, &g.Name, &g.EscalationEnabled, &g.EscalationTimeoutMinutes, &g.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return &g, nil
}

// ListEscalationEnabled returns every group the sweep must visit.
func (r *GroupRepository) ListEscalationEnabled(ctx context.Context) ([]model.Group, error) {
	query := `
        SELECT id, tenant_id, name, escalation_enabled, escalation_timeout_minutes, created_at
        FROM groups
        WHERE escalation_enabled = true AND escalation_timeout_minutes > 0
        ORDER BY id
    `
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list escalation groups: %w", err)
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.TenantID, &g.Name, &g.EscalationEnabled, &g.EscalationTimeoutMinutes, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// MemberIDs returns all members of the group, on duty or not. Level-1
// escalation deliberately targets everyone.
func (r *GroupRepository) MemberIDs(ctx context.Context, groupID int) ([]int, error) {
	return r.scanIDs(ctx, `SELECT user_id FROM group_members WHERE group_id = $1 ORDER BY user_id`, groupID)
}

// AdminIDs returns every tenant admin, the level-2 escalation target set.
func (r *GroupRepository) AdminIDs(ctx context.Context, tenantID int) ([]int, error) {
	return r.scanIDs(ctx, `SELECT id FROM users WHERE tenant_id = $1 AND role = 'admin' ORDER BY id`, tenantID)
}

func (r *GroupRepository) scanIDs(ctx context.Context, query string, arg int) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ GroupRepositoryInterface = (*GroupRepository)(nil)
