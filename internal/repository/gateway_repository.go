package repository

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "github.com/vaktsms/vaktsms-backend/internal/errors"
	"github.com/vaktsms/vaktsms-backend/internal/model"
)

type GatewayRepositoryInterface interface {
	GetByID(ctx context.Context, id int) (*model.Gateway, error)
}

type GatewayRepository struct {
	DB *sql.DB
}

// GetByID returns the gateway or a typed not-found error. Inactive gateways
// are treated as missing: nothing should route through them.
func (r *GatewayRepository) GetByID(ctx context.Context, id int) (*model.Gateway, error) {
	query := `
        SELECT id, tenant_id, name, sender_id, fallback_group_id, active, created_at
        FROM gateways
        WHERE id = $1 AND active = true
    `
	var g model.Gateway
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&g.ID, &g.TenantID, &g.Name, &g.SenderID, &g.FallbackGroupID, &g.Active, &g.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFound("gateway", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get gateway: %w", err)
	}
	return &g, nil
}

var _ GatewayRepositoryInterface = (*GatewayRepository)(nil)
