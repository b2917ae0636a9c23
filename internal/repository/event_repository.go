package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vaktsms/vaktsms-backend/internal/model"
)

type EventRepositoryInterface interface {
	CreateEscalationEvent(ctx context.Context, e *model.EscalationEvent) error
	CreateDeliveryEvent(ctx context.Context, e *model.DeliveryEvent) error
	CreateAuditLog(ctx context.Context, a *model.AuditLog) error
}

// EventRepository writes the append-only tables: escalation events, delivery
// events, and the audit log. Nothing in the system ever updates these rows.
type EventRepository struct {
	DB *sql.DB
}

func (r *EventRepository) CreateEscalationEvent(ctx context.Context, e *model.EscalationEvent) error {
	e.CreatedAt = time.Now()
	query := `
        INSERT INTO escalation_events (message_id, level, target_user_ids, reason, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	err := r.DB.QueryRowContext(ctx, query,
		e.MessageID, e.Level, pq.Array(e.TargetUserIDs), e.Reason, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("create escalation event: %w", err)
	}
	return nil
}

func (r *EventRepository) CreateDeliveryEvent(ctx context.Context, e *model.DeliveryEvent) error {
	e.CreatedAt = time.Now()
	query := `
        INSERT INTO delivery_events (message_id, status, error_code, error_message, reported_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	err := r.DB.QueryRowContext(ctx, query,
		e.MessageID, e.Status, e.ErrorCode, e.ErrorMessage, e.ReportedAt, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("create delivery event: %w", err)
	}
	return nil
}

func (r *EventRepository) CreateAuditLog(ctx context.Context, a *model.AuditLog) error {
	a.CreatedAt = time.Now()
	query := `
        INSERT INTO audit_logs (tenant_id, actor_id, action, detail, message_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	err := r.DB.QueryRowContext(ctx, query,
		a.TenantID, a.ActorID, a.Action, a.Detail, a.MessageID, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

var _ EventRepositoryInterface = (*EventRepository)(nil)
