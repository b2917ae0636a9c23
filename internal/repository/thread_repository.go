package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vaktsms/vaktsms-backend/internal/model"
)

// ErrDuplicateThread reports that another writer created the open thread for
// this (gateway, contact) pair first. Callers re-read and reuse the winner.
var ErrDuplicateThread = errors.New("open thread already exists")

type ThreadRepositoryInterface interface {
	GetByID(ctx context.Context, id int) (*model.Thread, error)
	FindOpen(ctx context.Context, gatewayID, contactID int) (*model.Thread, error)
	Create(ctx context.Context, t *model.Thread) error
	Touch(ctx context.Context, id int, at time.Time) error
	ListByGroup(ctx context.Context, tenantID, groupID, limit int) ([]model.Thread, error)
}

type ThreadRepository struct {
	DB *sql.DB
}

func (r *ThreadRepository) GetByID(ctx context.Context, id int) (*model.Thread, error) {
	query := `
        SELECT id, tenant_id, gateway_id, contact_id, resolved_group_id, resolved, last_message_at, created_at
        FROM threads WHERE id = $1
    `
	var t model.Thread
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.TenantID, &t.GatewayID, &t.ContactID, &t.ResolvedGroupID,
		&t.Resolved, &t.LastMessageAt, &t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return &t, nil
}

// FindOpen returns the single open thread for the pair, or (nil, nil).
func (r *ThreadRepository) FindOpen(ctx context.Context, gatewayID, contactID int) (*model.Thread, error) {
	query := `
        SELECT id, tenant_id, gateway_id, contact_id, resolved_group_id, resolved, last_message_at, created_at
        FROM threads
        WHERE gateway_id = $1 AND contact_id = $2 AND resolved = false
        ORDER BY last_message_at DESC
        LIMIT 1
    `
	var t model.Thread
	err := r.DB.QueryRowContext(ctx, query, gatewayID, contactID).Scan(
		&t.ID, &t.TenantID, &t.GatewayID, &t.ContactID, &t.ResolvedGroupID,
		&t.Resolved, &t.LastMessageAt, &t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open thread: %w", err)
	}
	return &t, nil
}

// Create inserts a new open thread. A partial unique index on
// (gateway_id, contact_id) WHERE NOT resolved backs the at-most-one-open
// invariant; losing the race surfaces as ErrDuplicateThread.
func (r *ThreadRepository) Create(ctx context.Context, t *model.Thread) error {
	if t.LastMessageAt.IsZero() {
		t.LastMessageAt = time.Now()
	}
	t.CreatedAt = time.Now()

	query := `
        INSERT INTO threads (tenant_id, gateway_id, contact_id, resolved_group_id, resolved, last_message_at, created_at)
        VALUES ($1, $2, $3, $4, false, $5, $6)
        RETURNING id
    `
	err := r.DB.QueryRowContext(ctx, query,
		t.TenantID, t.GatewayID, t.ContactID, t.ResolvedGroupID, t.LastMessageAt, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateThread
		}
		return fmt.Errorf("create thread: %w", err)
	}
	return nil
}

// Touch bumps last_message_at when an existing thread absorbs a message.
func (r *ThreadRepository) Touch(ctx context.Context, id int, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE threads SET last_message_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("touch thread: %w", err)
	}
	return nil
}

// ListByGroup returns a group's threads, most recently active first. Read
// side for the inbox UI.
func (r *ThreadRepository) ListByGroup(ctx context.Context, tenantID, groupID, limit int) ([]model.Thread, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
        SELECT id, tenant_id, gateway_id, contact_id, resolved_group_id, resolved, last_message_at, created_at
        FROM threads
        WHERE tenant_id = $1 AND resolved_group_id = $2
        ORDER BY last_message_at DESC
        LIMIT $3
    `
	rows, err := r.DB.QueryContext(ctx, query, tenantID, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var threads []model.Thread
	for rows.Next() {
		var t model.Thread
		if err := rows.Scan(
			&t.ID, &t.TenantID, &t.GatewayID, &t.ContactID, &t.ResolvedGroupID,
			&t.Resolved, &t.LastMessageAt, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

var _ ThreadRepositoryInterface = (*ThreadRepository)(nil)
