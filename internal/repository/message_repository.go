package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "github.com/vaktsms/vaktsms-backend/internal/errors"
	"github.com/vaktsms/vaktsms-backend/internal/model"
)

type MessageRepositoryInterface interface {
	Create(ctx context.Context, m *model.Message) error
	LatestOutboundTo(ctx context.Context, tenantID, gatewayID int, phone string) (*model.Message, error)
	Acknowledge(ctx context.Context, messageID, userID int, at time.Time) (*AckRow, error)
	ListEscalatable(ctx context.Context, groupID int, cutoff time.Time) ([]model.Message, error)
	MarkEscalated(ctx context.Context, messageID, fromLevel int, at time.Time) (bool, error)
	FindByExternalID(ctx context.Context, externalID string) (*model.Message, error)
	UpdateStatus(ctx context.Context, messageID int, status model.MessageStatus) error
	ListByThread(ctx context.Context, threadID int) ([]model.Message, error)
}

// AckRow is what the conditional acknowledge update returns: enough to write
// the audit event without a second read.
type AckRow struct {
	MessageID       int
	TenantID        int
	EscalationLevel int
	AcknowledgedAt  time.Time
}

type MessageRepository struct {
	DB *sql.DB
}

const messageColumns = `
    id, tenant_id, thread_id, gateway_id, group_id, campaign_id, parent_message_id,
    direction, from_number, to_number, body, status, external_id,
    escalation_level, escalated_at, acknowledged_at, acknowledged_by,
    received_at, created_at`

func scanMessage(row interface{ Scan(...interface{}) error }) (*model.Message, error) {
	var m model.Message
	err := row.Scan(
		&m.ID, &m.TenantID, &m.ThreadID, &m.GatewayID, &m.GroupID, &m.CampaignID, &m.ParentMessageID,
		&m.Direction, &m.FromNumber, &m.ToNumber, &m.Body, &m.Status, &m.ExternalID,
		&m.EscalationLevel, &m.EscalatedAt, &m.AcknowledgedAt, &m.AcknowledgedBy,
		&m.ReceivedAt, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	m.CreatedAt = time.Now()
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = m.CreatedAt
	}

	query := `
        INSERT INTO messages
            (tenant_id, thread_id, gateway_id, group_id, campaign_id, parent_message_id,
             direction, from_number, to_number, body, status, external_id,
             escalation_level, received_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, $13, $14)
        RETURNING id
    `
	err := r.DB.QueryRowContext(ctx, query,
		m.TenantID, m.ThreadID, m.GatewayID, m.GroupID, m.CampaignID, m.ParentMessageID,
		m.Direction, m.FromNumber, m.ToNumber, m.Body, m.Status, m.ExternalID,
		m.ReceivedAt, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// LatestOutboundTo returns the most recent outbound message to the number on
// this gateway, or (nil, nil). This is the authoritative lookup for thread
// resolution: an open conversation always wins over routing rules.
func (r *MessageRepository) LatestOutboundTo(ctx context.Context, tenantID, gatewayID int, phone string) (*model.Message, error) {
	query := `
        SELECT ` + messageColumns + `
        FROM messages
        WHERE tenant_id = $1 AND gateway_id = $2 AND to_number = $3 AND direction = 'outbound'
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    `
	m, err := scanMessage(r.DB.QueryRowContext(ctx, query, tenantID, gatewayID, phone))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest outbound: %w", err)
	}
	return m, nil
}

// Acknowledge performs the at-most-once acknowledgement transition. The
// precondition (inbound, not yet acknowledged) is enforced by the UPDATE
// itself, so the loser of a concurrent race gets
// ErrAlreadyAcknowledgedOrNotFound rather than a corrupted row.
func (r *MessageRepository) Acknowledge(ctx context.Context, messageID, userID int, at time.Time) (*AckRow, error) {
	query := `
        UPDATE messages
        SET acknowledged_at = $1, acknowledged_by = $2
        WHERE id = $3 AND direction = 'inbound' AND acknowledged_at IS NULL
        RETURNING id, tenant_id, escalation_level
    `
	var row AckRow
	err := r.DB.QueryRowContext(ctx, query, at, userID, messageID).Scan(
		&row.MessageID, &row.TenantID, &row.EscalationLevel,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrAlreadyAcknowledgedOrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("acknowledge message: %w", err)
	}
	row.AcknowledgedAt = at
	return &row, nil
}

// ListEscalatable returns the group's inbound, unacknowledged, non-terminal
// messages whose last transition (creation or previous escalation) is older
// than the cutoff. Gating on escalated_at is what keeps repeated sweeps
// inside one timeout window from re-escalating.
func (r *MessageRepository) ListEscalatable(ctx context.Context, groupID int, cutoff time.Time) ([]model.Message, error) {
	query := `
        SELECT ` + messageColumns + `
        FROM messages
        WHERE group_id = $1
          AND direction = 'inbound'
          AND acknowledged_at IS NULL
          AND escalation_level < $2
          AND COALESCE(escalated_at, created_at) <= $3
        ORDER BY created_at ASC
    `
	rows, err := r.DB.QueryContext(ctx, query, groupID, model.MaxEscalationLevel, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list escalatable: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// MarkEscalated advances the message exactly one level. The fromLevel guard
// makes the bump monotonic and safe against a concurrent sweep.
func (r *MessageRepository) MarkEscalated(ctx context.Context, messageID, fromLevel int, at time.Time) (bool, error) {
	query := `
        UPDATE messages
        SET escalation_level = escalation_level + 1, escalated_at = $1
        WHERE id = $2 AND escalation_level = $3 AND acknowledged_at IS NULL
    `
	res, err := r.DB.ExecContext(ctx, query, at, messageID, fromLevel)
	if err != nil {
		return false, fmt.Errorf("mark escalated: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FindByExternalID resolves a provider message id, or (nil, nil) when the
// provider reports an id we never issued.
func (r *MessageRepository) FindByExternalID(ctx context.Context, externalID string) (*model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE external_id = $1`
	m, err := scanMessage(r.DB.QueryRowContext(ctx, query, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by external id: %w", err)
	}
	return m, nil
}

func (r *MessageRepository) UpdateStatus(ctx context.Context, messageID int, status model.MessageStatus) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE messages SET status = $1 WHERE id = $2`, status, messageID)
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	return nil
}

// ListByThread returns a thread's messages oldest first, for the inbox view.
func (r *MessageRepository) ListByThread(ctx context.Context, threadID int) ([]model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE thread_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("list thread messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
