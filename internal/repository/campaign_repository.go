package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/vaktsms/vaktsms-backend/internal/errors"
	"github.com/vaktsms/vaktsms-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	GetByID(ctx context.Context, id int) (*model.BulkCampaign, error)
	UpdateStatus(ctx context.Context, campaignID int, status model.CampaignStatus) error
	ListRecipients(ctx context.Context, campaignID int) ([]model.BulkRecipient, error)
	MarkRecipientSent(ctx context.Context, recipientID, messageID int, at time.Time) error
	MarkRecipientFailed(ctx context.Context, recipientID int, lastError string) error
	MarkRecipientReplied(ctx context.Context, campaignID int, phone string, at time.Time) (bool, error)
	RecipientStats(ctx context.Context, campaignID int) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int) (*model.BulkCampaign, error) {
	query := `
        SELECT id, tenant_id, group_id, gateway_id, name, template, status, scheduled_at, created_at, updated_at
        FROM bulk_campaigns WHERE id = $1
    `
	var c model.BulkCampaign
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.TenantID, &c.GroupID, &c.GatewayID, &c.Name, &c.Template,
		&c.Status, &c.ScheduledAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFound("campaign", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return &c, nil
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, campaignID int, status model.CampaignStatus) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE bulk_campaigns SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), campaignID)
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	return nil
}

// ListRecipients returns the campaign's recipients in list order.
func (r *CampaignRepository) ListRecipients(ctx context.Context, campaignID int) ([]model.BulkRecipient, error) {
	query := `
        SELECT id, campaign_id, phone, metadata, status, message_id, COALESCE(last_error, ''), sent_at, responded_at
        FROM bulk_recipients
        WHERE campaign_id = $1
        ORDER BY id ASC
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var recipients []model.BulkRecipient
	for rows.Next() {
		var rec model.BulkRecipient
		var metadata []byte
		if err := rows.Scan(
			&rec.ID, &rec.CampaignID, &rec.Phone, &metadata, &rec.Status,
			&rec.MessageID, &rec.LastError, &rec.SentAt, &rec.RespondedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decode recipient metadata: %w", err)
			}
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

func (r *CampaignRepository) MarkRecipientSent(ctx context.Context, recipientID, messageID int, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE bulk_recipients
        SET status = 'sent', message_id = $1, sent_at = $2, last_error = NULL
        WHERE id = $3
    `, messageID, at, recipientID)
	if err != nil {
		return fmt.Errorf("mark recipient sent: %w", err)
	}
	return nil
}

func (r *CampaignRepository) MarkRecipientFailed(ctx context.Context, recipientID int, lastError string) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE bulk_recipients SET status = 'failed', last_error = $1 WHERE id = $2
    `, lastError, recipientID)
	if err != nil {
		return fmt.Errorf("mark recipient failed: %w", err)
	}
	return nil
}

// MarkRecipientReplied transitions sent -> replied for the matching number.
// The status guard makes a second reply from the same number a no-op, which
// is exactly the idempotence the correlator needs.
func (r *CampaignRepository) MarkRecipientReplied(ctx context.Context, campaignID int, phone string, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE bulk_recipients
        SET status = 'replied', responded_at = $1
        WHERE campaign_id = $2 AND phone = $3 AND status = 'sent'
    `, at, campaignID, phone)
	if err != nil {
		return false, fmt.Errorf("mark recipient replied: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecipientStats returns per-status recipient counts plus a total.
func (r *CampaignRepository) RecipientStats(ctx context.Context, campaignID int) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM bulk_recipients WHERE campaign_id = $1 GROUP BY status`,
		campaignID)
	if err != nil {
		return nil, fmt.Errorf("recipient stats: %w", err)
	}
	defer rows.Close()

	stats := map[string]int{"total": 0, "pending": 0, "sent": 0, "failed": 0, "replied": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		if _, ok := stats[status]; ok {
			stats[status] = count
		}
		stats["total"] += count
	}
	return stats, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
