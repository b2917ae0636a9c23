package model

import "time"

// Campaign lifecycle states.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignPending   CampaignStatus = "pending"
	CampaignSending   CampaignStatus = "sending"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
)

// Per-recipient delivery/reply states.
type RecipientStatus string

const (
	RecipientPending RecipientStatus = "pending"
	RecipientSent    RecipientStatus = "sent"
	RecipientFailed  RecipientStatus = "failed"
	RecipientReplied RecipientStatus = "replied"
)

// BulkCampaign is a templated one-to-many send: a message template plus a
// recipient list, dispatched through one gateway on behalf of one group.
type BulkCampaign struct {
	ID          int            `db:"id" json:"id"`
	TenantID    int            `db:"tenant_id" json:"tenant_id"`
	GroupID     int            `db:"group_id" json:"group_id"`
	GatewayID   int            `db:"gateway_id" json:"gateway_id"`
	Name        string         `db:"name" json:"name"`
	Template    string         `db:"template" json:"template"`
	Status      CampaignStatus `db:"status" json:"status"`
	ScheduledAt *time.Time     `db:"scheduled_at" json:"scheduled_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// BulkRecipient carries one target number and its own send/reply status.
// Metadata feeds the {{key}} placeholders of the campaign template.
type BulkRecipient struct {
	ID          int               `db:"id" json:"id"`
	CampaignID  int               `db:"campaign_id" json:"campaign_id"`
	Phone       string            `db:"phone" json:"phone"`
	Metadata    map[string]string `db:"metadata" json:"metadata,omitempty"`
	Status      RecipientStatus   `db:"status" json:"status"`
	MessageID   *int              `db:"message_id" json:"message_id,omitempty"`
	LastError   string            `db:"last_error" json:"last_error,omitempty"`
	SentAt      *time.Time        `db:"sent_at" json:"sent_at,omitempty"`
	RespondedAt *time.Time        `db:"responded_at" json:"responded_at,omitempty"`
}
