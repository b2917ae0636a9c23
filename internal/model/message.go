package model

import "time"

// Direction of a message relative to the system.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Delivery status of a message as reported by us or the provider.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusFailed    MessageStatus = "failed"
	MessageStatusReceived  MessageStatus = "received"
)

// Message is one inbound or outbound SMS/MMS. Immutable once created except
// for the status fields: delivery status, acknowledgement and escalation
// columns. EscalationLevel starts at 0 and only increases.
type Message struct {
	ID              int           `db:"id" json:"id"`
	TenantID        int           `db:"tenant_id" json:"tenant_id"`
	ThreadID        int           `db:"thread_id" json:"thread_id"`
	GatewayID       int           `db:"gateway_id" json:"gateway_id"`
	GroupID         int           `db:"group_id" json:"group_id"`
	CampaignID      *int          `db:"campaign_id" json:"campaign_id,omitempty"`
	ParentMessageID *int          `db:"parent_message_id" json:"parent_message_id,omitempty"`
	Direction       Direction     `db:"direction" json:"direction"`
	FromNumber      string        `db:"from_number" json:"from_number"`
	ToNumber        string        `db:"to_number" json:"to_number"`
	Body            string        `db:"body" json:"body"`
	Status          MessageStatus `db:"status" json:"status"`
	ExternalID      *string       `db:"external_id" json:"external_id,omitempty"`
	EscalationLevel int           `db:"escalation_level" json:"escalation_level"`
	EscalatedAt     *time.Time    `db:"escalated_at" json:"escalated_at,omitempty"`
	AcknowledgedAt  *time.Time    `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	AcknowledgedBy  *int          `db:"acknowledged_by" json:"acknowledged_by,omitempty"`
	ReceivedAt      time.Time     `db:"received_at" json:"received_at"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}

// MaxEscalationLevel is the terminal escalation tier. A message at this
// level stays unacknowledged until someone acknowledges it by hand.
const MaxEscalationLevel = 2
