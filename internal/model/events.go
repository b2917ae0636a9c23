package model

import "time"

// EscalationEvent is an append-only audit record of one escalation
// transition: which message, the level it reached, and who was notified.
type EscalationEvent struct {
	ID            int       `db:"id" json:"id"`
	MessageID     int       `db:"message_id" json:"message_id"`
	Level         int       `db:"level" json:"level"`
	TargetUserIDs []int     `db:"target_user_ids" json:"target_user_ids"`
	Reason        string    `db:"reason" json:"reason"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// DeliveryEvent is an append-only record of one provider delivery status
// callback for an outbound message.
type DeliveryEvent struct {
	ID           int       `db:"id" json:"id"`
	MessageID    int       `db:"message_id" json:"message_id"`
	Status       string    `db:"status" json:"status"`
	ErrorCode    string    `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	ReportedAt   time.Time `db:"reported_at" json:"reported_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AuditLog records acknowledgement and escalation transitions independently
// of the outcome of the surrounding HTTP call.
type AuditLog struct {
	ID        int       `db:"id" json:"id"`
	TenantID  int       `db:"tenant_id" json:"tenant_id"`
	ActorID   *int      `db:"actor_id" json:"actor_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	Detail    string    `db:"detail" json:"detail"`
	MessageID *int      `db:"message_id" json:"message_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
