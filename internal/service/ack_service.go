package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vaktsms/vaktsms-backend/internal/model"
	"github.com/vaktsms/vaktsms-backend/internal/repository"
)

// AckService marks inbound messages acknowledged, which stops any further
// escalation for them.
type AckService struct {
	MessageRepo repository.MessageRepositoryInterface
	EventRepo   repository.EventRepositoryInterface
}

// AckResult is the outcome of a successful acknowledgement.
type AckResult struct {
	MessageID      int       `json:"message_id"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
	AcknowledgedBy int       `json:"acknowledged_by"`
}

// Acknowledge transitions the message to acknowledged, at most once. The
// precondition (inbound, not yet acknowledged) is enforced by a conditional
// update in the store; under concurrent callers exactly one wins and the
// rest get ErrAlreadyAcknowledgedOrNotFound.
func (s *AckService) Acknowledge(ctx context.Context, messageID, userID int) (*AckResult, error) {
	now := time.Now()

	row, err := s.MessageRepo.Acknowledge(ctx, messageID, userID, now)
	if err != nil {
		return nil, err
	}

	// The audit record captures the escalation level the message had
	// reached when it was finally acknowledged. Audit failure does not
	// undo the acknowledgement.
	audit := &model.AuditLog{
		TenantID:  row.TenantID,
		ActorID:   &userID,
		Action:    "message.acknowledged",
		Detail:    fmt.Sprintf("acknowledged at escalation level %d", row.EscalationLevel),
		MessageID: &row.MessageID,
	}
	if err := s.EventRepo.CreateAuditLog(ctx, audit); err != nil {
		log.Printf("[ack] failed to write audit log for message %d: %v", messageID, err)
	}

	return &AckResult{
		MessageID:      row.MessageID,
		AcknowledgedAt: row.AcknowledgedAt,
		AcknowledgedBy: userID,
	}, nil
}
