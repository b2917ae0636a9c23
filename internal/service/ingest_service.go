package service

import (
	"context"
	"time"

	apperrors "github.com/vaktsms/vaktsms-backend/internal/errors"
	"github.com/vaktsms/vaktsms-backend/internal/model"
	"github.com/vaktsms/vaktsms-backend/internal/repository"
)

// IngestService is the entry point for inbound messages from the provider.
// It orchestrates normalization, thread resolution, campaign correlation,
// and persistence.
type IngestService struct {
	GatewayRepo repository.GatewayRepositoryInterface
	ContactRepo repository.ContactRepositoryInterface
	MessageRepo repository.MessageRepositoryInterface
	Threads     *ThreadService
	Bulk        *BulkService
}

// IngestInput is one inbound SMS/MMS as reported by the provider webhook.
type IngestInput struct {
	GatewayID  int        `json:"gateway_id"`
	FromNumber string     `json:"from_number"`
	ToNumber   string     `json:"to_number"`
	Content    string     `json:"content"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
	// Optional hints supplied by the caller; thread resolution can fill
	// them in when absent.
	CampaignID      *int `json:"campaign_id,omitempty"`
	ParentMessageID *int `json:"parent_message_id,omitempty"`
}

// IngestResult reports where the message landed.
type IngestResult struct {
	MessageID       int  `json:"message_id"`
	ThreadID        int  `json:"thread_id"`
	ResolvedGroupID int  `json:"resolved_group_id"`
	IsBulkResponse  bool `json:"is_bulk_response"`
	CampaignID      *int `json:"campaign_id,omitempty"`
	ParentMessageID *int `json:"parent_message_id,omitempty"`
}

// Ingest routes one inbound message into the right thread and group and
// persists it. Retrying the same payload creates a new message row, but
// thread resolution is deterministic given the stored state.
func (s *IngestService) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	if in.GatewayID == 0 {
		return nil, apperrors.Validationf("gateway_id is required")
	}
	if in.FromNumber == "" {
		return nil, apperrors.Validationf("from_number is required")
	}
	if in.ToNumber == "" {
		return nil, apperrors.Validationf("to_number is required")
	}
	if in.Content == "" {
		return nil, apperrors.Validationf("content is required")
	}

	receivedAt := time.Now()
	if in.ReceivedAt != nil {
		receivedAt = *in.ReceivedAt
	}

	from := NormalizeIdentifier(in.FromNumber)
	to := NormalizeIdentifier(in.ToNumber)
	if from == "" {
		return nil, apperrors.Validationf("from_number %q is not a usable identifier", in.FromNumber)
	}

	gateway, err := s.GatewayRepo.GetByID(ctx, in.GatewayID)
	if err != nil {
		return nil, err
	}

	contact, err := s.ContactRepo.FindOrCreate(ctx, gateway.TenantID, from)
	if err != nil {
		return nil, err
	}

	resolution, err := s.Threads.Resolve(ctx, gateway, contact, in.Content, receivedAt)
	if err != nil {
		return nil, err
	}

	campaignID, isBulk, err := s.Bulk.CorrelateReply(ctx, resolution.LatestOutbound, receivedAt)
	if err != nil {
		return nil, err
	}
	if in.CampaignID != nil {
		campaignID = in.CampaignID
	}

	parentID := in.ParentMessageID
	if parentID == nil && resolution.LatestOutbound != nil {
		parentID = &resolution.LatestOutbound.ID
	}

	msg := &model.Message{
		TenantID:        gateway.TenantID,
		ThreadID:        resolution.Thread.ID,
		GatewayID:       gateway.ID,
		GroupID:         resolution.Thread.ResolvedGroupID,
		CampaignID:      campaignID,
		ParentMessageID: parentID,
		Direction:       model.DirectionInbound,
		FromNumber:      from,
		ToNumber:        to,
		Body:            in.Content,
		Status:          model.MessageStatusReceived,
		ReceivedAt:      receivedAt,
	}
	if err := s.MessageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	return &IngestResult{
		MessageID:       msg.ID,
		ThreadID:        resolution.Thread.ID,
		ResolvedGroupID: resolution.Thread.ResolvedGroupID,
		IsBulkResponse:  isBulk,
		CampaignID:      campaignID,
		ParentMessageID: parentID,
	}, nil
}
