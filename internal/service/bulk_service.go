package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/vaktsms/vaktsms-backend/internal/errors"
	"github.com/vaktsms/vaktsms-backend/internal/model"
	"github.com/vaktsms/vaktsms-backend/internal/repository"
	"github.com/vaktsms/vaktsms-backend/internal/sender"
)

// BulkService runs bulk campaigns and correlates inbound replies back to
// them.
type BulkService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	GatewayRepo  repository.GatewayRepositoryInterface
	ContactRepo  repository.ContactRepositoryInterface
	ThreadRepo   repository.ThreadRepositoryInterface
	MessageRepo  repository.MessageRepositoryInterface
	Sender       sender.Sender

	// SendDelay throttles the external gateway between recipients.
	SendDelay time.Duration
}

// RunResult is the aggregate outcome of one campaign run.
type RunResult struct {
	CampaignID int `json:"campaign_id"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

// RunCampaign dispatches the campaign to every recipient, strictly in list
// order. One recipient's failure never aborts the batch: it is recorded on
// the recipient row and processing continues. The campaign ends completed
// when at least one recipient was sent, failed otherwise.
func (s *BulkService) RunCampaign(ctx context.Context, campaignID int) (*RunResult, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignDraft && campaign.Status != model.CampaignPending {
		return nil, apperrors.InvalidStatef("campaign %d cannot be sent in status %q", campaignID, campaign.Status)
	}

	gateway, err := s.GatewayRepo.GetByID(ctx, campaign.GatewayID)
	if err != nil {
		return nil, err
	}

	if err := s.CampaignRepo.UpdateStatus(ctx, campaignID, model.CampaignSending); err != nil {
		return nil, err
	}

	recipients, err := s.CampaignRepo.ListRecipients(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	result := &RunResult{CampaignID: campaignID, Total: len(recipients)}
	for i, recipient := range recipients {
		if i > 0 && s.SendDelay > 0 {
			time.Sleep(s.SendDelay)
		}

		messageID, err := s.sendToRecipient(ctx, campaign, gateway, recipient)
		if err != nil {
			log.Printf("[bulk] campaign %d recipient %d (%s) failed: %v", campaignID, recipient.ID, recipient.Phone, err)
			if markErr := s.CampaignRepo.MarkRecipientFailed(ctx, recipient.ID, err.Error()); markErr != nil {
				log.Printf("[bulk] failed to mark recipient %d failed: %v", recipient.ID, markErr)
			}
			result.Failed++
			continue
		}

		if err := s.CampaignRepo.MarkRecipientSent(ctx, recipient.ID, messageID, time.Now()); err != nil {
			log.Printf("[bulk] failed to mark recipient %d sent: %v", recipient.ID, err)
		}
		result.Sent++
	}

	finalStatus := model.CampaignCompleted
	if result.Sent == 0 {
		finalStatus = model.CampaignFailed
	}
	if err := s.CampaignRepo.UpdateStatus(ctx, campaignID, finalStatus); err != nil {
		return result, err
	}
	return result, nil
}

// sendToRecipient renders, threads, persists, and dispatches one outbound
// message. Any error along the way counts as a per-recipient failure.
func (s *BulkService) sendToRecipient(ctx context.Context, campaign *model.BulkCampaign, gateway *model.Gateway, recipient model.BulkRecipient) (int, error) {
	phone := NormalizeIdentifier(recipient.Phone)
	if phone == "" {
		return 0, fmt.Errorf("recipient phone %q normalizes to nothing", recipient.Phone)
	}

	body := RenderTemplate(campaign.Template, recipient.Metadata)

	contact, err := s.ContactRepo.FindOrCreate(ctx, campaign.TenantID, phone)
	if err != nil {
		return 0, err
	}

	thread, err := s.resolveOutboundThread(ctx, campaign, contact)
	if err != nil {
		return 0, err
	}

	externalID := uuid.New().String()
	msg := &model.Message{
		TenantID:   campaign.TenantID,
		ThreadID:   thread.ID,
		GatewayID:  campaign.GatewayID,
		GroupID:    thread.ResolvedGroupID,
		CampaignID: &campaign.ID,
		Direction:  model.DirectionOutbound,
		FromNumber: gateway.SenderID,
		ToNumber:   phone,
		Body:       body,
		Status:     model.MessageStatusPending,
		ExternalID: &externalID,
	}
	if err := s.MessageRepo.Create(ctx, msg); err != nil {
		return 0, err
	}

	_, err = s.Sender.Send(ctx, sender.SendRequest{
		From:      gateway.SenderID,
		To:        phone,
		Body:      body,
		Reference: externalID,
	})
	if err != nil {
		if statusErr := s.MessageRepo.UpdateStatus(ctx, msg.ID, model.MessageStatusFailed); statusErr != nil {
			log.Printf("[bulk] failed to mark message %d failed: %v", msg.ID, statusErr)
		}
		return 0, err
	}

	if err := s.MessageRepo.UpdateStatus(ctx, msg.ID, model.MessageStatusSent); err != nil {
		log.Printf("[bulk] failed to mark message %d sent: %v", msg.ID, err)
	}
	return msg.ID, nil
}

// resolveOutboundThread reuses the open thread for the recipient when one
// exists; otherwise it opens a new thread bound to the campaign's source
// group.
func (s *BulkService) resolveOutboundThread(ctx context.Context, campaign *model.BulkCampaign, contact *model.Contact) (*model.Thread, error) {
	now := time.Now()

	open, err := s.ThreadRepo.FindOpen(ctx, campaign.GatewayID, contact.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		if err := s.ThreadRepo.Touch(ctx, open.ID, now); err != nil {
			return nil, err
		}
		open.LastMessageAt = now
		return open, nil
	}

	thread := &model.Thread{
		TenantID:        campaign.TenantID,
		GatewayID:       campaign.GatewayID,
		ContactID:       contact.ID,
		ResolvedGroupID: campaign.GroupID,
		LastMessageAt:   now,
	}
	err = s.ThreadRepo.Create(ctx, thread)
	if errors.Is(err, repository.ErrDuplicateThread) {
		winner, ferr := s.ThreadRepo.FindOpen(ctx, campaign.GatewayID, contact.ID)
		if ferr != nil {
			return nil, ferr
		}
		if winner == nil {
			// The winner got resolved between the insert and the re-read.
			return nil, fmt.Errorf("duplicate open thread reported but none found for contact %d", contact.ID)
		}
		return winner, nil
	}
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// CorrelateReply checks whether the outbound message that provoked an
// inbound reply belongs to a bulk campaign and, if so, marks the matching
// recipient replied. The sent-only guard in the repository makes a second
// reply from the same number a no-op. No campaign match is not an error.
func (s *BulkService) CorrelateReply(ctx context.Context, outbound *model.Message, at time.Time) (*int, bool, error) {
	if outbound == nil || outbound.CampaignID == nil {
		return nil, false, nil
	}

	matched, err := s.CampaignRepo.MarkRecipientReplied(ctx, *outbound.CampaignID, outbound.ToNumber, at)
	if err != nil {
		return outbound.CampaignID, false, err
	}
	if matched {
		log.Printf("[bulk] campaign %d: reply from %s recorded", *outbound.CampaignID, outbound.ToNumber)
	}
	return outbound.CampaignID, true, nil
}
