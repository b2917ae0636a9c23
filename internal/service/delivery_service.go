package service

import (
	"context"
	"log"
	"time"

	"github.com/vaktsms/vaktsms-backend/internal/model"
	"github.com/vaktsms/vaktsms-backend/internal/queue"
	"github.com/vaktsms/vaktsms-backend/internal/repository"
)

// DeliveryService applies provider delivery status callbacks to outbound
// messages.
type DeliveryService struct {
	MessageRepo repository.MessageRepositoryInterface
	EventRepo   repository.EventRepositoryInterface
	Queue       queue.Queue
}

// DeliveryReport is the provider's webhook payload.
type DeliveryReport struct {
	ExternalMessageID string    `json:"external_message_id"`
	Status            string    `json:"status"`
	ErrorCode         string    `json:"error_code,omitempty"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Apply updates the matching message and appends a delivery event. An
// external id we never issued is acknowledged and ignored: providers retry
// webhooks, and a 4xx would just make them retry harder.
func (s *DeliveryService) Apply(ctx context.Context, report DeliveryReport) (matched bool, err error) {
	msg, err := s.MessageRepo.FindByExternalID(ctx, report.ExternalMessageID)
	if err != nil {
		return false, err
	}
	if msg == nil {
		log.Printf("[delivery] ignoring report for unknown external id %q", report.ExternalMessageID)
		return false, nil
	}

	status := mapDeliveryStatus(report.Status)
	if err := s.MessageRepo.UpdateStatus(ctx, msg.ID, status); err != nil {
		return true, err
	}

	event := &model.DeliveryEvent{
		MessageID:    msg.ID,
		Status:       report.Status,
		ErrorCode:    report.ErrorCode,
		ErrorMessage: report.ErrorMessage,
		ReportedAt:   report.Timestamp,
	}
	if err := s.EventRepo.CreateDeliveryEvent(ctx, event); err != nil {
		return true, err
	}

	if s.Queue != nil {
		if err := s.Queue.Publish(queue.TopicDeliveries, event); err != nil {
			log.Printf("[delivery] failed to publish delivery event for message %d: %v", msg.ID, err)
		}
	}
	return true, nil
}

// mapDeliveryStatus folds provider status strings onto our message statuses.
// Unknown statuses keep the message failed-safe as "sent".
func mapDeliveryStatus(providerStatus string) model.MessageStatus {
	switch providerStatus {
	case "delivered":
		return model.MessageStatusDelivered
	case "failed", "rejected", "expired", "undelivered":
		return model.MessageStatusFailed
	default:
		return model.MessageStatusSent
	}
}
