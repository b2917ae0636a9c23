package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vaktsms/vaktsms-backend/internal/model"
	"github.com/vaktsms/vaktsms-backend/internal/queue"
	"github.com/vaktsms/vaktsms-backend/internal/repository"
)

// EscalationService promotes unacknowledged inbound messages through the
// escalation tiers. It is designed to run on a fixed interval; each sweep
// re-scans every escalation-enabled group, advances each qualifying message
// exactly one level, and keeps no cursor between runs.
type EscalationService struct {
	GroupRepo   repository.GroupRepositoryInterface
	MessageRepo repository.MessageRepositoryInterface
	EventRepo   repository.EventRepositoryInterface
	Queue       queue.Queue

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

// SweepResult aggregates one sweep.
type SweepResult struct {
	EscalatedCount int `json:"escalated_count"`
}

// EscalationNotice is the payload published per transition for external
// notification workers.
type EscalationNotice struct {
	MessageID     int    `json:"message_id"`
	GroupID       int    `json:"group_id"`
	Level         int    `json:"level"`
	TargetUserIDs []int  `json:"target_user_ids"`
	Reason        string `json:"reason"`
}

// Run executes one escalation sweep. Per-message failures are logged and
// skipped; the sweep itself only fails when the group scan does.
func (s *EscalationService) Run(ctx context.Context) (*SweepResult, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	groups, err := s.GroupRepo.ListEscalationEnabled(ctx)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for _, group := range groups {
		cutoff := now().Add(-time.Duration(group.EscalationTimeoutMinutes) * time.Minute)

		messages, err := s.MessageRepo.ListEscalatable(ctx, group.ID, cutoff)
		if err != nil {
			log.Printf("[escalation] group %d scan failed: %v", group.ID, err)
			continue
		}

		for _, msg := range messages {
			advanced, err := s.escalate(ctx, group, msg, now())
			if err != nil {
				log.Printf("[escalation] message %d failed: %v", msg.ID, err)
				continue
			}
			if advanced {
				result.EscalatedCount++
			}
		}
	}
	return result, nil
}

// escalate advances one message a single level and records the transition.
// It reports false when the conditional update lost to a concurrent
// acknowledgement or another sweep.
func (s *EscalationService) escalate(ctx context.Context, group model.Group, msg model.Message, at time.Time) (bool, error) {
	newLevel := msg.EscalationLevel + 1

	var targets []int
	var reason string
	var err error
	switch newLevel {
	case 1:
		targets, err = s.GroupRepo.MemberIDs(ctx, group.ID)
		reason = fmt.Sprintf("unacknowledged for over %d minutes, notifying all members of group %q",
			group.EscalationTimeoutMinutes, group.Name)
	case 2:
		targets, err = s.GroupRepo.AdminIDs(ctx, group.TenantID)
		reason = "still unacknowledged after group escalation, notifying all tenant admins"
	default:
		// Level 2 is terminal; ListEscalatable should never hand us more.
		return false, fmt.Errorf("message %d already at terminal level %d", msg.ID, msg.EscalationLevel)
	}
	if err != nil {
		return false, err
	}

	advanced, err := s.MessageRepo.MarkEscalated(ctx, msg.ID, msg.EscalationLevel, at)
	if err != nil {
		return false, err
	}
	if !advanced {
		// Acknowledged or escalated by someone else since the scan.
		return false, nil
	}

	event := &model.EscalationEvent{
		MessageID:     msg.ID,
		Level:         newLevel,
		TargetUserIDs: targets,
		Reason:        reason,
	}
	if err := s.EventRepo.CreateEscalationEvent(ctx, event); err != nil {
		return true, err
	}

	audit := &model.AuditLog{
		TenantID:  msg.TenantID,
		Action:    "message.escalated",
		Detail:    fmt.Sprintf("escalated to level %d: %s", newLevel, reason),
		MessageID: &msg.ID,
	}
	if err := s.EventRepo.CreateAuditLog(ctx, audit); err != nil {
		log.Printf("[escalation] failed to write audit log for message %d: %v", msg.ID, err)
	}

	if s.Queue != nil {
		notice := EscalationNotice{
			MessageID:     msg.ID,
			GroupID:       group.ID,
			Level:         newLevel,
			TargetUserIDs: targets,
			Reason:        reason,
		}
		if err := s.Queue.Publish(queue.TopicEscalations, notice); err != nil {
			log.Printf("[escalation] failed to publish notice for message %d: %v", msg.ID, err)
		}
	}

	log.Printf("[escalation] message %d advanced to level %d (%d targets)", msg.ID, newLevel, len(targets))
	return true, nil
}
