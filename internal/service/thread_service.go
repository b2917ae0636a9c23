package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vaktsms/vaktsms-backend/internal/model"
	"github.com/vaktsms/vaktsms-backend/internal/repository"
)

// ThreadService finds or creates the conversation thread an inbound message
// belongs to.
type ThreadService struct {
	ThreadRepo  repository.ThreadRepositoryInterface
	MessageRepo repository.MessageRepositoryInterface
	Routing     *RoutingService
}

// Resolution is the outcome of resolving a thread for one inbound message.
type Resolution struct {
	Thread *model.Thread
	// LatestOutbound is the most recent outbound message to the contact on
	// this gateway, when one exists. Its campaign id is carried forward.
	LatestOutbound *model.Message
	// Continuation is true when an existing conversation absorbed the
	// message instead of a new thread being created.
	Continuation bool
}

// Resolve applies the domain rule "a reply always returns to the
// conversation that provoked it", in priority order:
//
//  1. The thread of the latest outbound message to this contact on this
//     gateway. Authoritative: it overrides routing rules entirely.
//  2. An existing open thread for the (contact, gateway) pair.
//  3. A new thread, grouped by the routing rule engine.
func (s *ThreadService) Resolve(ctx context.Context, gateway *model.Gateway, contact *model.Contact, body string, at time.Time) (*Resolution, error) {
	outbound, err := s.MessageRepo.LatestOutboundTo(ctx, gateway.TenantID, gateway.ID, contact.Phone)
	if err != nil {
		return nil, err
	}
	if outbound != nil {
		thread, err := s.ThreadRepo.GetByID(ctx, outbound.ThreadID)
		if err != nil {
			return nil, err
		}
		if thread != nil {
			if err := s.ThreadRepo.Touch(ctx, thread.ID, at); err != nil {
				return nil, err
			}
			thread.LastMessageAt = at
			return &Resolution{Thread: thread, LatestOutbound: outbound, Continuation: true}, nil
		}
		// Outbound message pointing at a deleted thread; fall through to
		// the normal lookup rather than failing the inbound message.
		log.Printf("[thread] outbound message %d references missing thread %d", outbound.ID, outbound.ThreadID)
	}

	open, err := s.ThreadRepo.FindOpen(ctx, gateway.ID, contact.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		if err := s.ThreadRepo.Touch(ctx, open.ID, at); err != nil {
			return nil, err
		}
		open.LastMessageAt = at
		return &Resolution{Thread: open, LatestOutbound: outbound, Continuation: true}, nil
	}

	groupID, err := s.Routing.ResolveGroup(ctx, gateway, contact, body)
	if err != nil {
		return nil, err
	}

	thread := &model.Thread{
		TenantID:        gateway.TenantID,
		GatewayID:       gateway.ID,
		ContactID:       contact.ID,
		ResolvedGroupID: groupID,
		LastMessageAt:   at,
	}
	err = s.ThreadRepo.Create(ctx, thread)
	if errors.Is(err, repository.ErrDuplicateThread) {
		// Lost a create race with a concurrent inbound message; reuse the
		// winner's thread.
		winner, ferr := s.ThreadRepo.FindOpen(ctx, gateway.ID, contact.ID)
		if ferr != nil {
			return nil, ferr
		}
		if winner == nil {
			return nil, fmt.Errorf("duplicate open thread reported but none found for contact %d", contact.ID)
		}
		if err := s.ThreadRepo.Touch(ctx, winner.ID, at); err != nil {
			return nil, err
		}
		winner.LastMessageAt = at
		return &Resolution{Thread: winner, LatestOutbound: outbound, Continuation: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Resolution{Thread: thread, LatestOutbound: outbound, Continuation: false}, nil
}
