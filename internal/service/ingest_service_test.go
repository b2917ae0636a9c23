package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/vaktsms/vaktsms-backend/internal/errors"
	"github.com/vaktsms/vaktsms-backend/internal/model"
	"github.com/vaktsms/vaktsms-backend/internal/service"
)

type ingestFixture struct {
	gateways  *fakeGatewayRepo
	contacts  *fakeContactRepo
	messages  *fakeMessageRepo
	threads   *fakeThreadRepo
	campaigns *fakeCampaignRepo
	rules     *fakeRuleRepo
	svc       *service.IngestService
}

func newIngestFixture() *ingestFixture {
	f := &ingestFixture{
		gateways: &fakeGatewayRepo{gateways: map[int]*model.Gateway{
			5: {ID: 5, TenantID: 1, SenderID: "+4759440000", Active: true},
		}},
		contacts:  &fakeContactRepo{},
		messages:  newFakeMessageRepo(),
		threads:   newFakeThreadRepo(),
		campaigns: newFakeCampaignRepo(),
		rules: &fakeRuleRepo{rules: []model.RoutingRule{
			{ID: 1, TenantID: 1, TargetGroupID: 10, Kind: model.RuleKeyword, Pattern: "hjelp", Priority: 10, Active: true},
			{ID: 2, TenantID: 1, TargetGroupID: 12, Kind: model.RuleFallback, Priority: 100, Active: true},
		}},
	}
	f.svc = &service.IngestService{
		GatewayRepo: f.gateways,
		ContactRepo: f.contacts,
		MessageRepo: f.messages,
		Threads: &service.ThreadService{
			ThreadRepo:  f.threads,
			MessageRepo: f.messages,
			Routing:     &service.RoutingService{RuleRepo: f.rules},
		},
		Bulk: &service.BulkService{CampaignRepo: f.campaigns},
	}
	return f
}

func TestIngestValidation(t *testing.T) {
	f := newIngestFixture()
	cases := []struct {
		name string
		in   service.IngestInput
	}{
		{"missing gateway", service.IngestInput{FromNumber: "+47", ToNumber: "+47", Content: "x"}},
		{"missing from", service.IngestInput{GatewayID: 5, ToNumber: "+47", Content: "x"}},
		{"missing to", service.IngestInput{GatewayID: 5, FromNumber: "+47", Content: "x"}},
		{"missing content", service.IngestInput{GatewayID: 5, FromNumber: "+47", ToNumber: "+47"}},
		{"unusable from", service.IngestInput{GatewayID: 5, FromNumber: "()-", ToNumber: "+47", Content: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Ingest(context.Background(), tc.in)
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestIngestUnknownGateway(t *testing.T) {
	f := newIngestFixture()
	_, err := f.svc.Ingest(context.Background(), service.IngestInput{
		GatewayID: 999, FromNumber: "+4712345678", ToNumber: "+4759440000", Content: "hei",
	})
	if !apperrors.IsNotFound(err) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestIngestCreatesContactAndRoutes(t *testing.T) {
	f := newIngestFixture()
	res, err := f.svc.Ingest(context.Background(), service.IngestInput{
		GatewayID: 5, FromNumber: "+47 123 45 678", ToNumber: "+4759440000", Content: "Trenger hjelp med feilen",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.ResolvedGroupID != 10 {
		t.Errorf("resolved group = %d, want 10 (keyword match)", res.ResolvedGroupID)
	}
	if res.IsBulkResponse {
		t.Error("IsBulkResponse = true, want false")
	}

	contact, err := f.contacts.FindByPhone(context.Background(), 1, "+4712345678")
	if err != nil || contact == nil {
		t.Fatalf("contact not created with normalized phone: %v, %v", contact, err)
	}

	msg := f.messages.get(res.MessageID)
	if msg == nil {
		t.Fatal("message not persisted")
	}
	if msg.Direction != model.DirectionInbound || msg.Status != model.MessageStatusReceived {
		t.Errorf("message direction/status = %s/%s, want inbound/received", msg.Direction, msg.Status)
	}
	if msg.FromNumber != "+4712345678" {
		t.Errorf("from_number = %q, want normalized +4712345678", msg.FromNumber)
	}
	if msg.GroupID != 10 || msg.ThreadID != res.ThreadID {
		t.Errorf("message group/thread = %d/%d, want 10/%d", msg.GroupID, msg.ThreadID, res.ThreadID)
	}

	// A second message from the same contact stays in the same thread.
	again, err := f.svc.Ingest(context.Background(), service.IngestInput{
		GatewayID: 5, FromNumber: "4712345678", ToNumber: "+4759440000", Content: "noe helt annet",
	})
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if again.ThreadID != res.ThreadID {
		t.Errorf("second message landed in thread %d, want %d", again.ThreadID, res.ThreadID)
	}
}

func TestIngestBulkReplyCorrelation(t *testing.T) {
	f := newIngestFixture()
	f.contacts.add(&model.Contact{ID: 7, TenantID: 1, Phone: "+4712345678"})
	f.threads.add(&model.Thread{ID: 2, TenantID: 1, GatewayID: 5, ContactID: 7, ResolvedGroupID: 20, Resolved: true})
	f.campaigns.campaigns[3] = &model.BulkCampaign{ID: 3, TenantID: 1, GroupID: 20, GatewayID: 5, Status: model.CampaignCompleted}
	f.campaigns.recipients = append(f.campaigns.recipients, &model.BulkRecipient{
		ID: 1, CampaignID: 3, Phone: "+4712345678", Status: model.RecipientSent,
	})
	campaignID := 3
	f.messages.add(&model.Message{
		ID: 100, TenantID: 1, ThreadID: 2, GatewayID: 5, GroupID: 20,
		CampaignID: &campaignID, Direction: model.DirectionOutbound,
		ToNumber: "+4712345678", CreatedAt: time.Now().Add(-time.Hour),
	})

	res, err := f.svc.Ingest(context.Background(), service.IngestInput{
		GatewayID: 5, FromNumber: "+4712345678", ToNumber: "+4759440000", Content: "JA takk",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !res.IsBulkResponse {
		t.Error("IsBulkResponse = false, want true")
	}
	if res.CampaignID == nil || *res.CampaignID != 3 {
		t.Errorf("campaign id = %v, want 3", res.CampaignID)
	}
	if res.ThreadID != 2 {
		t.Errorf("thread = %d, want campaign thread 2", res.ThreadID)
	}
	if res.ParentMessageID == nil || *res.ParentMessageID != 100 {
		t.Errorf("parent message = %v, want 100", res.ParentMessageID)
	}

	rec := f.campaigns.recipient(1)
	if rec.Status != model.RecipientReplied {
		t.Errorf("recipient status = %s, want replied", rec.Status)
	}

	// A second reply must not flip the recipient row again but still
	// carries the campaign linkage on the message.
	respondedAt := *rec.RespondedAt
	res2, err := f.svc.Ingest(context.Background(), service.IngestInput{
		GatewayID: 5, FromNumber: "+4712345678", ToNumber: "+4759440000", Content: "og en ting til",
	})
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if res2.CampaignID == nil || *res2.CampaignID != 3 {
		t.Errorf("second reply campaign id = %v, want 3", res2.CampaignID)
	}
	rec = f.campaigns.recipient(1)
	if !rec.RespondedAt.Equal(respondedAt) {
		t.Error("responded_at changed on repeat reply")
	}
}

func TestIngestNoRouteDropsMessage(t *testing.T) {
	f := newIngestFixture()
	f.rules.rules = nil

	_, err := f.svc.Ingest(context.Background(), service.IngestInput{
		GatewayID: 5, FromNumber: "+4712345678", ToNumber: "+4759440000", Content: "hei",
	})
	if !errors.Is(err, apperrors.ErrNoRouteFound) {
		t.Fatalf("err = %v, want ErrNoRouteFound", err)
	}
	if len(f.messages.messages) != 0 {
		t.Errorf("%d messages persisted, want 0", len(f.messages.messages))
	}
}
