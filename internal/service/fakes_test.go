package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/vaktsms/vaktsms-backend/internal/errors"
	"github.com/vaktsms/vaktsms-backend/internal/model"
	"github.com/vaktsms/vaktsms-backend/internal/repository"
	"github.com/vaktsms/vaktsms-backend/internal/sender"
)

// In-memory fakes for the repository interfaces. They mirror the SQL
// semantics the services rely on: conditional updates, the single-open-
// thread constraint, and status guards.

type fakeGatewayRepo struct {
	gateways map[int]*model.Gateway
}

func (f *fakeGatewayRepo) GetByID(_ context.Context, id int) (*model.Gateway, error) {
	g, ok := f.gateways[id]
	if !ok || !g.Active {
		return nil, apperrors.NewNotFound("gateway", id)
	}
	cp := *g
	return &cp, nil
}

type fakeContactRepo struct {
	mu       sync.Mutex
	nextID   int
	contacts []*model.Contact
}

func (f *fakeContactRepo) FindByPhone(_ context.Context, tenantID int, phone string) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findLocked(tenantID, phone), nil
}

func (f *fakeContactRepo) findLocked(tenantID int, phone string) *model.Contact {
	for _, c := range f.contacts {
		if c.TenantID == tenantID && c.Phone == phone {
			cp := *c
			return &cp
		}
	}
	return nil
}

func (f *fakeContactRepo) FindOrCreate(_ context.Context, tenantID int, phone string) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c := f.findLocked(tenantID, phone); c != nil {
		return c, nil
	}
	f.nextID++
	c := &model.Contact{ID: f.nextID, TenantID: tenantID, Phone: phone, CreatedAt: time.Now()}
	f.contacts = append(f.contacts, c)
	cp := *c
	return &cp, nil
}

func (f *fakeContactRepo) add(c *model.Contact) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == 0 {
		f.nextID++
		c.ID = f.nextID
	} else if c.ID > f.nextID {
		f.nextID = c.ID
	}
	f.contacts = append(f.contacts, c)
}

type fakeRuleRepo struct {
	rules []model.RoutingRule
}

func (f *fakeRuleRepo) ListActive(_ context.Context, tenantID, gatewayID int) ([]model.RoutingRule, error) {
	var out []model.RoutingRule
	for _, r := range f.rules {
		if r.TenantID != tenantID || !r.Active {
			continue
		}
		if r.GatewayID != nil && *r.GatewayID != gatewayID {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

type fakeGroupRepo struct {
	groups  []model.Group
	members map[int][]int
	admins  map[int][]int
}

func (f *fakeGroupRepo) GetByID(_ context.Context, id int) (*model.Group, error) {
	for _, g := range f.groups {
		if g.ID == id {
			cp := g
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeGroupRepo) ListEscalationEnabled(_ context.Context) ([]model.Group, error) {
	var out []model.Group
	for _, g := range f.groups {
		if g.EscalationEnabled && g.EscalationTimeoutMinutes > 0 {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGroupRepo) MemberIDs(_ context.Context, groupID int) ([]int, error) {
	return f.members[groupID], nil
}

func (f *fakeGroupRepo) AdminIDs(_ context.Context, tenantID int) ([]int, error) {
	return f.admins[tenantID], nil
}

type fakeThreadRepo struct {
	mu      sync.Mutex
	nextID  int
	threads map[int]*model.Thread
}

func newFakeThreadRepo() *fakeThreadRepo {
	return &fakeThreadRepo{threads: make(map[int]*model.Thread)}
}

func (f *fakeThreadRepo) GetByID(_ context.Context, id int) (*model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.threads[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeThreadRepo) FindOpen(_ context.Context, gatewayID, contactID int) (*model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findOpenLocked(gatewayID, contactID), nil
}

func (f *fakeThreadRepo) findOpenLocked(gatewayID, contactID int) *model.Thread {
	for _, t := range f.threads {
		if t.GatewayID == gatewayID && t.ContactID == contactID && !t.Resolved {
			cp := *t
			return &cp
		}
	}
	return nil
}

func (f *fakeThreadRepo) Create(_ context.Context, t *model.Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findOpenLocked(t.GatewayID, t.ContactID) != nil {
		return repository.ErrDuplicateThread
	}
	f.nextID++
	t.ID = f.nextID
	t.CreatedAt = time.Now()
	cp := *t
	f.threads[t.ID] = &cp
	return nil
}

func (f *fakeThreadRepo) Touch(_ context.Context, id int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.threads[id]
	if !ok {
		return fmt.Errorf("thread %d not found", id)
	}
	t.LastMessageAt = at
	return nil
}

func (f *fakeThreadRepo) ListByGroup(_ context.Context, tenantID, groupID, limit int) ([]model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Thread
	for _, t := range f.threads {
		if t.TenantID == tenantID && t.ResolvedGroupID == groupID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out, nil
}

func (f *fakeThreadRepo) add(t *model.Thread) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == 0 {
		f.nextID++
		t.ID = f.nextID
	} else if t.ID > f.nextID {
		f.nextID = t.ID
	}
	f.threads[t.ID] = t
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	nextID   int
	messages map[int]*model.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[int]*model.Message)}
}

func (f *fakeMessageRepo) Create(_ context.Context, m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m.ID = f.nextID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = m.CreatedAt
	}
	cp := *m
	f.messages[m.ID] = &cp
	return nil
}

func (f *fakeMessageRepo) LatestOutboundTo(_ context.Context, tenantID, gatewayID int, phone string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.Message
	for _, m := range f.messages {
		if m.TenantID != tenantID || m.GatewayID != gatewayID || m.ToNumber != phone || m.Direction != model.DirectionOutbound {
			continue
		}
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) || (m.CreatedAt.Equal(latest.CreatedAt) && m.ID > latest.ID) {
			latest = m
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeMessageRepo) Acknowledge(_ context.Context, messageID, userID int, at time.Time) (*repository.AckRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok || m.Direction != model.DirectionInbound || m.AcknowledgedAt != nil {
		return nil, apperrors.ErrAlreadyAcknowledgedOrNotFound
	}
	ackAt := at
	m.AcknowledgedAt = &ackAt
	m.AcknowledgedBy = &userID
	return &repository.AckRow{
		MessageID:       m.ID,
		TenantID:        m.TenantID,
		EscalationLevel: m.EscalationLevel,
		AcknowledgedAt:  at,
	}, nil
}

func (f *fakeMessageRepo) ListEscalatable(_ context.Context, groupID int, cutoff time.Time) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, m := range f.messages {
		if m.GroupID != groupID || m.Direction != model.DirectionInbound || m.AcknowledgedAt != nil {
			continue
		}
		if m.EscalationLevel >= model.MaxEscalationLevel {
			continue
		}
		last := m.CreatedAt
		if m.EscalatedAt != nil {
			last = *m.EscalatedAt
		}
		if last.After(cutoff) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeMessageRepo) MarkEscalated(_ context.Context, messageID, fromLevel int, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok || m.EscalationLevel != fromLevel || m.AcknowledgedAt != nil {
		return false, nil
	}
	m.EscalationLevel++
	escAt := at
	m.EscalatedAt = &escAt
	return true, nil
}

func (f *fakeMessageRepo) FindByExternalID(_ context.Context, externalID string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ExternalID != nil && *m.ExternalID == externalID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeMessageRepo) UpdateStatus(_ context.Context, messageID int, status model.MessageStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok {
		return fmt.Errorf("message %d not found", messageID)
	}
	m.Status = status
	return nil
}

func (f *fakeMessageRepo) ListByThread(_ context.Context, threadID int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, m := range f.messages {
		if m.ThreadID == threadID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeMessageRepo) add(m *model.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == 0 {
		f.nextID++
		m.ID = f.nextID
	} else if m.ID > f.nextID {
		f.nextID = m.ID
	}
	f.messages[m.ID] = m
}

func (f *fakeMessageRepo) get(id int) *model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return nil
	}
	cp := *m
	return &cp
}

type fakeCampaignRepo struct {
	mu         sync.Mutex
	campaigns  map[int]*model.BulkCampaign
	recipients []*model.BulkRecipient
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: make(map[int]*model.BulkCampaign)}
}

func (f *fakeCampaignRepo) GetByID(_ context.Context, id int) (*model.BulkCampaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return nil, apperrors.NewNotFound("campaign", id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCampaignRepo) UpdateStatus(_ context.Context, campaignID int, status model.CampaignStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[campaignID]
	if !ok {
		return apperrors.NewNotFound("campaign", campaignID)
	}
	c.Status = status
	return nil
}

func (f *fakeCampaignRepo) ListRecipients(_ context.Context, campaignID int) ([]model.BulkRecipient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.BulkRecipient
	for _, r := range f.recipients {
		if r.CampaignID == campaignID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCampaignRepo) MarkRecipientSent(_ context.Context, recipientID, messageID int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recipients {
		if r.ID == recipientID {
			r.Status = model.RecipientSent
			r.MessageID = &messageID
			sentAt := at
			r.SentAt = &sentAt
			r.LastError = ""
			return nil
		}
	}
	return fmt.Errorf("recipient %d not found", recipientID)
}

func (f *fakeCampaignRepo) MarkRecipientFailed(_ context.Context, recipientID int, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recipients {
		if r.ID == recipientID {
			r.Status = model.RecipientFailed
			r.LastError = lastError
			return nil
		}
	}
	return fmt.Errorf("recipient %d not found", recipientID)
}

func (f *fakeCampaignRepo) MarkRecipientReplied(_ context.Context, campaignID int, phone string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recipients {
		if r.CampaignID == campaignID && r.Phone == phone && r.Status == model.RecipientSent {
			r.Status = model.RecipientReplied
			respondedAt := at
			r.RespondedAt = &respondedAt
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCampaignRepo) RecipientStats(_ context.Context, campaignID int) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := map[string]int{"total": 0, "pending": 0, "sent": 0, "failed": 0, "replied": 0}
	for _, r := range f.recipients {
		if r.CampaignID == campaignID {
			stats[string(r.Status)]++
			stats["total"]++
		}
	}
	return stats, nil
}

func (f *fakeCampaignRepo) recipient(id int) *model.BulkRecipient {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recipients {
		if r.ID == id {
			cp := *r
			return &cp
		}
	}
	return nil
}

type fakeEventRepo struct {
	mu          sync.Mutex
	escalations []model.EscalationEvent
	deliveries  []model.DeliveryEvent
	audits      []model.AuditLog
}

func (f *fakeEventRepo) CreateEscalationEvent(_ context.Context, e *model.EscalationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = len(f.escalations) + 1
	f.escalations = append(f.escalations, *e)
	return nil
}

func (f *fakeEventRepo) CreateDeliveryEvent(_ context.Context, e *model.DeliveryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = len(f.deliveries) + 1
	f.deliveries = append(f.deliveries, *e)
	return nil
}

func (f *fakeEventRepo) CreateAuditLog(_ context.Context, a *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = len(f.audits) + 1
	f.audits = append(f.audits, *a)
	return nil
}

// fakeSender records sends and fails for configured numbers.
type fakeSender struct {
	mu      sync.Mutex
	calls   []sender.SendRequest
	failFor map[string]bool
	nextID  int
}

func (f *fakeSender) Send(_ context.Context, req sender.SendRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.failFor[req.To] {
		return "", &apperrors.GatewaySendError{StatusCode: 502, Body: "provider unavailable"}
	}
	f.nextID++
	return fmt.Sprintf("provider-%d", f.nextID), nil
}
