package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/repository"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if ticket.ID == "" {
		ticket.ID = fmt.Sprintf("t-%d", r.seq)
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, tenantID, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok || ticket.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) List(_ context.Context, tenantID string, _ repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.tickets {
		if t.TenantID == tenantID {
			out = append(out, *t)
		}
	}
	return out, nil
}

type fakeBindingRepo struct {
	mu       sync.Mutex
	bindings map[string]*domain.TicketSLABinding
}

func newFakeBindingRepo() *fakeBindingRepo {
	return &fakeBindingRepo{bindings: make(map[string]*domain.TicketSLABinding)}
}

func (r *fakeBindingRepo) Upsert(_ context.Context, binding *domain.TicketSLABinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *binding
	r.bindings[binding.TicketID] = &copied
	return nil
}

func (r *fakeBindingRepo) GetByTicket(_ context.Context, ticketID string) (*domain.TicketSLABinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	binding, ok := r.bindings[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *binding
	return &copied, nil
}

func (r *fakeBindingRepo) ListUnsettled(_ context.Context, limit int) ([]domain.TicketSLABinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketSLABinding
	for _, b := range r.bindings {
		if b.Settled() {
			continue
		}
		out = append(out, *b)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// fakeAlertRepo mirrors the partial-unique-index upsert: at most one
// unacknowledged alert per (ticket, breach type), escalation-only updates.
type fakeAlertRepo struct {
	mu     sync.Mutex
	seq    int
	alerts map[string]*domain.SLABreachAlert
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{alerts: make(map[string]*domain.SLABreachAlert)}
}

func (r *fakeAlertRepo) openAlert(ticketID *string, breachType domain.SLAMetric) *domain.SLABreachAlert {
	for _, a := range r.alerts {
		if a.Acknowledged || a.TicketID == nil || ticketID == nil {
			continue
		}
		if *a.TicketID == *ticketID && a.BreachType == breachType {
			return a
		}
	}
	return nil
}

func (r *fakeAlertRepo) Upsert(_ context.Context, alert *domain.SLABreachAlert) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.openAlert(alert.TicketID, alert.BreachType)
	if existing == nil {
		r.seq++
		alert.ID = fmt.Sprintf("alert-%d", r.seq)
		alert.CreatedAt = time.Now().UTC()
		copied := *alert
		r.alerts[alert.ID] = &copied
		return true, nil
	}
	upgrade := alert.Level.Rank() > existing.Level.Rank()
	refresh := alert.Level == existing.Level && alert.BreachPercent > existing.BreachPercent
	if upgrade || refresh {
		existing.Level = alert.Level
		existing.BreachPercent = alert.BreachPercent
		*alert = *existing
		return true, nil
	}
	return false, nil
}

func (r *fakeAlertRepo) GetByID(_ context.Context, tenantID, id string) (*domain.SLABreachAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[id]
	if !ok || alert.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	copied := *alert
	return &copied, nil
}

func (r *fakeAlertRepo) List(_ context.Context, tenantID string, filter repository.AlertFilter) ([]domain.SLABreachAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SLABreachAlert
	for _, a := range r.alerts {
		if a.TenantID != tenantID {
			continue
		}
		if filter.Acknowledged != nil && a.Acknowledged != *filter.Acknowledged {
			continue
		}
		if filter.TicketID != nil && (a.TicketID == nil || *a.TicketID != *filter.TicketID) {
			continue
		}
		if filter.Level != nil && a.Level != *filter.Level {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (r *fakeAlertRepo) Acknowledge(_ context.Context, tenantID, id, userID string) (*domain.SLABreachAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[id]
	if !ok || alert.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	if !alert.Acknowledged {
		now := time.Now().UTC()
		alert.Acknowledged = true
		alert.AcknowledgedBy = &userID
		alert.AcknowledgedAt = &now
	}
	copied := *alert
	return &copied, nil
}

type fakeComplianceRepo struct {
	mu      sync.Mutex
	records map[string]*domain.SLAComplianceRecord
}

func newFakeComplianceRepo() *fakeComplianceRepo {
	return &fakeComplianceRepo{records: make(map[string]*domain.SLAComplianceRecord)}
}

func (r *fakeComplianceRepo) Insert(_ context.Context, record *domain.SLAComplianceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.TicketID]; ok {
		return nil
	}
	copied := *record
	r.records[record.TicketID] = &copied
	return nil
}

type fakePolicyProvider struct {
	policies []domain.SLAPolicy
}

func (p *fakePolicyProvider) ActivePolicies(_ context.Context, tenantID string) ([]domain.SLAPolicy, error) {
	var out []domain.SLAPolicy
	for _, policy := range p.policies {
		if policy.TenantID == tenantID && policy.IsActive {
			out = append(out, policy)
		}
	}
	return out, nil
}

func (p *fakePolicyProvider) PolicyByID(_ context.Context, tenantID, policyID string) (*domain.SLAPolicy, error) {
	for i := range p.policies {
		if p.policies[i].TenantID == tenantID && p.policies[i].ID == policyID {
			copied := p.policies[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type slaFixture struct {
	service    *SLAService
	tickets    *fakeTicketRepo
	bindings   *fakeBindingRepo
	alerts     *fakeAlertRepo
	records    *fakeComplianceRepo
	policies   *fakePolicyProvider
	dispatcher events.Dispatcher
	clock      time.Time
}

func fptr(v float64) *float64 { return &v }

func defaultTestPolicy() domain.SLAPolicy {
	return domain.SLAPolicy{
		ID:                 "pol-1",
		TenantID:           "tenant-1",
		Name:               "standard",
		Is24x7:             true,
		FirstResponseHours: fptr(4),
		ResolutionHours:    fptr(24),
		WarningPercent:     80,
		CriticalPercent:    95,
		IsActive:           true,
		IsDefault:          true,
	}
}

func newSLAFixture(t *testing.T, policies ...domain.SLAPolicy) *slaFixture {
	t.Helper()
	if len(policies) == 0 {
		policies = []domain.SLAPolicy{defaultTestPolicy()}
	}

	f := &slaFixture{
		tickets:    newFakeTicketRepo(),
		bindings:   newFakeBindingRepo(),
		alerts:     newFakeAlertRepo(),
		records:    newFakeComplianceRepo(),
		policies:   &fakePolicyProvider{policies: policies},
		dispatcher: events.NewInMemoryDispatcher(zap.NewNop()),
		clock:      time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC),
	}
	f.service = NewSLAService(SLADependencies{
		TicketRepo:     f.tickets,
		BindingRepo:    f.bindings,
		AlertRepo:      f.alerts,
		ComplianceRepo: f.records,
		Policies:       f.policies,
		Dispatcher:     f.dispatcher,
		Logger:         zap.NewNop(),
		Metrics:        observability.NewMetrics(),
	})
	f.service.now = func() time.Time { return f.clock }
	return f
}

func (f *slaFixture) addTicket(t *testing.T, ticket *domain.Ticket) *domain.Ticket {
	t.Helper()
	if ticket.TenantID == "" {
		ticket.TenantID = "tenant-1"
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = f.clock
	}
	require.NoError(t, f.tickets.Create(context.Background(), ticket))
	return ticket
}

func TestResolveAndBind(t *testing.T) {
	f := newSLAFixture(t)
	ticket := f.addTicket(t, &domain.Ticket{ID: "t-1"})

	binding, err := f.service.ResolveAndBind(context.Background(), ticket)
	require.NoError(t, err)
	require.NotNil(t, binding)
	assert.Equal(t, "pol-1", binding.PolicyID)
	require.NotNil(t, binding.FirstResponseDue)
	assert.True(t, binding.FirstResponseDue.Equal(f.clock.Add(4*time.Hour)))

	stored, err := f.bindings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "pol-1", stored.PolicyID)
}

func TestResolveAndBindNoMatchLeavesUnbound(t *testing.T) {
	vip := defaultTestPolicy()
	vip.FilterCustomerIDs = []string{"cust-vip"}
	f := newSLAFixture(t, vip)
	ticket := f.addTicket(t, &domain.Ticket{ID: "t-1", CustomerID: "cust-ordinary"})

	binding, err := f.service.ResolveAndBind(context.Background(), ticket)
	require.NoError(t, err)
	assert.Nil(t, binding)

	_, err = f.bindings.GetByTicket(context.Background(), "t-1")
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	// Evaluating the unbound ticket reports the condition distinctly.
	_, err = f.service.Evaluate(context.Background(), "tenant-1", "t-1")
	assert.ErrorIs(t, err, ErrTicketUnbound)
}

func TestTicketCreatedEventBinds(t *testing.T) {
	f := newSLAFixture(t)
	f.service.RegisterHandlers()
	f.addTicket(t, &domain.Ticket{ID: "t-1"})

	require.NoError(t, f.dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketCreated,
		TenantID: "tenant-1",
		TicketID: "t-1",
	}))

	stored, err := f.bindings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "pol-1", stored.PolicyID)
}

func TestEvaluateWarningThenCriticalUpgrade(t *testing.T) {
	f := newSLAFixture(t)
	ticket := f.addTicket(t, &domain.Ticket{ID: "t-1"})
	_, err := f.service.ResolveAndBind(context.Background(), ticket)
	require.NoError(t, err)

	// 87.5% of the four hour budget consumed: warning territory.
	f.clock = ticket.CreatedAt.Add(3*time.Hour + 30*time.Minute)
	result, err := f.service.Evaluate(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, domain.AlertLevelWarning, result.Alerts[0].Level)

	// Same instant again: deduplicated, nothing new raised.
	result, err = f.service.Evaluate(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)

	// Past the critical threshold the open alert upgrades in place.
	f.clock = ticket.CreatedAt.Add(3*time.Hour + 55*time.Minute)
	result, err = f.service.Evaluate(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, domain.AlertLevelCritical, result.Alerts[0].Level)

	open := false
	alerts, err := f.service.ListAlerts(context.Background(), "tenant-1", repository.AlertFilter{Acknowledged: &open})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertLevelCritical, alerts[0].Level)
}

func TestEvaluateBreachWithoutEvent(t *testing.T) {
	f := newSLAFixture(t)
	ticket := f.addTicket(t, &domain.Ticket{ID: "t-1"})
	_, err := f.service.ResolveAndBind(context.Background(), ticket)
	require.NoError(t, err)

	due := ticket.CreatedAt.Add(4 * time.Hour)
	f.clock = due.Add(12 * time.Minute)

	result, err := f.service.Evaluate(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.MetricStateBreached, result.FirstResponse.State)
	require.NotNil(t, result.FirstResponse.BreachedAt)
	assert.True(t, result.FirstResponse.BreachedAt.Equal(due))
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, domain.AlertLevelCritical, result.Alerts[0].Level)

	// The terminal state persisted.
	stored, err := f.bindings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	require.NotNil(t, stored.FirstResponseBreachedAt)
	assert.True(t, stored.FirstResponseBreachedAt.Equal(due))

	// Re-evaluating later neither moves the timestamp nor re-alerts.
	f.clock = due.Add(2 * time.Hour)
	result, err = f.service.Evaluate(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)
	stored, err = f.bindings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.True(t, stored.FirstResponseBreachedAt.Equal(due))
}

func TestBreachRefreshesCriticalAlertPercent(t *testing.T) {
	f := newSLAFixture(t)
	ticket := f.addTicket(t, &domain.Ticket{ID: "t-1"})
	_, err := f.service.ResolveAndBind(context.Background(), ticket)
	require.NoError(t, err)

	// Still pending but past the critical threshold: 97.9% consumed.
	f.clock = ticket.CreatedAt.Add(3*time.Hour + 55*time.Minute)
	result, err := f.service.Evaluate(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, domain.AlertLevelCritical, result.Alerts[0].Level)
	assert.InDelta(t, 97.9167, result.Alerts[0].BreachPercent, 1e-3)

	// The breach lands on the already-critical alert and refreshes the
	// percent to the actual overrun.
	f.clock = ticket.CreatedAt.Add(4*time.Hour + 12*time.Minute)
	result, err = f.service.Evaluate(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)

	open := false
	alerts, err := f.service.ListAlerts(context.Background(), "tenant-1", repository.AlertFilter{Acknowledged: &open})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertLevelCritical, alerts[0].Level)
	assert.InDelta(t, 105, alerts[0].BreachPercent, 1e-9)
}

func TestAcknowledgeIsOneWay(t *testing.T) {
	f := newSLAFixture(t)
	ticket := f.addTicket(t, &domain.Ticket{ID: "t-1"})
	_, err := f.service.ResolveAndBind(context.Background(), ticket)
	require.NoError(t, err)

	f.clock = ticket.CreatedAt.Add(3*time.Hour + 30*time.Minute)
	result, err := f.service.Evaluate(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)
	alertID := result.Alerts[0].ID

	acked, err := f.service.AcknowledgeAlert(context.Background(), "tenant-1", alertID, "agent-1")
	require.NoError(t, err)
	assert.True(t, acked.Acknowledged)
	require.NotNil(t, acked.AcknowledgedBy)
	assert.Equal(t, "agent-1", *acked.AcknowledgedBy)

	// Acknowledging again returns the alert unchanged.
	again, err := f.service.AcknowledgeAlert(context.Background(), "tenant-1", alertID, "agent-2")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", *again.AcknowledgedBy)

	// The condition persists, so the next evaluation opens a fresh alert
	// rather than resurrecting the acknowledged one.
	result, err = f.service.Evaluate(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)
	assert.NotEqual(t, alertID, result.Alerts[0].ID)
}

func TestAcknowledgeUnknownAlert(t *testing.T) {
	f := newSLAFixture(t)
	_, err := f.service.AcknowledgeAlert(context.Background(), "tenant-1", "missing", "agent-1")
	assert.Error(t, err)
}

func TestRebindOnPriorityChangeUsesRemainingBudget(t *testing.T) {
	policy := defaultTestPolicy()
	policy.ResolutionOverrides = map[domain.TicketPriority]float64{
		domain.TicketPriorityUrgent: 3,
	}
	f := newSLAFixture(t, policy)
	ticket := f.addTicket(t, &domain.Ticket{ID: "t-1"})
	_, err := f.service.ResolveAndBind(context.Background(), ticket)
	require.NoError(t, err)

	f.clock = ticket.CreatedAt.Add(2 * time.Hour)
	ticket.Priority = domain.TicketPriorityUrgent
	require.NoError(t, f.tickets.Update(context.Background(), ticket))
	require.NoError(t, f.service.RebindOnPriorityChange(context.Background(), ticket))

	stored, err := f.bindings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	require.NotNil(t, stored.ResolutionTargetHours)
	assert.Equal(t, 3.0, *stored.ResolutionTargetHours)
	// Two of the three hours are spent; one remains from now.
	require.NotNil(t, stored.ResolutionDue)
	assert.True(t, stored.ResolutionDue.Equal(f.clock.Add(time.Hour)))
}

func TestRebindKeepsFrozenBindingWhenNothingMatches(t *testing.T) {
	policy := defaultTestPolicy()
	low := domain.TicketPriorityMedium
	policy.FilterPriority = &low
	f := newSLAFixture(t, policy)
	ticket := f.addTicket(t, &domain.Ticket{ID: "t-1"})
	_, err := f.service.ResolveAndBind(context.Background(), ticket)
	require.NoError(t, err)
	before, err := f.bindings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)

	// The new priority matches no policy: the old commitment stands.
	f.clock = ticket.CreatedAt.Add(time.Hour)
	ticket.Priority = domain.TicketPriorityUrgent
	require.NoError(t, f.tickets.Update(context.Background(), ticket))
	require.NoError(t, f.service.RebindOnPriorityChange(context.Background(), ticket))

	after, err := f.bindings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.True(t, after.FirstResponseDue.Equal(*before.FirstResponseDue))
	assert.Equal(t, before.PolicyID, after.PolicyID)
}

func TestEvaluateSnapshotsOnResolve(t *testing.T) {
	f := newSLAFixture(t)
	ticket := f.addTicket(t, &domain.Ticket{ID: "t-1"})
	_, err := f.service.ResolveAndBind(context.Background(), ticket)
	require.NoError(t, err)

	responded := ticket.CreatedAt.Add(time.Hour)
	resolved := ticket.CreatedAt.Add(10 * time.Hour)
	ticket.FirstRespondedAt = &responded
	ticket.ResolvedAt = &resolved
	ticket.Status = domain.TicketStatusResolved
	require.NoError(t, f.tickets.Update(context.Background(), ticket))

	f.clock = resolved
	_, err = f.service.Evaluate(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)

	record, ok := f.records.records["t-1"]
	require.True(t, ok)
	assert.True(t, record.FirstResponseMet)
	assert.True(t, record.ResolutionMet)
	require.NotNil(t, record.ActualResolutionHours)
	assert.InDelta(t, 10, *record.ActualResolutionHours, 1e-9)

	// Re-evaluating a resolved ticket never rewrites history.
	f.clock = resolved.Add(time.Hour)
	_, err = f.service.Evaluate(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)
	assert.Len(t, f.records.records, 1)
}

func TestSnapshotSettlesUnansweredFirstResponse(t *testing.T) {
	f := newSLAFixture(t)
	ticket := f.addTicket(t, &domain.Ticket{ID: "t-1"})
	_, err := f.service.ResolveAndBind(context.Background(), ticket)
	require.NoError(t, err)

	// Resolved inside the first-response window without any reply: the
	// resolution settles both metrics and the record reflects it.
	resolved := ticket.CreatedAt.Add(2 * time.Hour)
	ticket.ResolvedAt = &resolved
	ticket.Status = domain.TicketStatusResolved
	require.NoError(t, f.tickets.Update(context.Background(), ticket))

	f.clock = resolved
	_, err = f.service.Evaluate(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)

	stored, err := f.bindings.GetByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	require.NotNil(t, stored.FirstResponseMetAt)
	assert.True(t, stored.FirstResponseMetAt.Equal(resolved))

	record, ok := f.records.records["t-1"]
	require.True(t, ok)
	assert.True(t, record.FirstResponseMet)
	assert.False(t, record.FirstResponseBreached)
	assert.True(t, record.ResolutionMet)
}

func TestSweepOnce(t *testing.T) {
	f := newSLAFixture(t)
	overdue := f.addTicket(t, &domain.Ticket{ID: "t-overdue"})
	fresh := f.addTicket(t, &domain.Ticket{ID: "t-fresh"})
	_, err := f.service.ResolveAndBind(context.Background(), overdue)
	require.NoError(t, err)
	_, err = f.service.ResolveAndBind(context.Background(), fresh)
	require.NoError(t, err)

	f.clock = overdue.CreatedAt.Add(5 * time.Hour)
	evaluated, failed := f.service.SweepOnce(context.Background(), 100)
	assert.Equal(t, 2, evaluated)
	assert.Zero(t, failed)

	stored, err := f.bindings.GetByTicket(context.Background(), "t-overdue")
	require.NoError(t, err)
	assert.NotNil(t, stored.FirstResponseBreachedAt)

	stored, err = f.bindings.GetByTicket(context.Background(), "t-fresh")
	require.NoError(t, err)
	assert.Nil(t, stored.FirstResponseBreachedAt)
}

func TestSweepOnceIsolatesFailures(t *testing.T) {
	f := newSLAFixture(t)
	ticket := f.addTicket(t, &domain.Ticket{ID: "t-1"})
	_, err := f.service.ResolveAndBind(context.Background(), ticket)
	require.NoError(t, err)

	// A binding whose ticket row is gone must not abort the batch.
	orphan := &domain.TicketSLABinding{
		TicketID:                 "t-orphan",
		TenantID:                 "tenant-1",
		PolicyID:                 "pol-1",
		FirstResponseTargetHours: fptr(4),
	}
	due := f.clock.Add(4 * time.Hour)
	orphan.FirstResponseDue = &due
	require.NoError(t, f.bindings.Upsert(context.Background(), orphan))

	evaluated, failed := f.service.SweepOnce(context.Background(), 100)
	assert.Equal(t, 1, evaluated)
	assert.Equal(t, 1, failed)
}

func TestPredictRiskSettledTicket(t *testing.T) {
	f := newSLAFixture(t)
	ticket := f.addTicket(t, &domain.Ticket{ID: "t-1"})
	_, err := f.service.ResolveAndBind(context.Background(), ticket)
	require.NoError(t, err)

	responded := ticket.CreatedAt.Add(time.Hour)
	resolved := ticket.CreatedAt.Add(2 * time.Hour)
	ticket.FirstRespondedAt = &responded
	ticket.ResolvedAt = &resolved
	require.NoError(t, f.tickets.Update(context.Background(), ticket))

	f.clock = resolved
	_, err = f.service.Evaluate(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)

	assessment, err := f.service.PredictRisk(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLevelLow, assessment.Level)
	assert.Zero(t, assessment.Probability)
}

func TestPredictRiskPendingTicket(t *testing.T) {
	f := newSLAFixture(t)
	ticket := f.addTicket(t, &domain.Ticket{ID: "t-1"})
	_, err := f.service.ResolveAndBind(context.Background(), ticket)
	require.NoError(t, err)

	// Thirty minutes from the first-response deadline, unassigned.
	f.clock = ticket.CreatedAt.Add(3*time.Hour + 30*time.Minute)
	assessment, err := f.service.PredictRisk(context.Background(), "tenant-1", "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.MetricFirstResponse, assessment.Metric)
	assert.Equal(t, domain.RiskLevelCritical, assessment.Level)
	assert.InDelta(t, 1.0, assessment.Probability, 1e-9)
}
