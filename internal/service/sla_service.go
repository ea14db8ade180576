package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/sla"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// ErrTicketUnbound is returned by operations requiring an SLA binding when
// no policy matched the ticket. This is an expected condition, not a fault.
var ErrTicketUnbound = errors.New("ticket has no SLA binding")

// PolicyProvider supplies a tenant's active policies in resolution order.
// PolicyService implements it with a Redis cache in front of storage.
// PolicyByID also returns soft-disabled policies: a frozen binding outlives
// the deactivation of its policy and still needs the policy's calendar.
type PolicyProvider interface {
	ActivePolicies(ctx context.Context, tenantID string) ([]domain.SLAPolicy, error)
	PolicyByID(ctx context.Context, tenantID, policyID string) (*domain.SLAPolicy, error)
}

// SLAService is the compliance engine: it binds policies to tickets, runs
// compliance evaluation on ticket events and sweep passes, raises
// deduplicated breach alerts, and serves risk predictions. Every call site
// (creation, reply, status change, sweep) flows through this one
// implementation, so a first-response breach is never computed two
// different ways in two places.
type SLAService struct {
	tickets    repository.TicketRepository
	bindings   repository.BindingRepository
	alerts     repository.AlertRepository
	records    repository.ComplianceRepository
	policies   PolicyProvider
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	riskCfg    sla.RiskConfig

	// now is swappable in tests.
	now func() time.Time
}

// SLADependencies bundles collaborators for the engine.
type SLADependencies struct {
	TicketRepo     repository.TicketRepository
	BindingRepo    repository.BindingRepository
	AlertRepo      repository.AlertRepository
	ComplianceRepo repository.ComplianceRepository
	Policies       PolicyProvider
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// NewSLAService constructs the engine.
func NewSLAService(deps SLADependencies) *SLAService {
	return &SLAService{
		tickets:    deps.TicketRepo,
		bindings:   deps.BindingRepo,
		alerts:     deps.AlertRepo,
		records:    deps.ComplianceRepo,
		policies:   deps.Policies,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		riskCfg:    sla.DefaultRiskConfig(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RegisterHandlers subscribes the engine to ticket lifecycle events.
func (s *SLAService) RegisterHandlers() {
	s.dispatcher.Subscribe(events.EventTicketCreated, s.handleTicketCreated)
	s.dispatcher.Subscribe(events.EventTicketReplied, s.handleTicketMutated)
	s.dispatcher.Subscribe(events.EventTicketStatusChanged, s.handleTicketMutated)
	s.dispatcher.Subscribe(events.EventTicketPriorityChanged, s.handlePriorityChanged)
}

func (s *SLAService) handleTicketCreated(ctx context.Context, event events.Event) error {
	ticket, err := s.tickets.GetByID(ctx, event.TenantID, event.TicketID)
	if err != nil {
		return err
	}
	_, err = s.ResolveAndBind(ctx, ticket)
	return err
}

func (s *SLAService) handleTicketMutated(ctx context.Context, event events.Event) error {
	_, err := s.Evaluate(ctx, event.TenantID, event.TicketID)
	if errors.Is(err, ErrTicketUnbound) {
		return nil
	}
	return err
}

func (s *SLAService) handlePriorityChanged(ctx context.Context, event events.Event) error {
	ticket, err := s.tickets.GetByID(ctx, event.TenantID, event.TicketID)
	if err != nil {
		return err
	}
	return s.RebindOnPriorityChange(ctx, ticket)
}

// ResolveAndBind resolves the governing policy for a ticket and freezes the
// binding. An unmatched ticket is left unbound and excluded from compliance
// reporting; no fallback policy is invented.
func (s *SLAService) ResolveAndBind(ctx context.Context, ticket *domain.Ticket) (*domain.TicketSLABinding, error) {
	policies, err := s.policies.ActivePolicies(ctx, ticket.TenantID)
	if err != nil {
		return nil, err
	}

	policy := sla.ResolvePolicy(policies, ticket.SLAContext())
	if policy == nil {
		s.logger.Debug("no SLA policy matched", zap.String("ticket_id", ticket.ID))
		return nil, nil
	}

	binding := sla.Bind(ticket, policy, s.now())
	if err := s.bindings.Upsert(ctx, binding); err != nil {
		return nil, err
	}
	s.logger.Info("SLA policy bound",
		zap.String("ticket_id", ticket.ID),
		zap.String("policy_id", policy.ID))
	return binding, nil
}

// RebindOnPriorityChange re-resolves the policy for the ticket's new
// priority and recomputes deadlines over the remaining budget. Terminal
// metrics keep their recorded outcome; time already spent under the old
// target stays counted, so no retroactive breach is manufactured.
func (s *SLAService) RebindOnPriorityChange(ctx context.Context, ticket *domain.Ticket) error {
	binding, err := s.bindings.GetByTicket(ctx, ticket.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Unbound until now; the new priority may match a policy.
		_, err = s.ResolveAndBind(ctx, ticket)
		return err
	}
	if err != nil {
		return err
	}

	policies, err := s.policies.ActivePolicies(ctx, ticket.TenantID)
	if err != nil {
		return err
	}
	policy := sla.ResolvePolicy(policies, ticket.SLAContext())
	if policy == nil {
		// Keep the frozen binding; the old commitment still stands.
		return nil
	}

	sla.Rebind(ticket, binding, policy, s.now())
	if err := s.bindings.Upsert(ctx, binding); err != nil {
		return err
	}
	_, err = s.Evaluate(ctx, ticket.TenantID, ticket.ID)
	return err
}

// ComplianceResult is the caller-visible outcome of one evaluation.
type ComplianceResult struct {
	TicketID      string                  `json:"ticket_id"`
	PolicyID      string                  `json:"policy_id"`
	FirstResponse MetricStatus            `json:"first_response"`
	Resolution    MetricStatus            `json:"resolution"`
	EvaluatedAt   time.Time               `json:"evaluated_at"`
	Alerts        []domain.SLABreachAlert `json:"alerts,omitempty"`
}

// MetricStatus reports one metric's state after evaluation.
type MetricStatus struct {
	Applicable    bool               `json:"applicable"`
	State         domain.MetricState `json:"state"`
	Due           *time.Time         `json:"due,omitempty"`
	MetAt         *time.Time         `json:"met_at,omitempty"`
	BreachedAt    *time.Time         `json:"breached_at,omitempty"`
	BreachPercent float64            `json:"breach_percent"`
}

// Evaluate runs one compliance pass for a bound ticket: state transitions,
// alert upserts, and the compliance-record snapshot when the ticket
// resolves. Evaluation is idempotent; overlapping sweep and event-driven
// calls converge on the same terminal state.
func (s *SLAService) Evaluate(ctx context.Context, tenantID, ticketID string) (*ComplianceResult, error) {
	ticket, err := s.tickets.GetByID(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	binding, err := s.bindings.GetByTicket(ctx, ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketUnbound
	}
	if err != nil {
		return nil, err
	}
	policy, err := s.policies.PolicyByID(ctx, tenantID, binding.PolicyID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	outcome := sla.EvaluateCompliance(ticket, binding, policy, now)
	s.metrics.RecordEvaluation()

	if outcome.FirstResponse.Transitioned || outcome.Resolution.Transitioned {
		outcome.Apply(binding)
		if err := s.bindings.Upsert(ctx, binding); err != nil {
			return nil, err
		}
		s.recordTransitions(outcome)
	}

	result := &ComplianceResult{
		TicketID:      ticketID,
		PolicyID:      binding.PolicyID,
		FirstResponse: metricStatus(outcome.FirstResponse, binding.FirstResponseDue),
		Resolution:    metricStatus(outcome.Resolution, binding.ResolutionDue),
		EvaluatedAt:   now,
	}

	result.Alerts = s.raiseAlerts(ctx, ticket, binding, policy, outcome)

	if ticket.ResolvedAt != nil {
		if err := s.snapshotCompliance(ctx, ticket, binding, policy); err != nil {
			s.logger.Warn("compliance snapshot failed",
				zap.String("ticket_id", ticketID), zap.Error(err))
		}
	}
	return result, nil
}

func metricStatus(m sla.MetricOutcome, due *time.Time) MetricStatus {
	return MetricStatus{
		Applicable:    m.Applicable,
		State:         m.State,
		Due:           due,
		MetAt:         m.MetAt,
		BreachedAt:    m.BreachedAt,
		BreachPercent: m.BreachPercent,
	}
}

func (s *SLAService) recordTransitions(outcome sla.Outcome) {
	for _, m := range []sla.MetricOutcome{outcome.FirstResponse, outcome.Resolution} {
		if m.Transitioned {
			s.metrics.RecordTransition(string(m.State))
		}
	}
}

// raiseAlerts converts the evaluation outcome into deduplicated alerts. For
// a pending metric the escalation ladder applies; a fresh breach gets its
// final alert from the actual overrun. The repository upsert is atomic, so
// concurrent evaluators never double-alert.
func (s *SLAService) raiseAlerts(ctx context.Context, ticket *domain.Ticket, binding *domain.TicketSLABinding, policy *domain.SLAPolicy, outcome sla.Outcome) []domain.SLABreachAlert {
	var raised []domain.SLABreachAlert
	for _, m := range []sla.MetricOutcome{outcome.FirstResponse, outcome.Resolution} {
		if !m.Applicable {
			continue
		}

		var level domain.AlertLevel
		switch {
		case m.State == domain.MetricStateBreached && m.Transitioned:
			level = domain.AlertLevelCritical
		case m.State == domain.MetricStatePending && m.BreachPercent >= policy.CriticalPercent:
			level = domain.AlertLevelCritical
		case m.State == domain.MetricStatePending && m.BreachPercent >= policy.WarningPercent:
			level = domain.AlertLevelWarning
		default:
			continue
		}

		alert := &domain.SLABreachAlert{
			TenantID:      ticket.TenantID,
			TicketID:      &ticket.ID,
			PolicyID:      binding.PolicyID,
			BreachType:    m.Metric,
			BreachPercent: m.BreachPercent,
			Level:         level,
		}
		changed, err := s.alerts.Upsert(ctx, alert)
		if err != nil {
			s.logger.Warn("alert upsert failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("breach_type", string(m.Metric)),
				zap.Error(err))
			continue
		}
		if !changed {
			continue
		}
		s.metrics.RecordAlert(string(level))
		raised = append(raised, *alert)
		s.publishAlert(ctx, ticket, alert)
	}
	return raised
}

func (s *SLAService) publishAlert(ctx context.Context, ticket *domain.Ticket, alert *domain.SLABreachAlert) {
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:      events.EventSLAAlertRaised,
		TenantID:  ticket.TenantID,
		TicketID:  ticket.ID,
		Timestamp: s.now(),
		Payload: events.SLAAlertRaisedPayload{
			AlertID:       alert.ID,
			PolicyID:      alert.PolicyID,
			BreachType:    alert.BreachType,
			Level:         alert.Level,
			BreachPercent: alert.BreachPercent,
		},
	})
}

// snapshotCompliance writes the immutable historical record when a ticket
// resolves. The insert ignores duplicates, so re-evaluating a resolved
// ticket never rewrites history.
func (s *SLAService) snapshotCompliance(ctx context.Context, ticket *domain.Ticket, binding *domain.TicketSLABinding, policy *domain.SLAPolicy) error {
	record := &domain.SLAComplianceRecord{
		TenantID:    ticket.TenantID,
		TicketID:    ticket.ID,
		PolicyID:    binding.PolicyID,
		PeriodStart: ticket.CreatedAt,
		PeriodEnd:   *ticket.ResolvedAt,
	}

	if binding.FirstResponseDue != nil && ticket.FirstRespondedAt != nil {
		hours := sla.EffectiveHoursBetween(ticket.CreatedAt, *ticket.FirstRespondedAt, policy)
		record.ActualFirstResponseHours = &hours
	}
	if binding.ResolutionDue != nil {
		hours := sla.EffectiveHoursBetween(ticket.CreatedAt, *ticket.ResolvedAt, policy)
		record.ActualResolutionHours = &hours
	}
	record.FirstResponseMet = binding.FirstResponseMetAt != nil
	record.FirstResponseBreached = binding.FirstResponseBreachedAt != nil
	record.ResolutionMet = binding.ResolutionMetAt != nil
	record.ResolutionBreached = binding.ResolutionBreachedAt != nil

	return s.records.Insert(ctx, record)
}

// AcknowledgeAlert flips the one-way acknowledged flag. The underlying
// ticket's SLA state is unaffected.
func (s *SLAService) AcknowledgeAlert(ctx context.Context, tenantID, alertID, agentID string) (*domain.SLABreachAlert, error) {
	alert, err := s.alerts.Acknowledge(ctx, tenantID, alertID, agentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("alert", map[string]any{"alert_id": alertID})
	}
	return alert, err
}

// ListAlerts exposes the alert surface for triage views.
func (s *SLAService) ListAlerts(ctx context.Context, tenantID string, filter repository.AlertFilter) ([]domain.SLABreachAlert, error) {
	return s.alerts.List(ctx, tenantID, filter)
}

// Binding returns the ticket's current SLA binding.
func (s *SLAService) Binding(ctx context.Context, tenantID, ticketID string) (*domain.TicketSLABinding, error) {
	if _, err := s.tickets.GetByID(ctx, tenantID, ticketID); err != nil {
		return nil, err
	}
	binding, err := s.bindings.GetByTicket(ctx, ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketUnbound
	}
	return binding, err
}

// PredictRisk scores breach risk for the ticket's nearer pending deadline.
// Read-only; nothing is persisted.
func (s *SLAService) PredictRisk(ctx context.Context, tenantID, ticketID string) (*domain.RiskAssessment, error) {
	ticket, err := s.tickets.GetByID(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	binding, err := s.bindings.GetByTicket(ctx, ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketUnbound
	}
	if err != nil {
		return nil, err
	}
	policy, err := s.policies.PolicyByID(ctx, tenantID, binding.PolicyID)
	if err != nil {
		return nil, err
	}

	assessment, ok := sla.PredictRisk(ticket, binding, policy, s.now(), s.riskCfg)
	if !ok {
		// Every applicable metric is settled; nothing left at risk.
		return &domain.RiskAssessment{
			TicketID:    ticketID,
			Level:       domain.RiskLevelLow,
			Probability: 0,
			EvaluatedAt: s.now(),
		}, nil
	}
	return assessment, nil
}

// SweepOnce evaluates every binding with a pending applicable metric. It is
// what catches tickets that breach purely from elapsed time. Failures are
// isolated per ticket: one bad row never aborts the batch.
func (s *SLAService) SweepOnce(ctx context.Context, batchSize int) (evaluated, failed int) {
	bindings, err := s.bindings.ListUnsettled(ctx, batchSize)
	if err != nil {
		s.logger.Error("sweep listing failed", zap.Error(err))
		return 0, 0
	}

	for i := range bindings {
		binding := &bindings[i]
		if _, err := s.Evaluate(ctx, binding.TenantID, binding.TicketID); err != nil {
			failed++
			s.metrics.RecordSweepError()
			s.logger.Warn("sweep evaluation failed",
				zap.String("ticket_id", binding.TicketID),
				zap.Error(err))
			continue
		}
		evaluated++
	}
	return evaluated, failed
}
