package sla

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// MetricOutcome is the evaluation result for one metric on one ticket.
type MetricOutcome struct {
	Metric domain.SLAMetric
	// Applicable is false when the binding carries no deadline for the
	// metric (no target configured); such metrics are skipped entirely.
	Applicable bool
	State      domain.MetricState
	MetAt      *time.Time
	BreachedAt *time.Time
	// BreachPercent is elapsed effective time over target, as a percentage.
	// 100 means exactly on deadline. For metrics already terminal before
	// this evaluation it is left at 0; alerting only consumes the percent
	// for pending metrics and fresh transitions.
	BreachPercent float64
	// Transitioned is true when this evaluation moved the metric from
	// PENDING to a terminal state. Re-evaluating a terminal metric is a
	// no-op, which is what makes overlapping sweeps safe.
	Transitioned bool
}

// Outcome bundles both metric outcomes of one evaluation pass.
type Outcome struct {
	TicketID      string
	FirstResponse MetricOutcome
	Resolution    MetricOutcome
	EvaluatedAt   time.Time
}

// EvaluateCompliance runs the per-metric state machine for a bound ticket.
//
// Transitions (per metric, both terminal states final):
//
//	PENDING -> MET       qualifying event at or before the due time
//	PENDING -> BREACHED  qualifying event after the due time, or the due
//	                     time passed with no event; in the latter case the
//	                     breach timestamp is pinned to the due time itself,
//	                     since evaluation time is merely when the breach
//	                     was detected.
//
// The function is pure: callers persist the outcome onto the binding.
func EvaluateCompliance(t *domain.Ticket, b *domain.TicketSLABinding, p *domain.SLAPolicy, now time.Time) Outcome {
	// Resolving closes the conversation, so for a ticket resolved without a
	// public reply the resolution doubles as the first-response qualifying
	// event. Replies are rejected on terminal tickets, so without this the
	// metric would hang pending until the sweep breached it.
	firstEvent := t.FirstRespondedAt
	if firstEvent == nil {
		firstEvent = t.ResolvedAt
	}
	return Outcome{
		TicketID: t.ID,
		FirstResponse: evaluateMetric(domain.MetricFirstResponse, b.FirstResponseState(),
			firstEvent, b.FirstResponseDue, b.FirstResponseTargetHours, t.CreatedAt, now, p),
		Resolution: evaluateMetric(domain.MetricResolution, b.ResolutionState(),
			t.ResolvedAt, b.ResolutionDue, b.ResolutionTargetHours, t.CreatedAt, now, p),
		EvaluatedAt: now,
	}
}

func evaluateMetric(metric domain.SLAMetric, current domain.MetricState,
	eventAt, due *time.Time, target *float64, created, now time.Time, p *domain.SLAPolicy) MetricOutcome {

	outcome := MetricOutcome{Metric: metric, State: current}

	if due == nil || target == nil || *target <= 0 {
		return outcome
	}
	outcome.Applicable = true

	if current.Terminal() {
		return outcome
	}

	switch {
	case eventAt != nil:
		if !eventAt.After(*due) {
			outcome.State = domain.MetricStateMet
			outcome.MetAt = eventAt
		} else {
			outcome.State = domain.MetricStateBreached
			outcome.BreachedAt = eventAt
			outcome.BreachPercent = EffectiveHoursBetween(created, *eventAt, p) / *target * 100
		}
		outcome.Transitioned = true

	case now.After(*due):
		// Overran with no event: the breach happened at the deadline.
		outcome.State = domain.MetricStateBreached
		outcome.BreachedAt = due
		outcome.BreachPercent = EffectiveHoursBetween(created, now, p) / *target * 100
		outcome.Transitioned = true

	default:
		outcome.State = domain.MetricStatePending
		outcome.BreachPercent = EffectiveHoursBetween(created, now, p) / *target * 100
	}
	return outcome
}

// Apply writes a fresh terminal outcome back onto the binding. Calling it
// with a non-transitioned outcome changes nothing.
func (o Outcome) Apply(b *domain.TicketSLABinding) {
	applyMetric(o.FirstResponse, &b.FirstResponseMetAt, &b.FirstResponseBreachedAt)
	applyMetric(o.Resolution, &b.ResolutionMetAt, &b.ResolutionBreachedAt)
	b.UpdatedAt = o.EvaluatedAt
}

func applyMetric(m MetricOutcome, metAt, breachedAt **time.Time) {
	if !m.Transitioned {
		return
	}
	switch m.State {
	case domain.MetricStateMet:
		*metAt = m.MetAt
	case domain.MetricStateBreached:
		*breachedAt = m.BreachedAt
	}
}
