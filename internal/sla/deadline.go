package sla

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// Bind freezes a resolved policy onto a ticket: it snapshots the per-priority
// target hours and projects both deadlines forward from the ticket's creation
// time. A metric whose policy defines no target (neither a priority override
// nor a generic value) is left with a nil target and nil due time, which
// excludes it from evaluation; it is never defaulted to zero.
func Bind(t *domain.Ticket, p *domain.SLAPolicy, now time.Time) *domain.TicketSLABinding {
	binding := &domain.TicketSLABinding{
		TicketID: t.ID,
		TenantID: t.TenantID,
		PolicyID: p.ID,
		BoundAt:  now,
	}

	if target := p.FirstResponseTarget(t.Priority); target != nil {
		binding.FirstResponseTargetHours = target
		if due, ok := AddEffectiveHours(t.CreatedAt, *target, p); ok {
			binding.FirstResponseDue = &due
		}
	}
	if target := p.ResolutionTarget(t.Priority); target != nil {
		binding.ResolutionTargetHours = target
		if due, ok := AddEffectiveHours(t.CreatedAt, *target, p); ok {
			binding.ResolutionDue = &due
		}
	}
	return binding
}

// Rebind recomputes deadlines after a priority change. The new per-priority
// target applies only to the remaining budget: effective hours already spent
// under the old target stay counted, so tightening the target never
// manufactures a retroactive breach. A metric that already reached a terminal
// state keeps its recorded outcome untouched.
//
// When the elapsed effective time already exceeds the new target, the
// remaining budget clamps to zero and the deadline becomes now: the metric
// breaches from this moment forward, not in the past.
func Rebind(t *domain.Ticket, b *domain.TicketSLABinding, p *domain.SLAPolicy, now time.Time) {
	elapsed := EffectiveHoursBetween(t.CreatedAt, now, p)
	b.PolicyID = p.ID

	if !b.FirstResponseState().Terminal() {
		b.FirstResponseTargetHours, b.FirstResponseDue = reproject(p.FirstResponseTarget(t.Priority), elapsed, now, p)
	}
	if !b.ResolutionState().Terminal() {
		b.ResolutionTargetHours, b.ResolutionDue = reproject(p.ResolutionTarget(t.Priority), elapsed, now, p)
	}
	b.UpdatedAt = now
}

func reproject(target *float64, elapsed float64, now time.Time, p *domain.SLAPolicy) (*float64, *time.Time) {
	if target == nil {
		return nil, nil
	}
	remaining := *target - elapsed
	if remaining < 0 {
		remaining = 0
	}
	due, ok := AddEffectiveHours(now, remaining, p)
	if !ok {
		return target, nil
	}
	return target, &due
}
