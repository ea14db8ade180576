package sla

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// RiskBand maps an upper bound on remaining effective hours to a base breach
// probability. Bands are scanned in order; the first band whose bound exceeds
// the remaining time wins.
type RiskBand struct {
	UpToHours   float64
	Probability float64
}

// RiskConfig holds the predictor's tuning constants. These are hand-tuned
// defaults carried over from operational experience, not derived from a
// fitted model; deployments may override them.
type RiskConfig struct {
	// OverdueBase applies when no effective time remains (remaining <= 0).
	OverdueBase     float64
	Bands           []RiskBand
	FallbackBase    float64
	PriorityAdjust  map[domain.TicketPriority]float64
	UnassignedBoost float64
	WaitingDiscount float64

	CriticalAt float64
	HighAt     float64
	MediumAt   float64
}

// DefaultRiskConfig returns the documented default scoring constants.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		OverdueBase: 1.0,
		Bands: []RiskBand{
			{UpToHours: 1, Probability: 0.9},
			{UpToHours: 4, Probability: 0.7},
			{UpToHours: 8, Probability: 0.5},
			{UpToHours: 24, Probability: 0.3},
		},
		FallbackBase: 0.1,
		PriorityAdjust: map[domain.TicketPriority]float64{
			domain.TicketPriorityUrgent: 0.2,
			domain.TicketPriorityHigh:   0.1,
			domain.TicketPriorityLow:    -0.1,
		},
		UnassignedBoost: 0.2,
		WaitingDiscount: -0.1,
		CriticalAt:      0.8,
		HighAt:          0.6,
		MediumAt:        0.4,
	}
}

// PredictRisk scores the breach risk of the nearer pending deadline. It is
// read-only and advisory: the returned actions are recommendations, never
// executed by the engine. The second return is false when no applicable
// metric is still pending, in which case there is nothing left to predict.
func PredictRisk(t *domain.Ticket, b *domain.TicketSLABinding, p *domain.SLAPolicy, now time.Time, cfg RiskConfig) (*domain.RiskAssessment, bool) {
	metric, due, ok := nearestPendingDeadline(b)
	if !ok {
		return nil, false
	}

	remaining := due.Sub(now).Hours()
	if !p.Is24x7 {
		remaining = EffectiveHoursBetween(now, due, p)
		if !now.Before(due) {
			remaining = 0
		}
	}

	probability := cfg.FallbackBase
	if remaining <= 0 {
		probability = cfg.OverdueBase
	} else {
		for _, band := range cfg.Bands {
			if remaining < band.UpToHours {
				probability = band.Probability
				break
			}
		}
	}

	probability += cfg.PriorityAdjust[t.Priority]
	unassigned := t.AssigneeID == nil && !t.Status.IsTerminal()
	if unassigned {
		probability += cfg.UnassignedBoost
	}
	if t.Status == domain.TicketStatusWaitingOnCustomer {
		probability += cfg.WaitingDiscount
	}
	probability = clamp01(probability)

	level := domain.RiskLevelLow
	switch {
	case probability >= cfg.CriticalAt:
		level = domain.RiskLevelCritical
	case probability >= cfg.HighAt:
		level = domain.RiskLevelHigh
	case probability >= cfg.MediumAt:
		level = domain.RiskLevelMedium
	}

	return &domain.RiskAssessment{
		TicketID:       t.ID,
		Metric:         metric,
		Level:          level,
		Probability:    probability,
		RemainingHours: remaining,
		Actions:        recommendActions(level, metric, remaining, unassigned),
		EvaluatedAt:    now,
	}, true
}

func nearestPendingDeadline(b *domain.TicketSLABinding) (domain.SLAMetric, time.Time, bool) {
	var metric domain.SLAMetric
	var due time.Time
	found := false

	if b.FirstResponseDue != nil && !b.FirstResponseState().Terminal() {
		metric, due, found = domain.MetricFirstResponse, *b.FirstResponseDue, true
	}
	if b.ResolutionDue != nil && !b.ResolutionState().Terminal() {
		if !found || b.ResolutionDue.Before(due) {
			metric, due, found = domain.MetricResolution, *b.ResolutionDue, true
		}
	}
	return metric, due, found
}

func recommendActions(level domain.RiskLevel, metric domain.SLAMetric, remaining float64, unassigned bool) []string {
	var actions []string
	if unassigned && (level == domain.RiskLevelCritical || level == domain.RiskLevelHigh) {
		actions = append(actions, "assign the ticket to an available agent immediately")
	}
	if level == domain.RiskLevelCritical {
		actions = append(actions, "escalate to a senior agent or team lead")
	}
	if remaining > 0 && remaining <= 1 {
		if metric == domain.MetricFirstResponse {
			actions = append(actions, "post a first response within the hour")
		} else {
			actions = append(actions, "prioritize resolution work; less than one effective hour remains")
		}
	}
	if level == domain.RiskLevelMedium {
		actions = append(actions, "review ticket progress at the next team sync")
	}
	return actions
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
