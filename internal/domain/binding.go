package domain

import "time"

// SLAMetric identifies which commitment a state or alert refers to.
type SLAMetric string

const (
	MetricFirstResponse SLAMetric = "first_response"
	MetricResolution    SLAMetric = "resolution"
)

// MetricState is the per-metric compliance state machine. MET and BREACHED
// are terminal.
type MetricState string

const (
	MetricStatePending  MetricState = "PENDING"
	MetricStateMet      MetricState = "MET"
	MetricStateBreached MetricState = "BREACHED"
)

// Terminal reports whether the state admits no further transitions.
func (s MetricState) Terminal() bool {
	return s == MetricStateMet || s == MetricStateBreached
}

// TicketSLABinding is the frozen result of resolving a policy for one ticket.
// Target hours are snapshots captured at bind time so later policy edits do
// not rewrite historical commitments.
type TicketSLABinding struct {
	TicketID string
	TenantID string
	PolicyID string

	FirstResponseTargetHours *float64
	ResolutionTargetHours    *float64
	FirstResponseDue         *time.Time
	ResolutionDue            *time.Time

	FirstResponseMetAt      *time.Time
	FirstResponseBreachedAt *time.Time
	ResolutionMetAt         *time.Time
	ResolutionBreachedAt    *time.Time

	BoundAt   time.Time
	UpdatedAt time.Time
}

// FirstResponseState derives the first-response metric state from the
// stored timestamps.
func (b *TicketSLABinding) FirstResponseState() MetricState {
	switch {
	case b.FirstResponseMetAt != nil:
		return MetricStateMet
	case b.FirstResponseBreachedAt != nil:
		return MetricStateBreached
	default:
		return MetricStatePending
	}
}

// ResolutionState derives the resolution metric state.
func (b *TicketSLABinding) ResolutionState() MetricState {
	switch {
	case b.ResolutionMetAt != nil:
		return MetricStateMet
	case b.ResolutionBreachedAt != nil:
		return MetricStateBreached
	default:
		return MetricStatePending
	}
}

// Settled reports whether every applicable metric reached a terminal state,
// meaning the sweep no longer needs to revisit this binding.
func (b *TicketSLABinding) Settled() bool {
	if b.FirstResponseDue != nil && !b.FirstResponseState().Terminal() {
		return false
	}
	if b.ResolutionDue != nil && !b.ResolutionState().Terminal() {
		return false
	}
	return true
}
