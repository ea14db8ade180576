package domain

import "time"

// SLAComplianceRecord is an immutable snapshot taken when a ticket resolves,
// used for historical reporting independent of live ticket state. Rows are
// never updated after insert.
type SLAComplianceRecord struct {
	ID       string
	TenantID string
	TicketID string
	PolicyID string

	PeriodStart time.Time
	PeriodEnd   time.Time

	ActualFirstResponseHours *float64
	ActualResolutionHours    *float64

	FirstResponseMet      bool
	FirstResponseBreached bool
	ResolutionMet         bool
	ResolutionBreached    bool

	CreatedAt time.Time
}

// MetricSummary aggregates one metric's met/breached counts.
type MetricSummary struct {
	Met      int `json:"met"`
	Breached int `json:"breached"`
	// Rate is met / (met+breached) as a percentage; 100 when the
	// denominator is zero (no commitments exercised means nothing missed).
	Rate float64 `json:"rate"`
}

// Recalculate refreshes Rate from the counts.
func (m *MetricSummary) Recalculate() {
	total := m.Met + m.Breached
	if total == 0 {
		m.Rate = 100
		return
	}
	m.Rate = float64(m.Met) / float64(total) * 100
}

// ComplianceReport is the roll-up returned by the metrics aggregator.
type ComplianceReport struct {
	TenantID      string        `json:"tenant_id"`
	PeriodStart   time.Time     `json:"period_start"`
	PeriodEnd     time.Time     `json:"period_end"`
	TotalTickets  int           `json:"total_tickets"`
	FirstResponse MetricSummary `json:"first_response"`
	Resolution    MetricSummary `json:"resolution"`
}

// ComplianceGroup is one bucket of a grouped compliance report, keyed by
// agent id, customer id, policy id, or period label depending on the query.
type ComplianceGroup struct {
	Key           string        `json:"key"`
	TotalTickets  int           `json:"total_tickets"`
	FirstResponse MetricSummary `json:"first_response"`
	Resolution    MetricSummary `json:"resolution"`
}
