package domain

import "time"

// TicketContext carries the ticket attributes a policy filter matches against.
type TicketContext struct {
	Priority     TicketPriority
	TicketType   TicketType
	CustomerID   string
	ContractType string
}

// SLAPolicy is a tenant-owned rule set defining response and resolution targets.
//
// A nil target pointer means the policy defines no commitment for that metric;
// the metric is then excluded from evaluation entirely. Filter fields left nil
// (or empty, for customer ids) act as wildcards during resolution.
type SLAPolicy struct {
	ID       string
	TenantID string
	Name     string
	Label    string

	FirstResponseHours *float64
	ResolutionHours    *float64
	// Per-priority overrides take precedence over the generic targets above.
	FirstResponseOverrides map[TicketPriority]float64
	ResolutionOverrides    map[TicketPriority]float64

	Is24x7             bool
	BusinessHoursStart string // "09:00", local time-of-day
	BusinessHoursEnd   string // "17:00"
	BusinessDays       []time.Weekday
	Timezone           string // IANA name, validated at save time

	WarningPercent  float64
	CriticalPercent float64
	AutoEscalate    bool

	FilterPriority     *TicketPriority
	FilterTicketType   *TicketType
	FilterCustomerIDs  []string
	FilterContractType *string

	IsActive  bool
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FirstResponseTarget returns the first-response target hours for a priority,
// preferring the per-priority override. Nil means no commitment.
func (p *SLAPolicy) FirstResponseTarget(priority TicketPriority) *float64 {
	if hours, ok := p.FirstResponseOverrides[priority]; ok {
		return &hours
	}
	return p.FirstResponseHours
}

// ResolutionTarget returns the resolution target hours for a priority,
// preferring the per-priority override. Nil means no commitment.
func (p *SLAPolicy) ResolutionTarget(priority TicketPriority) *float64 {
	if hours, ok := p.ResolutionOverrides[priority]; ok {
		return &hours
	}
	return p.ResolutionHours
}

// Matches reports whether the policy's applicability filter accepts the
// ticket context. Every filter field is either a wildcard or an exact match.
func (p *SLAPolicy) Matches(ctx TicketContext) bool {
	if p.FilterPriority != nil && *p.FilterPriority != ctx.Priority {
		return false
	}
	if p.FilterTicketType != nil && *p.FilterTicketType != ctx.TicketType {
		return false
	}
	if p.FilterContractType != nil && *p.FilterContractType != ctx.ContractType {
		return false
	}
	if len(p.FilterCustomerIDs) > 0 {
		found := false
		for _, id := range p.FilterCustomerIDs {
			if id == ctx.CustomerID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Location resolves the policy timezone. Timezone names are rejected at
// policy-save time, so a failed parse here only happens for legacy rows;
// those fall back to UTC rather than failing evaluation.
func (p *SLAPolicy) Location() *time.Location {
	if p.Is24x7 || p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WorksOn reports whether the weekday is in the policy's business-days set.
func (p *SLAPolicy) WorksOn(day time.Weekday) bool {
	for _, d := range p.BusinessDays {
		if d == day {
			return true
		}
	}
	return false
}
