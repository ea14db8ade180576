package domain

import "time"

// AlertLevel enumerates escalation severities.
type AlertLevel string

const (
	AlertLevelWarning  AlertLevel = "WARNING"
	AlertLevelCritical AlertLevel = "CRITICAL"
)

// Rank orders levels so an upsert can upgrade but never downgrade.
func (l AlertLevel) Rank() int {
	switch l {
	case AlertLevelWarning:
		return 1
	case AlertLevelCritical:
		return 2
	}
	return 0
}

// SLABreachAlert is a notification-worthy escalation event.
//
// At most one unacknowledged alert exists per (ticket, metric); re-evaluation
// upserts in place instead of inserting duplicates. TicketID is optional
// because contract-level breaches carry no ticket.
type SLABreachAlert struct {
	ID            string
	TenantID      string
	TicketID      *string
	PolicyID      string
	BreachType    SLAMetric
	BreachPercent float64
	Level         AlertLevel

	Acknowledged   bool
	AcknowledgedBy *string
	AcknowledgedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
