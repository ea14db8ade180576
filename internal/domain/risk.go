package domain

import "time"

// RiskLevel buckets breach probability for display and triage.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// RiskAssessment is the advisory output of the breach predictor. It is
// computed on demand and never persisted.
type RiskAssessment struct {
	TicketID       string    `json:"ticket_id"`
	Metric         SLAMetric `json:"metric"`
	Level          RiskLevel `json:"level"`
	Probability    float64   `json:"probability"`
	RemainingHours float64   `json:"remaining_hours"`
	Actions        []string  `json:"actions"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
}
