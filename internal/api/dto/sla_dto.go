package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// BindingResponse is the public view of a ticket's SLA binding.
type BindingResponse struct {
	TicketID string `json:"ticket_id"`
	PolicyID string `json:"policy_id"`

	FirstResponseTargetHours *float64   `json:"first_response_target_hours,omitempty"`
	ResolutionTargetHours    *float64   `json:"resolution_target_hours,omitempty"`
	FirstResponseDue         *time.Time `json:"first_response_due,omitempty"`
	ResolutionDue            *time.Time `json:"resolution_due,omitempty"`

	FirstResponseState domain.MetricState `json:"first_response_state"`
	ResolutionState    domain.MetricState `json:"resolution_state"`

	BoundAt   time.Time `json:"bound_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AlertResponse is the public view of a breach alert.
type AlertResponse struct {
	ID            string            `json:"id"`
	TicketID      *string           `json:"ticket_id,omitempty"`
	PolicyID      string            `json:"policy_id"`
	BreachType    domain.SLAMetric  `json:"breach_type"`
	BreachPercent float64           `json:"breach_percent"`
	Level         domain.AlertLevel `json:"level"`

	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy *string    `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
