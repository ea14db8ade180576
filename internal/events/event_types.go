package events

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketReplied         EventType = "ticket_replied"
	EventSLAAlertRaised        EventType = "sla_alert_raised"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TenantID  string      `json:"tenant_id"`
	TicketID  string      `json:"ticket_id"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerID string                `json:"customer_id"`
	Type       domain.TicketType     `json:"type"`
	Priority   domain.TicketPriority `json:"priority"`
	Title      string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID *string `json:"assignee_id,omitempty"`
}

// TicketRepliedPayload marks an agent's public reply, the qualifying event
// for the first-response metric.
type TicketRepliedPayload struct {
	AgentID   string    `json:"agent_id"`
	RepliedAt time.Time `json:"replied_at"`
}

// SLAAlertRaisedPayload payload.
type SLAAlertRaisedPayload struct {
	AlertID       string            `json:"alert_id"`
	PolicyID      string            `json:"policy_id"`
	BreachType    domain.SLAMetric  `json:"breach_type"`
	Level         domain.AlertLevel `json:"level"`
	BreachPercent float64           `json:"breach_percent"`
}
