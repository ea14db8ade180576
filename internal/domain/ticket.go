package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen              TicketStatus = "OPEN"
	TicketStatusInProgress        TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingOnCustomer TicketStatus = "WAITING_ON_CUSTOMER"
	TicketStatusResolved          TicketStatus = "RESOLVED"
	TicketStatusClosed            TicketStatus = "CLOSED"
	TicketStatusCancelled         TicketStatus = "CANCELLED"
)

// IsTerminal reports whether the ticket has left the active workflow.
func (s TicketStatus) IsTerminal() bool {
	switch s {
	case TicketStatusResolved, TicketStatusClosed, TicketStatusCancelled:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// TicketType enumerates request categories.
type TicketType string

const (
	TicketTypeQuestion TicketType = "QUESTION"
	TicketTypeIncident TicketType = "INCIDENT"
	TicketTypeProblem  TicketType = "PROBLEM"
	TicketTypeTask     TicketType = "TASK"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID               string
	TenantID         string
	ExternalKey      string
	CustomerID       string
	ContractType     *string
	AssigneeID       *string
	Title            string
	Description      string
	Type             TicketType
	Status           TicketStatus
	Priority         TicketPriority
	CreatedAt        time.Time
	UpdatedAt        time.Time
	FirstRespondedAt *time.Time
	ResolvedAt       *time.Time
	ClosedAt         *time.Time
}

// SLAContext extracts the attributes policy resolution matches against.
func (t *Ticket) SLAContext() TicketContext {
	ctx := TicketContext{
		Priority:   t.Priority,
		TicketType: t.Type,
		CustomerID: t.CustomerID,
	}
	if t.ContractType != nil {
		ctx.ContractType = *t.ContractType
	}
	return ctx
}
