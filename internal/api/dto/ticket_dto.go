package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CustomerID   string                `json:"customer_id"`
	ContractType *string               `json:"contract_type"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Type         domain.TicketType     `json:"type"`
	Priority     domain.TicketPriority `json:"priority"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// ChangePriorityRequest payload.
type ChangePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// AssignTicketRequest payload. A null assignee unassigns the ticket.
type AssignTicketRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// TicketResponse is the public view of a ticket.
type TicketResponse struct {
	ID               string                `json:"id"`
	ExternalKey      string                `json:"external_key"`
	CustomerID       string                `json:"customer_id"`
	ContractType     *string               `json:"contract_type,omitempty"`
	AssigneeID       *string               `json:"assignee_id,omitempty"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	Type             domain.TicketType     `json:"type"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	FirstRespondedAt *time.Time            `json:"first_responded_at,omitempty"`
	ResolvedAt       *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt         *time.Time            `json:"closed_at,omitempty"`
}
