package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// TicketService is the thin CRUD layer around tickets. Its job here is to
// mutate ticket state and publish the lifecycle events the SLA engine
// subscribes to; it contains no compliance logic of its own.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, dispatcher events.Dispatcher) *TicketService {
	return &TicketService{tickets: tickets, dispatcher: dispatcher}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CustomerID   string
	ContractType *string
	Title        string
	Description  string
	Type         domain.TicketType
	Priority     domain.TicketPriority
}

// CreateTicket creates a ticket and announces it; the SLA engine binds a
// policy synchronously from the published event.
func (s *TicketService) CreateTicket(ctx context.Context, tenantID string, input TicketCreateInput) (*domain.Ticket, error) {
	if input.CustomerID == "" || strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("customer_id and title required", nil)
	}

	ticket := &domain.Ticket{
		TenantID:     tenantID,
		ExternalKey:  generateTicketKey(),
		CustomerID:   input.CustomerID,
		ContractType: input.ContractType,
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		Type:         input.Type,
		Status:       domain.TicketStatusOpen,
		Priority:     input.Priority,
	}
	if ticket.Type == "" {
		ticket.Type = domain.TicketTypeQuestion
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			CustomerID: ticket.CustomerID,
			Type:       ticket.Type,
			Priority:   ticket.Priority,
			Title:      ticket.Title,
		},
	})
	return ticket, nil
}

// GetTicket loads one ticket.
func (s *TicketService) GetTicket(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, tenantID, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return ticket, err
}

// ListTickets lists tickets for agent views.
func (s *TicketService) ListTickets(ctx context.Context, tenantID string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.List(ctx, tenantID, filter)
}

// RecordAgentReply marks an agent's public reply. The first reply stamps
// first_responded_at, the qualifying event for the first-response metric;
// later replies leave it untouched.
func (s *TicketService) RecordAgentReply(ctx context.Context, tenantID, ticketID, agentID string, at time.Time) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("ticket is closed", nil)
	}

	if ticket.FirstRespondedAt == nil {
		ticket.FirstRespondedAt = &at
	}
	if ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusInProgress
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReplied,
		TenantID: tenantID,
		TicketID: ticketID,
		ActorID:  &agentID,
		Payload:  events.TicketRepliedPayload{AgentID: agentID, RepliedAt: at},
	})
	return ticket, nil
}

// ChangeStatus moves the ticket through its workflow. Entering RESOLVED or
// CLOSED stamps the resolution timestamp, the qualifying event for the
// resolution metric.
func (s *TicketService) ChangeStatus(ctx context.Context, tenantID, ticketID, agentID string, status domain.TicketStatus, at time.Time) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == status {
		return ticket, nil
	}

	oldStatus := ticket.Status
	ticket.Status = status
	switch status {
	case domain.TicketStatusResolved, domain.TicketStatusClosed:
		if ticket.ResolvedAt == nil {
			ticket.ResolvedAt = &at
		}
		if status == domain.TicketStatusClosed {
			ticket.ClosedAt = &at
		}
	case domain.TicketStatusCancelled:
		ticket.ClosedAt = &at
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TenantID: tenantID,
		TicketID: ticketID,
		ActorID:  &agentID,
		Payload:  events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: status},
	})
	return ticket, nil
}

// ChangePriority escalates or relaxes a ticket. The SLA engine rebinds the
// deadlines over the remaining budget from the published event.
func (s *TicketService) ChangePriority(ctx context.Context, tenantID, ticketID, agentID string, priority domain.TicketPriority) (*domain.Ticket, error) {
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", nil)
	}
	ticket, err := s.GetTicket(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Priority == priority {
		return ticket, nil
	}

	oldPriority := ticket.Priority
	ticket.Priority = priority
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TenantID: tenantID,
		TicketID: ticketID,
		ActorID:  &agentID,
		Payload:  events.TicketPriorityChangedPayload{OldPriority: oldPriority, NewPriority: priority},
	})
	return ticket, nil
}

// AssignTicket sets or clears the assignee.
func (s *TicketService) AssignTicket(ctx context.Context, tenantID, ticketID, agentID string, assigneeID *string) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	ticket.AssigneeID = assigneeID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TenantID: tenantID,
		TicketID: ticketID,
		ActorID:  &agentID,
		Payload:  events.TicketAssignedPayload{AssigneeID: assigneeID},
	})
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
