package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// SLAHandler exposes the compliance engine: evaluation, bindings, risk,
// alerts, and reports.
type SLAHandler struct {
	sla     *service.SLAService
	reports *service.ReportService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService *service.SLAService, reportService *service.ReportService) *SLAHandler {
	return &SLAHandler{sla: slaService, reports: reportService}
}

// Evaluate POST /api/tickets/:id/sla/evaluate. Forces a compliance pass
// outside the event-driven and sweep schedules.
func (h *SLAHandler) Evaluate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	result, err := h.sla.Evaluate(c.UserContext(), principal.TenantID(), c.Params("id"))
	if err != nil {
		return mapUnbound(err, c.Params("id"))
	}
	return c.JSON(fiber.Map{"data": result})
}

// Binding GET /api/tickets/:id/sla.
func (h *SLAHandler) Binding(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	binding, err := h.sla.Binding(c.UserContext(), principal.TenantID(), c.Params("id"))
	if err != nil {
		return mapUnbound(err, c.Params("id"))
	}
	return c.JSON(fiber.Map{"data": bindingResponse(binding)})
}

// Risk GET /api/tickets/:id/sla/risk.
func (h *SLAHandler) Risk(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	assessment, err := h.sla.PredictRisk(c.UserContext(), principal.TenantID(), c.Params("id"))
	if err != nil {
		return mapUnbound(err, c.Params("id"))
	}
	return c.JSON(fiber.Map{"data": assessment})
}

// ListAlerts GET /api/sla/alerts.
func (h *SLAHandler) ListAlerts(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseAlertFilter(c)
	alerts, err := h.sla.ListAlerts(c.UserContext(), principal.TenantID(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AlertResponse, 0, len(alerts))
	for i := range alerts {
		items = append(items, alertResponse(&alerts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AcknowledgeAlert POST /api/sla/alerts/:id/ack.
func (h *SLAHandler) AcknowledgeAlert(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	alert, err := h.sla.AcknowledgeAlert(c.UserContext(), principal.TenantID(), c.Params("id"), principal.Agent.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": alertResponse(alert)})
}

// ComplianceReport GET /api/sla/reports/compliance. Accepts start, end
// (RFC3339), optional policy_id/agent_id/customer_id filters, and an
// optional group_by of agent, customer, policy, or period.
func (h *SLAHandler) ComplianceReport(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	start := parseTime(c.Query("start"))
	end := parseTime(c.Query("end"))
	if start == nil || end == nil {
		return apperrors.NewValidationError("start and end are required RFC3339 timestamps", nil)
	}
	filter := repository.ReportFilter{}
	if policyID := c.Query("policy_id"); policyID != "" {
		filter.PolicyID = &policyID
	}
	if agentID := c.Query("agent_id"); agentID != "" {
		filter.AgentID = &agentID
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		filter.CustomerID = &customerID
	}

	if groupBy := c.Query("group_by"); groupBy != "" {
		groups, err := h.reports.ComplianceGrouped(c.UserContext(), principal.TenantID(), *start, *end, filter, repository.ReportGroupBy(groupBy))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": groups})
	}

	report, err := h.reports.Compliance(c.UserContext(), principal.TenantID(), *start, *end, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

func mapUnbound(err error, ticketID string) error {
	if errors.Is(err, service.ErrTicketUnbound) {
		return apperrors.NewNotFound("sla binding", map[string]any{"ticket_id": ticketID})
	}
	return err
}

func parseAlertFilter(c *fiber.Ctx) repository.AlertFilter {
	filter := repository.AlertFilter{}
	if ticketID := c.Query("ticket_id"); ticketID != "" {
		filter.TicketID = &ticketID
	}
	if ackStr := c.Query("acknowledged"); ackStr != "" {
		ack := ackStr == "true"
		filter.Acknowledged = &ack
	}
	if levelStr := c.Query("level"); levelStr != "" {
		level := domain.AlertLevel(levelStr)
		filter.Level = &level
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func bindingResponse(binding *domain.TicketSLABinding) dto.BindingResponse {
	return dto.BindingResponse{
		TicketID:                 binding.TicketID,
		PolicyID:                 binding.PolicyID,
		FirstResponseTargetHours: binding.FirstResponseTargetHours,
		ResolutionTargetHours:    binding.ResolutionTargetHours,
		FirstResponseDue:         binding.FirstResponseDue,
		ResolutionDue:            binding.ResolutionDue,
		FirstResponseState:       binding.FirstResponseState(),
		ResolutionState:          binding.ResolutionState(),
		BoundAt:                  binding.BoundAt,
		UpdatedAt:                binding.UpdatedAt,
	}
}

func alertResponse(alert *domain.SLABreachAlert) dto.AlertResponse {
	return dto.AlertResponse{
		ID:             alert.ID,
		TicketID:       alert.TicketID,
		PolicyID:       alert.PolicyID,
		BreachType:     alert.BreachType,
		BreachPercent:  alert.BreachPercent,
		Level:          alert.Level,
		Acknowledged:   alert.Acknowledged,
		AcknowledgedBy: alert.AcknowledgedBy,
		AcknowledgedAt: alert.AcknowledgedAt,
		CreatedAt:      alert.CreatedAt,
		UpdatedAt:      alert.UpdatedAt,
	}
}
