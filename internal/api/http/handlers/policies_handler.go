package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// PoliciesHandler manages SLA policy administration endpoints.
type PoliciesHandler struct {
	service *service.PolicyService
}

// NewPoliciesHandler constructs handler.
func NewPoliciesHandler(policyService *service.PolicyService) *PoliciesHandler {
	return &PoliciesHandler{service: policyService}
}

// Create POST /api/sla/policies.
func (h *PoliciesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}

	policy := policyFromRequest(principal.TenantID(), "", &req)
	if err := h.service.Create(c.UserContext(), policy); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": policyResponse(policy)})
}

// Update PUT /api/sla/policies/:id.
func (h *PoliciesHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	policy := policyFromRequest(principal.TenantID(), c.Params("id"), &req)
	if err := h.service.Update(c.UserContext(), policy); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": policyResponse(policy)})
}

// Delete DELETE /api/sla/policies/:id. Policies are deactivated, never
// removed: frozen bindings keep referencing them.
func (h *PoliciesHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.UserContext(), principal.TenantID(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Get GET /api/sla/policies/:id.
func (h *PoliciesHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	policy, err := h.service.Get(c.UserContext(), principal.TenantID(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": policyResponse(policy)})
}

// List GET /api/sla/policies.
func (h *PoliciesHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	policies, err := h.service.List(c.UserContext(), principal.TenantID())
	if err != nil {
		return err
	}
	items := make([]dto.PolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, policyResponse(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func policyFromRequest(tenantID, id string, req *dto.PolicyRequest) *domain.SLAPolicy {
	days := make([]time.Weekday, 0, len(req.BusinessDays))
	for _, d := range req.BusinessDays {
		days = append(days, time.Weekday(d))
	}
	return &domain.SLAPolicy{
		ID:       id,
		TenantID: tenantID,
		Name:     strings.TrimSpace(req.Name),
		Label:    strings.TrimSpace(req.Label),

		FirstResponseHours:     req.FirstResponseHours,
		ResolutionHours:        req.ResolutionHours,
		FirstResponseOverrides: req.FirstResponseOverrides,
		ResolutionOverrides:    req.ResolutionOverrides,

		Is24x7:             req.Is24x7,
		BusinessHoursStart: req.BusinessHoursStart,
		BusinessHoursEnd:   req.BusinessHoursEnd,
		BusinessDays:       days,
		Timezone:           req.Timezone,

		WarningPercent:  req.WarningPercent,
		CriticalPercent: req.CriticalPercent,
		AutoEscalate:    req.AutoEscalate,

		FilterPriority:     req.FilterPriority,
		FilterTicketType:   req.FilterTicketType,
		FilterCustomerIDs:  req.FilterCustomerIDs,
		FilterContractType: req.FilterContractType,

		IsActive:  req.IsActive,
		IsDefault: req.IsDefault,
	}
}

func policyResponse(policy *domain.SLAPolicy) dto.PolicyResponse {
	days := make([]int, 0, len(policy.BusinessDays))
	for _, d := range policy.BusinessDays {
		days = append(days, int(d))
	}
	return dto.PolicyResponse{
		ID:    policy.ID,
		Name:  policy.Name,
		Label: policy.Label,

		FirstResponseHours:     policy.FirstResponseHours,
		ResolutionHours:        policy.ResolutionHours,
		FirstResponseOverrides: policy.FirstResponseOverrides,
		ResolutionOverrides:    policy.ResolutionOverrides,

		Is24x7:             policy.Is24x7,
		BusinessHoursStart: policy.BusinessHoursStart,
		BusinessHoursEnd:   policy.BusinessHoursEnd,
		BusinessDays:       days,
		Timezone:           policy.Timezone,

		WarningPercent:  policy.WarningPercent,
		CriticalPercent: policy.CriticalPercent,
		AutoEscalate:    policy.AutoEscalate,

		FilterPriority:     policy.FilterPriority,
		FilterTicketType:   policy.FilterTicketType,
		FilterCustomerIDs:  policy.FilterCustomerIDs,
		FilterContractType: policy.FilterContractType,

		IsActive:  policy.IsActive,
		IsDefault: policy.IsDefault,
		CreatedAt: policy.CreatedAt,
		UpdatedAt: policy.UpdatedAt,
	}
}
