package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// PolicyRequest is the create/update payload for an SLA policy.
type PolicyRequest struct {
	Name  string `json:"name"`
	Label string `json:"label"`

	FirstResponseHours     *float64                          `json:"first_response_hours"`
	ResolutionHours        *float64                          `json:"resolution_hours"`
	FirstResponseOverrides map[domain.TicketPriority]float64 `json:"first_response_overrides"`
	ResolutionOverrides    map[domain.TicketPriority]float64 `json:"resolution_overrides"`

	Is24x7             bool   `json:"is_24x7"`
	BusinessHoursStart string `json:"business_hours_start"`
	BusinessHoursEnd   string `json:"business_hours_end"`
	BusinessDays       []int  `json:"business_days"`
	Timezone           string `json:"timezone"`

	WarningPercent  float64 `json:"warning_percent"`
	CriticalPercent float64 `json:"critical_percent"`
	AutoEscalate    bool    `json:"auto_escalate"`

	FilterPriority     *domain.TicketPriority `json:"filter_priority"`
	FilterTicketType   *domain.TicketType     `json:"filter_ticket_type"`
	FilterCustomerIDs  []string               `json:"filter_customer_ids"`
	FilterContractType *string                `json:"filter_contract_type"`

	IsActive  bool `json:"is_active"`
	IsDefault bool `json:"is_default"`
}

// PolicyResponse is the public view of an SLA policy.
type PolicyResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`

	FirstResponseHours     *float64                          `json:"first_response_hours,omitempty"`
	ResolutionHours        *float64                          `json:"resolution_hours,omitempty"`
	FirstResponseOverrides map[domain.TicketPriority]float64 `json:"first_response_overrides,omitempty"`
	ResolutionOverrides    map[domain.TicketPriority]float64 `json:"resolution_overrides,omitempty"`

	Is24x7             bool   `json:"is_24x7"`
	BusinessHoursStart string `json:"business_hours_start"`
	BusinessHoursEnd   string `json:"business_hours_end"`
	BusinessDays       []int  `json:"business_days"`
	Timezone           string `json:"timezone"`

	WarningPercent  float64 `json:"warning_percent"`
	CriticalPercent float64 `json:"critical_percent"`
	AutoEscalate    bool    `json:"auto_escalate"`

	FilterPriority     *domain.TicketPriority `json:"filter_priority,omitempty"`
	FilterTicketType   *domain.TicketType     `json:"filter_ticket_type,omitempty"`
	FilterCustomerIDs  []string               `json:"filter_customer_ids,omitempty"`
	FilterContractType *string                `json:"filter_contract_type,omitempty"`

	IsActive  bool      `json:"is_active"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
