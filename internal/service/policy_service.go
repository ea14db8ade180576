package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/persistence"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/sla"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// PolicyService owns the SLA policy CRUD surface and implements
// PolicyProvider for the engine, with a per-tenant Redis cache in front of
// storage. The cache is a pure optimization: every write invalidates it, and
// a stale read only delays, never corrupts, resolution.
type PolicyService struct {
	policies repository.PolicyRepository
	cache    *persistence.PolicyCache
	logger   *zap.Logger
	cfg      config.SLAConfig
}

// NewPolicyService constructs the service.
func NewPolicyService(policies repository.PolicyRepository, cache *persistence.PolicyCache, logger *zap.Logger, cfg config.SLAConfig) *PolicyService {
	return &PolicyService{policies: policies, cache: cache, logger: logger, cfg: cfg}
}

// Validate rejects saves the engine could not evaluate safely. An
// unparseable IANA timezone is fatal here so it can never surface at
// evaluation time; an empty business-days set on a non-24x7 policy is legal
// but means deadlines never arrive, so it is logged as a configuration
// warning rather than silently fixed.
func (s *PolicyService) validate(policy *domain.SLAPolicy) error {
	if policy.Name == "" {
		return apperrors.NewValidationError("policy name required", nil)
	}
	if policy.WarningPercent <= 0 {
		policy.WarningPercent = s.cfg.DefaultWarningPercent
	}
	if policy.CriticalPercent <= 0 {
		policy.CriticalPercent = s.cfg.DefaultCriticalPercent
	}
	if policy.CriticalPercent < policy.WarningPercent {
		return apperrors.NewValidationError("critical percent below warning percent", nil)
	}

	if !policy.Is24x7 {
		if _, err := time.LoadLocation(policy.Timezone); err != nil {
			return apperrors.NewValidationError("unknown timezone", map[string]any{"timezone": policy.Timezone})
		}
		if _, _, err := sla.ParseClock(policy.BusinessHoursStart); err != nil {
			return apperrors.NewValidationError("invalid business hours start", nil)
		}
		if _, _, err := sla.ParseClock(policy.BusinessHoursEnd); err != nil {
			return apperrors.NewValidationError("invalid business hours end", nil)
		}
		if len(policy.BusinessDays) == 0 {
			s.logger.Warn("policy has no business days; its deadlines will never arrive",
				zap.String("tenant_id", policy.TenantID),
				zap.String("policy_name", policy.Name))
		}
	}

	for priority := range policy.FirstResponseOverrides {
		if !domain.ValidPriority(priority) {
			return apperrors.NewValidationError("unknown priority in first response overrides", nil)
		}
	}
	for priority := range policy.ResolutionOverrides {
		if !domain.ValidPriority(priority) {
			return apperrors.NewValidationError("unknown priority in resolution overrides", nil)
		}
	}
	return nil
}

// Create saves a new policy and invalidates the tenant cache.
func (s *PolicyService) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	if err := s.validate(policy); err != nil {
		return err
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, policy.TenantID)
	return nil
}

// Update saves changes to a policy and invalidates the tenant cache.
// Existing ticket bindings keep their frozen snapshots; edits only govern
// tickets bound afterwards.
func (s *PolicyService) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	if err := s.validate(policy); err != nil {
		return err
	}
	if err := s.policies.Update(ctx, policy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("policy", map[string]any{"policy_id": policy.ID})
		}
		return err
	}
	s.cache.Invalidate(ctx, policy.TenantID)
	return nil
}

// Delete soft-disables a policy. Historical compliance records keep
// referencing it, so rows are never physically removed.
func (s *PolicyService) Delete(ctx context.Context, tenantID, id string) error {
	if err := s.policies.Deactivate(ctx, tenantID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("policy", map[string]any{"policy_id": id})
		}
		return err
	}
	s.cache.Invalidate(ctx, tenantID)
	return nil
}

// Get returns one policy.
func (s *PolicyService) Get(ctx context.Context, tenantID, id string) (*domain.SLAPolicy, error) {
	policy, err := s.policies.GetByID(ctx, tenantID, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("policy", map[string]any{"policy_id": id})
	}
	return policy, err
}

// List returns every policy of a tenant, active or not.
func (s *PolicyService) List(ctx context.Context, tenantID string) ([]domain.SLAPolicy, error) {
	return s.policies.ListAll(ctx, tenantID)
}

// ActivePolicies implements PolicyProvider, serving from cache when fresh.
func (s *PolicyService) ActivePolicies(ctx context.Context, tenantID string) ([]domain.SLAPolicy, error) {
	if cached, ok := s.cache.Get(ctx, tenantID); ok {
		return cached, nil
	}
	policies, err := s.policies.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, tenantID, policies)
	return policies, nil
}

// PolicyByID implements PolicyProvider. It serves soft-disabled policies
// too: frozen bindings still need their policy's calendar after
// deactivation.
func (s *PolicyService) PolicyByID(ctx context.Context, tenantID, policyID string) (*domain.SLAPolicy, error) {
	return s.policies.GetByID(ctx, tenantID, policyID)
}
