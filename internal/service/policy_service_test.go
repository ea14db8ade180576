package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/persistence"
)

type fakePolicyRepo struct {
	mu       sync.Mutex
	seq      int
	policies []domain.SLAPolicy
}

func (r *fakePolicyRepo) Create(_ context.Context, policy *domain.SLAPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if policy.ID == "" {
		policy.ID = fmt.Sprintf("pol-%d", r.seq)
	}
	r.policies = append(r.policies, *policy)
	return nil
}

func (r *fakePolicyRepo) Update(_ context.Context, policy *domain.SLAPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.policies {
		if r.policies[i].ID == policy.ID && r.policies[i].TenantID == policy.TenantID {
			r.policies[i] = *policy
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakePolicyRepo) Deactivate(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.policies {
		if r.policies[i].ID == id && r.policies[i].TenantID == tenantID {
			r.policies[i].IsActive = false
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakePolicyRepo) GetByID(_ context.Context, tenantID, id string) (*domain.SLAPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.policies {
		if r.policies[i].ID == id && r.policies[i].TenantID == tenantID {
			copied := r.policies[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakePolicyRepo) ListActive(_ context.Context, tenantID string) ([]domain.SLAPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SLAPolicy
	for _, p := range r.policies {
		if p.TenantID == tenantID && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePolicyRepo) ListAll(_ context.Context, tenantID string) ([]domain.SLAPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SLAPolicy
	for _, p := range r.policies {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func newPolicyService(repo *fakePolicyRepo) *PolicyService {
	cfg := config.SLAConfig{DefaultWarningPercent: 80, DefaultCriticalPercent: 95}
	return NewPolicyService(repo, persistence.NewPolicyCache(nil, 0), zap.NewNop(), cfg)
}

func validBusinessPolicy() *domain.SLAPolicy {
	return &domain.SLAPolicy{
		TenantID:           "tenant-1",
		Name:               "business-hours",
		FirstResponseHours: fptr(4),
		ResolutionHours:    fptr(40),
		BusinessHoursStart: "09:00",
		BusinessHoursEnd:   "17:00",
		BusinessDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		Timezone: "UTC",
		IsActive: true,
	}
}

func TestPolicyCreateAppliesThresholdDefaults(t *testing.T) {
	repo := &fakePolicyRepo{}
	svc := newPolicyService(repo)

	policy := &domain.SLAPolicy{
		TenantID:           "tenant-1",
		Name:               "always-on",
		Is24x7:             true,
		FirstResponseHours: fptr(4),
		IsActive:           true,
	}
	require.NoError(t, svc.Create(context.Background(), policy))
	assert.Equal(t, 80.0, policy.WarningPercent)
	assert.Equal(t, 95.0, policy.CriticalPercent)
}

func TestPolicyCreateRejectsBadInput(t *testing.T) {
	repo := &fakePolicyRepo{}
	svc := newPolicyService(repo)

	cases := []struct {
		name   string
		mutate func(*domain.SLAPolicy)
	}{
		{"missing name", func(p *domain.SLAPolicy) { p.Name = "" }},
		{"unknown timezone", func(p *domain.SLAPolicy) { p.Timezone = "Mars/Olympus" }},
		{"bad start clock", func(p *domain.SLAPolicy) { p.BusinessHoursStart = "9am" }},
		{"bad end clock", func(p *domain.SLAPolicy) { p.BusinessHoursEnd = "25:00" }},
		{"critical below warning", func(p *domain.SLAPolicy) {
			p.WarningPercent = 90
			p.CriticalPercent = 70
		}},
		{"bad override priority", func(p *domain.SLAPolicy) {
			p.FirstResponseOverrides = map[domain.TicketPriority]float64{"SEVERE": 1}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy := validBusinessPolicy()
			tc.mutate(policy)
			assert.Error(t, svc.Create(context.Background(), policy))
		})
	}
}

func TestPolicyUpdateUnknownID(t *testing.T) {
	repo := &fakePolicyRepo{}
	svc := newPolicyService(repo)

	policy := validBusinessPolicy()
	policy.ID = "missing"
	assert.Error(t, svc.Update(context.Background(), policy))
}

func TestPolicyDeleteSoftDisables(t *testing.T) {
	repo := &fakePolicyRepo{}
	svc := newPolicyService(repo)

	policy := validBusinessPolicy()
	require.NoError(t, svc.Create(context.Background(), policy))
	require.NoError(t, svc.Delete(context.Background(), "tenant-1", policy.ID))

	// Gone from resolution, still reachable by id for frozen bindings.
	active, err := svc.ActivePolicies(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Empty(t, active)

	kept, err := svc.PolicyByID(context.Background(), "tenant-1", policy.ID)
	require.NoError(t, err)
	assert.False(t, kept.IsActive)
}
