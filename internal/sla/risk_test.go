package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
)

func riskFixture(remaining time.Duration, priority domain.TicketPriority) (*domain.Ticket, *domain.TicketSLABinding, *domain.SLAPolicy, time.Time) {
	now := time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)
	due := now.Add(remaining)
	agent := "agent-1"

	ticket := &domain.Ticket{
		ID:         "t-1",
		Status:     domain.TicketStatusInProgress,
		Priority:   priority,
		AssigneeID: &agent,
		CreatedAt:  now.Add(-2 * time.Hour),
	}
	binding := &domain.TicketSLABinding{
		TicketID:                 "t-1",
		FirstResponseTargetHours: floatPtr(4),
		FirstResponseDue:         &due,
	}
	return ticket, binding, alwaysOnPolicy(), now
}

func TestPredictRiskLadder(t *testing.T) {
	cases := []struct {
		name        string
		remaining   time.Duration
		probability float64
		level       domain.RiskLevel
	}{
		{"overdue", -time.Hour, 1.0, domain.RiskLevelCritical},
		{"under one hour", 30 * time.Minute, 0.9, domain.RiskLevelCritical},
		{"exactly one hour", time.Hour, 0.7, domain.RiskLevelHigh},
		{"under four hours", 2 * time.Hour, 0.7, domain.RiskLevelHigh},
		{"under eight hours", 6 * time.Hour, 0.5, domain.RiskLevelMedium},
		{"under a day", 20 * time.Hour, 0.3, domain.RiskLevelLow},
		{"far out", 72 * time.Hour, 0.1, domain.RiskLevelLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket, binding, policy, now := riskFixture(tc.remaining, domain.TicketPriorityMedium)
			assessment, ok := PredictRisk(ticket, binding, policy, now, DefaultRiskConfig())
			require.True(t, ok)
			assert.InDelta(t, tc.probability, assessment.Probability, 1e-9)
			assert.Equal(t, tc.level, assessment.Level)
			assert.Equal(t, domain.MetricFirstResponse, assessment.Metric)
		})
	}
}

func TestPredictRiskAdjustments(t *testing.T) {
	t.Run("urgent priority boosts", func(t *testing.T) {
		ticket, binding, policy, now := riskFixture(6*time.Hour, domain.TicketPriorityUrgent)
		assessment, ok := PredictRisk(ticket, binding, policy, now, DefaultRiskConfig())
		require.True(t, ok)
		assert.InDelta(t, 0.7, assessment.Probability, 1e-9)
		assert.Equal(t, domain.RiskLevelHigh, assessment.Level)
	})

	t.Run("unassigned open ticket boosts", func(t *testing.T) {
		ticket, binding, policy, now := riskFixture(6*time.Hour, domain.TicketPriorityMedium)
		ticket.AssigneeID = nil
		assessment, ok := PredictRisk(ticket, binding, policy, now, DefaultRiskConfig())
		require.True(t, ok)
		assert.InDelta(t, 0.7, assessment.Probability, 1e-9)
	})

	t.Run("waiting on customer discounts", func(t *testing.T) {
		ticket, binding, policy, now := riskFixture(6*time.Hour, domain.TicketPriorityMedium)
		ticket.Status = domain.TicketStatusWaitingOnCustomer
		assessment, ok := PredictRisk(ticket, binding, policy, now, DefaultRiskConfig())
		require.True(t, ok)
		assert.InDelta(t, 0.4, assessment.Probability, 1e-9)
	})

	t.Run("clamped to one", func(t *testing.T) {
		ticket, binding, policy, now := riskFixture(30*time.Minute, domain.TicketPriorityUrgent)
		ticket.AssigneeID = nil
		assessment, ok := PredictRisk(ticket, binding, policy, now, DefaultRiskConfig())
		require.True(t, ok)
		assert.InDelta(t, 1.0, assessment.Probability, 1e-9)
	})

	t.Run("clamped to zero", func(t *testing.T) {
		ticket, binding, policy, now := riskFixture(72*time.Hour, domain.TicketPriorityLow)
		ticket.Status = domain.TicketStatusWaitingOnCustomer
		assessment, ok := PredictRisk(ticket, binding, policy, now, DefaultRiskConfig())
		require.True(t, ok)
		assert.Zero(t, assessment.Probability)
		assert.Equal(t, domain.RiskLevelLow, assessment.Level)
	})
}

func TestPredictRiskPicksNearerPendingDeadline(t *testing.T) {
	ticket, binding, policy, now := riskFixture(6*time.Hour, domain.TicketPriorityMedium)
	soon := now.Add(2 * time.Hour)
	binding.ResolutionTargetHours = floatPtr(8)
	binding.ResolutionDue = &soon

	assessment, ok := PredictRisk(ticket, binding, policy, now, DefaultRiskConfig())
	require.True(t, ok)
	assert.Equal(t, domain.MetricResolution, assessment.Metric)
	assert.InDelta(t, 2, assessment.RemainingHours, 1e-9)
}

func TestPredictRiskSkipsSettledMetrics(t *testing.T) {
	ticket, binding, policy, now := riskFixture(6*time.Hour, domain.TicketPriorityMedium)
	metAt := now.Add(-time.Hour)
	binding.FirstResponseMetAt = &metAt

	_, ok := PredictRisk(ticket, binding, policy, now, DefaultRiskConfig())
	assert.False(t, ok)
}

func TestPredictRiskBusinessHoursRemaining(t *testing.T) {
	policy := businessHoursPolicy()
	// Friday 16:00, due Monday 12:00: three wall-clock days away, but only
	// four effective hours remain.
	now := time.Date(2025, 3, 7, 16, 0, 0, 0, time.UTC)
	due := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	agent := "agent-1"

	ticket := &domain.Ticket{
		ID:         "t-1",
		Status:     domain.TicketStatusInProgress,
		Priority:   domain.TicketPriorityMedium,
		AssigneeID: &agent,
		CreatedAt:  now,
	}
	binding := &domain.TicketSLABinding{
		TicketID:                 "t-1",
		FirstResponseTargetHours: floatPtr(4),
		FirstResponseDue:         &due,
	}

	assessment, ok := PredictRisk(ticket, binding, policy, now, DefaultRiskConfig())
	require.True(t, ok)
	assert.InDelta(t, 4, assessment.RemainingHours, 1e-9)
	assert.InDelta(t, 0.5, assessment.Probability, 1e-9)
}

func TestPredictRiskRecommendsActions(t *testing.T) {
	ticket, binding, policy, now := riskFixture(30*time.Minute, domain.TicketPriorityMedium)
	ticket.AssigneeID = nil

	assessment, ok := PredictRisk(ticket, binding, policy, now, DefaultRiskConfig())
	require.True(t, ok)
	assert.Equal(t, domain.RiskLevelCritical, assessment.Level)
	assert.NotEmpty(t, assessment.Actions)
	assert.Contains(t, assessment.Actions[0], "assign")
}
