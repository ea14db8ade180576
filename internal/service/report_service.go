package service

import (
	"context"
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// ReportService is the metrics aggregator: it rolls compliance state up
// over a time window, combining immutable records for resolved tickets with
// live binding state for open ones. Pending metrics and unbound tickets
// never enter a rate denominator.
type ReportService struct {
	reports repository.ReportRepository
}

// NewReportService constructs the service.
func NewReportService(reports repository.ReportRepository) *ReportService {
	return &ReportService{reports: reports}
}

// Compliance returns the overall roll-up for a tenant and window.
func (s *ReportService) Compliance(ctx context.Context, tenantID string, start, end time.Time, filter repository.ReportFilter) (*domain.ComplianceReport, error) {
	if !end.After(start) {
		return nil, apperrors.NewValidationError("period end must be after start", nil)
	}

	totals, err := s.reports.Totals(ctx, tenantID, start, end, filter)
	if err != nil {
		return nil, err
	}

	report := &domain.ComplianceReport{
		TenantID:     tenantID,
		PeriodStart:  start,
		PeriodEnd:    end,
		TotalTickets: totals.Tickets,
		FirstResponse: domain.MetricSummary{
			Met:      totals.FirstResponseMet,
			Breached: totals.FirstResponseBreached,
		},
		Resolution: domain.MetricSummary{
			Met:      totals.ResolutionMet,
			Breached: totals.ResolutionBreached,
		},
	}
	report.FirstResponse.Recalculate()
	report.Resolution.Recalculate()
	return report, nil
}

// ComplianceGrouped returns per-bucket roll-ups keyed by agent, customer,
// policy, or calendar month.
func (s *ReportService) ComplianceGrouped(ctx context.Context, tenantID string, start, end time.Time, filter repository.ReportFilter, groupBy repository.ReportGroupBy) ([]domain.ComplianceGroup, error) {
	if !end.After(start) {
		return nil, apperrors.NewValidationError("period end must be after start", nil)
	}

	buckets, err := s.reports.GroupedTotals(ctx, tenantID, start, end, filter, groupBy)
	if err != nil {
		return nil, err
	}

	groups := make([]domain.ComplianceGroup, 0, len(buckets))
	for _, bucket := range buckets {
		group := domain.ComplianceGroup{
			Key:          bucket.Key,
			TotalTickets: bucket.Tickets,
			FirstResponse: domain.MetricSummary{
				Met:      bucket.FirstResponseMet,
				Breached: bucket.FirstResponseBreached,
			},
			Resolution: domain.MetricSummary{
				Met:      bucket.ResolutionMet,
				Breached: bucket.ResolutionBreached,
			},
		}
		group.FirstResponse.Recalculate()
		group.Resolution.Recalculate()
		groups = append(groups, group)
	}
	return groups, nil
}
