package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/repository"
)

type fakeReportRepo struct {
	totals  repository.ComplianceTotals
	grouped []repository.GroupedTotals
}

func (r *fakeReportRepo) Totals(_ context.Context, _ string, _, _ time.Time, _ repository.ReportFilter) (repository.ComplianceTotals, error) {
	return r.totals, nil
}

func (r *fakeReportRepo) GroupedTotals(_ context.Context, _ string, _, _ time.Time, _ repository.ReportFilter, _ repository.ReportGroupBy) ([]repository.GroupedTotals, error) {
	return r.grouped, nil
}

func TestComplianceReportRates(t *testing.T) {
	repo := &fakeReportRepo{totals: repository.ComplianceTotals{
		Tickets:               10,
		FirstResponseMet:      8,
		FirstResponseBreached: 2,
		ResolutionMet:         3,
		ResolutionBreached:    1,
	}}
	svc := NewReportService(repo)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	report, err := svc.Compliance(context.Background(), "tenant-1", start, end, repository.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 10, report.TotalTickets)
	assert.InDelta(t, 80, report.FirstResponse.Rate, 1e-9)
	assert.InDelta(t, 75, report.Resolution.Rate, 1e-9)
}

func TestComplianceReportEmptyWindow(t *testing.T) {
	svc := NewReportService(&fakeReportRepo{})

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	report, err := svc.Compliance(context.Background(), "tenant-1", start, start.AddDate(0, 1, 0), repository.ReportFilter{})
	require.NoError(t, err)

	// No exercised commitments means nothing was missed.
	assert.Zero(t, report.TotalTickets)
	assert.InDelta(t, 100, report.FirstResponse.Rate, 1e-9)
	assert.InDelta(t, 100, report.Resolution.Rate, 1e-9)
}

func TestComplianceReportRejectsInvertedWindow(t *testing.T) {
	svc := NewReportService(&fakeReportRepo{})
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Compliance(context.Background(), "tenant-1", start, start, repository.ReportFilter{})
	assert.Error(t, err)

	_, err = svc.ComplianceGrouped(context.Background(), "tenant-1", start, start.Add(-time.Hour), repository.ReportFilter{}, repository.GroupByAgent)
	assert.Error(t, err)
}

func TestComplianceGrouped(t *testing.T) {
	repo := &fakeReportRepo{grouped: []repository.GroupedTotals{
		{Key: "agent-1", ComplianceTotals: repository.ComplianceTotals{
			Tickets: 4, FirstResponseMet: 4, ResolutionMet: 2, ResolutionBreached: 2,
		}},
		{Key: "unassigned", ComplianceTotals: repository.ComplianceTotals{
			Tickets: 1, FirstResponseBreached: 1,
		}},
	}}
	svc := NewReportService(repo)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	groups, err := svc.ComplianceGrouped(context.Background(), "tenant-1", start, start.AddDate(0, 1, 0), repository.ReportFilter{}, repository.GroupByAgent)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "agent-1", groups[0].Key)
	assert.InDelta(t, 100, groups[0].FirstResponse.Rate, 1e-9)
	assert.InDelta(t, 50, groups[0].Resolution.Rate, 1e-9)

	assert.Equal(t, "unassigned", groups[1].Key)
	assert.InDelta(t, 0, groups[1].FirstResponse.Rate, 1e-9)
	assert.InDelta(t, 100, groups[1].Resolution.Rate, 1e-9)
}
