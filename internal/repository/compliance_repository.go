package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// ComplianceRepository persists immutable historical compliance snapshots.
type ComplianceRepository interface {
	// Insert writes the snapshot taken when a ticket resolves. Records are
	// append-only; a second snapshot for the same ticket is silently dropped
	// so concurrent evaluations of the resolving ticket stay idempotent.
	Insert(ctx context.Context, record *domain.SLAComplianceRecord) error
}

type complianceRepository struct {
	pool *pgxpool.Pool
}

// NewComplianceRepository instantiates repository.
func NewComplianceRepository(pool *pgxpool.Pool) ComplianceRepository {
	return &complianceRepository{pool: pool}
}

func (r *complianceRepository) Insert(ctx context.Context, record *domain.SLAComplianceRecord) error {
	const query = `
        INSERT INTO sla_compliance_records (tenant_id, ticket_id, policy_id, period_start,
            period_end, actual_first_response_hours, actual_resolution_hours,
            first_response_met, first_response_breached, resolution_met, resolution_breached)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (ticket_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query,
		record.TenantID,
		record.TicketID,
		record.PolicyID,
		record.PeriodStart,
		record.PeriodEnd,
		record.ActualFirstResponseHours,
		record.ActualResolutionHours,
		record.FirstResponseMet,
		record.FirstResponseBreached,
		record.ResolutionMet,
		record.ResolutionBreached,
	)
	return err
}
