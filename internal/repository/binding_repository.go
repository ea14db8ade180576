package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// BindingRepository persists frozen ticket-to-policy SLA bindings.
type BindingRepository interface {
	Upsert(ctx context.Context, binding *domain.TicketSLABinding) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.TicketSLABinding, error)
	// ListUnsettled returns bindings that still carry at least one pending
	// applicable metric, across all tenants; the sweep walks these.
	ListUnsettled(ctx context.Context, limit int) ([]domain.TicketSLABinding, error)
}

type bindingRepository struct {
	pool *pgxpool.Pool
}

// NewBindingRepository instantiates repository.
func NewBindingRepository(pool *pgxpool.Pool) BindingRepository {
	return &bindingRepository{pool: pool}
}

const bindingColumns = `ticket_id, tenant_id, policy_id, first_response_target_hours,
       resolution_target_hours, first_response_due, resolution_due, first_response_met_at,
       first_response_breached_at, resolution_met_at, resolution_breached_at, bound_at, updated_at`

const unsettledPredicate = `((first_response_due IS NOT NULL AND first_response_met_at IS NULL AND first_response_breached_at IS NULL)
        OR (resolution_due IS NOT NULL AND resolution_met_at IS NULL AND resolution_breached_at IS NULL))`

func (r *bindingRepository) Upsert(ctx context.Context, binding *domain.TicketSLABinding) error {
	const query = `
        INSERT INTO ticket_sla_bindings (ticket_id, tenant_id, policy_id,
            first_response_target_hours, resolution_target_hours, first_response_due,
            resolution_due, first_response_met_at, first_response_breached_at,
            resolution_met_at, resolution_breached_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (ticket_id) DO UPDATE SET
            policy_id=EXCLUDED.policy_id,
            first_response_target_hours=EXCLUDED.first_response_target_hours,
            resolution_target_hours=EXCLUDED.resolution_target_hours,
            first_response_due=EXCLUDED.first_response_due,
            resolution_due=EXCLUDED.resolution_due,
            first_response_met_at=EXCLUDED.first_response_met_at,
            first_response_breached_at=EXCLUDED.first_response_breached_at,
            resolution_met_at=EXCLUDED.resolution_met_at,
            resolution_breached_at=EXCLUDED.resolution_breached_at,
            updated_at=NOW()
        RETURNING bound_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		binding.TicketID,
		binding.TenantID,
		binding.PolicyID,
		binding.FirstResponseTargetHours,
		binding.ResolutionTargetHours,
		binding.FirstResponseDue,
		binding.ResolutionDue,
		binding.FirstResponseMetAt,
		binding.FirstResponseBreachedAt,
		binding.ResolutionMetAt,
		binding.ResolutionBreachedAt,
	).Scan(&binding.BoundAt, &binding.UpdatedAt)
}

func (r *bindingRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.TicketSLABinding, error) {
	query := `SELECT ` + bindingColumns + ` FROM ticket_sla_bindings WHERE ticket_id=$1`
	return scanBinding(r.pool.QueryRow(ctx, query, ticketID))
}

func (r *bindingRepository) ListUnsettled(ctx context.Context, limit int) ([]domain.TicketSLABinding, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `SELECT ` + bindingColumns + ` FROM ticket_sla_bindings
        WHERE ` + unsettledPredicate + ` ORDER BY bound_at ASC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketSLABinding
	for rows.Next() {
		binding, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *binding)
	}
	return result, rows.Err()
}

func scanBinding(row pgx.Row) (*domain.TicketSLABinding, error) {
	var binding domain.TicketSLABinding
	if err := row.Scan(
		&binding.TicketID,
		&binding.TenantID,
		&binding.PolicyID,
		&binding.FirstResponseTargetHours,
		&binding.ResolutionTargetHours,
		&binding.FirstResponseDue,
		&binding.ResolutionDue,
		&binding.FirstResponseMetAt,
		&binding.FirstResponseBreachedAt,
		&binding.ResolutionMetAt,
		&binding.ResolutionBreachedAt,
		&binding.BoundAt,
		&binding.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &binding, nil
}
