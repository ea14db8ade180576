package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// PolicyRepository encapsulates SLA policy persistence.
type PolicyRepository interface {
	Create(ctx context.Context, policy *domain.SLAPolicy) error
	Update(ctx context.Context, policy *domain.SLAPolicy) error
	Deactivate(ctx context.Context, tenantID, id string) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.SLAPolicy, error)
	// ListActive returns the tenant's active policies in creation order,
	// the order policy resolution scans them in.
	ListActive(ctx context.Context, tenantID string) ([]domain.SLAPolicy, error)
	ListAll(ctx context.Context, tenantID string) ([]domain.SLAPolicy, error)
}

type policyRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyRepository instantiates repository.
func NewPolicyRepository(pool *pgxpool.Pool) PolicyRepository {
	return &policyRepository{pool: pool}
}

const policyColumns = `id, tenant_id, name, label, first_response_hours, resolution_hours,
       first_response_overrides, resolution_overrides, is_24x7, business_hours_start,
       business_hours_end, business_days, timezone, warning_percent, critical_percent,
       auto_escalate, filter_priority, filter_ticket_type, filter_customer_ids,
       filter_contract_type, is_active, is_default, created_at, updated_at`

func (r *policyRepository) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if policy.IsDefault {
			if err := clearDefault(ctx, tx, policy.TenantID); err != nil {
				return err
			}
		}
		const query = `
        INSERT INTO sla_policies (tenant_id, name, label, first_response_hours, resolution_hours,
            first_response_overrides, resolution_overrides, is_24x7, business_hours_start,
            business_hours_end, business_days, timezone, warning_percent, critical_percent,
            auto_escalate, filter_priority, filter_ticket_type, filter_customer_ids,
            filter_contract_type, is_active, is_default)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
        RETURNING id, created_at, updated_at`
		return tx.QueryRow(ctx, query,
			policy.TenantID,
			policy.Name,
			policy.Label,
			policy.FirstResponseHours,
			policy.ResolutionHours,
			policy.FirstResponseOverrides,
			policy.ResolutionOverrides,
			policy.Is24x7,
			policy.BusinessHoursStart,
			policy.BusinessHoursEnd,
			weekdaysToInts(policy.BusinessDays),
			policy.Timezone,
			policy.WarningPercent,
			policy.CriticalPercent,
			policy.AutoEscalate,
			policy.FilterPriority,
			policy.FilterTicketType,
			policy.FilterCustomerIDs,
			policy.FilterContractType,
			policy.IsActive,
			policy.IsDefault,
		).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
	})
}

func (r *policyRepository) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if policy.IsDefault {
			if err := clearDefault(ctx, tx, policy.TenantID); err != nil {
				return err
			}
		}
		const query = `
        UPDATE sla_policies SET name=$1, label=$2, first_response_hours=$3, resolution_hours=$4,
            first_response_overrides=$5, resolution_overrides=$6, is_24x7=$7,
            business_hours_start=$8, business_hours_end=$9, business_days=$10, timezone=$11,
            warning_percent=$12, critical_percent=$13, auto_escalate=$14, filter_priority=$15,
            filter_ticket_type=$16, filter_customer_ids=$17, filter_contract_type=$18,
            is_active=$19, is_default=$20, updated_at=NOW()
        WHERE id=$21 AND tenant_id=$22`
		cmd, err := tx.Exec(ctx, query,
			policy.Name,
			policy.Label,
			policy.FirstResponseHours,
			policy.ResolutionHours,
			policy.FirstResponseOverrides,
			policy.ResolutionOverrides,
			policy.Is24x7,
			policy.BusinessHoursStart,
			policy.BusinessHoursEnd,
			weekdaysToInts(policy.BusinessDays),
			policy.Timezone,
			policy.WarningPercent,
			policy.CriticalPercent,
			policy.AutoEscalate,
			policy.FilterPriority,
			policy.FilterTicketType,
			policy.FilterCustomerIDs,
			policy.FilterContractType,
			policy.IsActive,
			policy.IsDefault,
			policy.ID,
			policy.TenantID,
		)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}

// clearDefault drops the default flag from any other policy of the tenant so
// the partial unique index never rejects the write.
func clearDefault(ctx context.Context, tx pgx.Tx, tenantID string) error {
	_, err := tx.Exec(ctx, `UPDATE sla_policies SET is_default=FALSE, updated_at=NOW() WHERE tenant_id=$1 AND is_default`, tenantID)
	return err
}

// Deactivate soft-disables a policy. Policies referenced by historical
// compliance records are never physically deleted.
func (r *policyRepository) Deactivate(ctx context.Context, tenantID, id string) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE sla_policies SET is_active=FALSE, is_default=FALSE, updated_at=NOW() WHERE id=$1 AND tenant_id=$2`,
		id, tenantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *policyRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.SLAPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE id=$1 AND tenant_id=$2`
	row := r.pool.QueryRow(ctx, query, id, tenantID)
	return scanPolicy(row)
}

func (r *policyRepository) ListActive(ctx context.Context, tenantID string) ([]domain.SLAPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE tenant_id=$1 AND is_active ORDER BY created_at ASC`
	return r.list(ctx, query, tenantID)
}

func (r *policyRepository) ListAll(ctx context.Context, tenantID string) ([]domain.SLAPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE tenant_id=$1 ORDER BY created_at ASC`
	return r.list(ctx, query, tenantID)
}

func (r *policyRepository) list(ctx context.Context, query, tenantID string) ([]domain.SLAPolicy, error) {
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *policy)
	}
	return result, rows.Err()
}

func scanPolicy(row pgx.Row) (*domain.SLAPolicy, error) {
	var policy domain.SLAPolicy
	var days []int16
	if err := row.Scan(
		&policy.ID,
		&policy.TenantID,
		&policy.Name,
		&policy.Label,
		&policy.FirstResponseHours,
		&policy.ResolutionHours,
		&policy.FirstResponseOverrides,
		&policy.ResolutionOverrides,
		&policy.Is24x7,
		&policy.BusinessHoursStart,
		&policy.BusinessHoursEnd,
		&days,
		&policy.Timezone,
		&policy.WarningPercent,
		&policy.CriticalPercent,
		&policy.AutoEscalate,
		&policy.FilterPriority,
		&policy.FilterTicketType,
		&policy.FilterCustomerIDs,
		&policy.FilterContractType,
		&policy.IsActive,
		&policy.IsDefault,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	policy.BusinessDays = intsToWeekdays(days)
	return &policy, nil
}

func weekdaysToInts(days []time.Weekday) []int16 {
	result := make([]int16, 0, len(days))
	for _, d := range days {
		result = append(result, int16(d))
	}
	return result
}

func intsToWeekdays(days []int16) []time.Weekday {
	result := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		result = append(result, time.Weekday(d))
	}
	return result
}
