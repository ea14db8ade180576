package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// AlertFilter narrows alert listings.
type AlertFilter struct {
	TicketID     *string
	Acknowledged *bool
	Level        *domain.AlertLevel
	Limit        int
	Offset       int
}

// AlertRepository persists breach alerts with idempotent upsert semantics.
type AlertRepository interface {
	// Upsert inserts a new unacknowledged alert for (ticket, breach type) or
	// updates the existing one, as a single atomic statement. An update only
	// escalates: warning upgrades to critical, and a same-level alert with a
	// higher breach percent refreshes in place so the final overrun lands on
	// an alert that already reached critical while pending. It reports
	// whether the store changed; downgrades and stale percents are no-ops.
	// This is what keeps concurrent evaluations of one ticket from producing
	// duplicate alerts.
	Upsert(ctx context.Context, alert *domain.SLABreachAlert) (bool, error)
	GetByID(ctx context.Context, tenantID, id string) (*domain.SLABreachAlert, error)
	List(ctx context.Context, tenantID string, filter AlertFilter) ([]domain.SLABreachAlert, error)
	// Acknowledge flips the one-way acknowledged flag. Acknowledging an
	// already-acknowledged alert returns it unchanged.
	Acknowledge(ctx context.Context, tenantID, id, userID string) (*domain.SLABreachAlert, error)
}

type alertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository instantiates repository.
func NewAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &alertRepository{pool: pool}
}

const alertColumns = `id, tenant_id, ticket_id, policy_id, breach_type, breach_percent,
       alert_level, acknowledged, acknowledged_by, acknowledged_at, created_at, updated_at`

func (r *alertRepository) Upsert(ctx context.Context, alert *domain.SLABreachAlert) (bool, error) {
	const query = `
        INSERT INTO sla_breach_alerts (tenant_id, ticket_id, policy_id, breach_type, breach_percent, alert_level)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (ticket_id, breach_type) WHERE NOT acknowledged
        DO UPDATE SET
            alert_level=EXCLUDED.alert_level,
            breach_percent=EXCLUDED.breach_percent,
            updated_at=NOW()
        WHERE (sla_breach_alerts.alert_level='WARNING' AND EXCLUDED.alert_level='CRITICAL')
           OR (sla_breach_alerts.alert_level=EXCLUDED.alert_level
               AND EXCLUDED.breach_percent > sla_breach_alerts.breach_percent)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		alert.TenantID,
		alert.TicketID,
		alert.PolicyID,
		alert.BreachType,
		alert.BreachPercent,
		alert.Level,
	).Scan(&alert.ID, &alert.CreatedAt, &alert.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict with an existing alert that is neither below this level
		// nor behind this percent.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *alertRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.SLABreachAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM sla_breach_alerts WHERE id=$1 AND tenant_id=$2`
	return scanAlert(r.pool.QueryRow(ctx, query, id, tenantID))
}

func (r *alertRepository) List(ctx context.Context, tenantID string, filter AlertFilter) ([]domain.SLABreachAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM sla_breach_alerts WHERE tenant_id=$1`
	args := []any{tenantID}

	if filter.TicketID != nil {
		args = append(args, *filter.TicketID)
		query += fmt.Sprintf(" AND ticket_id=$%d", len(args))
	}
	if filter.Acknowledged != nil {
		args = append(args, *filter.Acknowledged)
		query += fmt.Sprintf(" AND acknowledged=$%d", len(args))
	}
	if filter.Level != nil {
		args = append(args, *filter.Level)
		query += fmt.Sprintf(" AND alert_level=$%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLABreachAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *alert)
	}
	return result, rows.Err()
}

func (r *alertRepository) Acknowledge(ctx context.Context, tenantID, id, userID string) (*domain.SLABreachAlert, error) {
	const query = `
        UPDATE sla_breach_alerts
        SET acknowledged=TRUE, acknowledged_by=$3, acknowledged_at=$4, updated_at=NOW()
        WHERE id=$1 AND tenant_id=$2 AND NOT acknowledged
        RETURNING ` + alertColumns
	alert, err := scanAlert(r.pool.QueryRow(ctx, query, id, tenantID, userID, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		// Already acknowledged, or missing entirely: return what exists.
		return r.GetByID(ctx, tenantID, id)
	}
	return alert, err
}

func scanAlert(row pgx.Row) (*domain.SLABreachAlert, error) {
	var alert domain.SLABreachAlert
	if err := row.Scan(
		&alert.ID,
		&alert.TenantID,
		&alert.TicketID,
		&alert.PolicyID,
		&alert.BreachType,
		&alert.BreachPercent,
		&alert.Level,
		&alert.Acknowledged,
		&alert.AcknowledgedBy,
		&alert.AcknowledgedAt,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &alert, nil
}
