package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportFilter narrows compliance aggregation.
type ReportFilter struct {
	PolicyID   *string
	AgentID    *string
	CustomerID *string
}

// ReportGroupBy selects the bucket key for grouped compliance reports.
type ReportGroupBy string

const (
	GroupByAgent    ReportGroupBy = "agent"
	GroupByCustomer ReportGroupBy = "customer"
	GroupByPolicy   ReportGroupBy = "policy"
	GroupByPeriod   ReportGroupBy = "period"
)

// ComplianceTotals carries raw met/breached counts for one bucket.
type ComplianceTotals struct {
	Tickets               int
	FirstResponseMet      int
	FirstResponseBreached int
	ResolutionMet         int
	ResolutionBreached    int
}

// GroupedTotals is one bucket of a grouped aggregation.
type GroupedTotals struct {
	Key string
	ComplianceTotals
}

// ReportRepository aggregates compliance state. Closed tickets come from the
// immutable sla_compliance_records snapshots; open tickets contribute their
// live binding state, so the report covers the complete picture. Unbound
// tickets appear in neither source and never inflate rate denominators.
type ReportRepository interface {
	Totals(ctx context.Context, tenantID string, start, end time.Time, filter ReportFilter) (ComplianceTotals, error)
	GroupedTotals(ctx context.Context, tenantID string, start, end time.Time, filter ReportFilter, groupBy ReportGroupBy) ([]GroupedTotals, error)
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository instantiates repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

const combinedComplianceCTE = `
    WITH combined AS (
        SELECT r.policy_id::text AS policy_id,
               t.assignee_agent_id::text AS agent_id,
               t.customer_id::text AS customer_id,
               r.period_end AS occurred_at,
               r.first_response_met AS fr_met,
               r.first_response_breached AS fr_breached,
               r.resolution_met AS res_met,
               r.resolution_breached AS res_breached
        FROM sla_compliance_records r
        JOIN tickets t ON t.id = r.ticket_id
        WHERE r.tenant_id=$1 AND r.period_end >= $2 AND r.period_end < $3
        UNION ALL
        SELECT b.policy_id::text,
               t.assignee_agent_id::text,
               t.customer_id::text,
               t.created_at,
               b.first_response_met_at IS NOT NULL,
               b.first_response_breached_at IS NOT NULL,
               b.resolution_met_at IS NOT NULL,
               b.resolution_breached_at IS NOT NULL
        FROM ticket_sla_bindings b
        JOIN tickets t ON t.id = b.ticket_id
        WHERE b.tenant_id=$1 AND t.resolved_at IS NULL
          AND t.created_at >= $2 AND t.created_at < $3
    )`

func reportFilterClause(filter ReportFilter, args *[]any) string {
	clause := ""
	if filter.PolicyID != nil {
		*args = append(*args, *filter.PolicyID)
		clause += fmt.Sprintf(" AND policy_id=$%d", len(*args))
	}
	if filter.AgentID != nil {
		*args = append(*args, *filter.AgentID)
		clause += fmt.Sprintf(" AND agent_id=$%d", len(*args))
	}
	if filter.CustomerID != nil {
		*args = append(*args, *filter.CustomerID)
		clause += fmt.Sprintf(" AND customer_id=$%d", len(*args))
	}
	return clause
}

func (r *reportRepository) Totals(ctx context.Context, tenantID string, start, end time.Time, filter ReportFilter) (ComplianceTotals, error) {
	args := []any{tenantID, start, end}
	query := combinedComplianceCTE + `
        SELECT count(*),
               count(*) FILTER (WHERE fr_met),
               count(*) FILTER (WHERE fr_breached),
               count(*) FILTER (WHERE res_met),
               count(*) FILTER (WHERE res_breached)
        FROM combined WHERE TRUE` + reportFilterClause(filter, &args)

	var totals ComplianceTotals
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&totals.Tickets,
		&totals.FirstResponseMet,
		&totals.FirstResponseBreached,
		&totals.ResolutionMet,
		&totals.ResolutionBreached,
	)
	return totals, err
}

// groupKeyExpr maps the group dimension to a SQL expression over the CTE.
// Keys come from this closed map, never from request input.
var groupKeyExpr = map[ReportGroupBy]string{
	GroupByAgent:    `COALESCE(agent_id, 'unassigned')`,
	GroupByCustomer: `customer_id`,
	GroupByPolicy:   `policy_id`,
	GroupByPeriod:   `to_char(date_trunc('month', occurred_at), 'YYYY-MM')`,
}

func (r *reportRepository) GroupedTotals(ctx context.Context, tenantID string, start, end time.Time, filter ReportFilter, groupBy ReportGroupBy) ([]GroupedTotals, error) {
	keyExpr, ok := groupKeyExpr[groupBy]
	if !ok {
		return nil, fmt.Errorf("unsupported group dimension %q", groupBy)
	}

	args := []any{tenantID, start, end}
	query := combinedComplianceCTE + `
        SELECT ` + keyExpr + ` AS bucket,
               count(*),
               count(*) FILTER (WHERE fr_met),
               count(*) FILTER (WHERE fr_breached),
               count(*) FILTER (WHERE res_met),
               count(*) FILTER (WHERE res_breached)
        FROM combined WHERE TRUE` + reportFilterClause(filter, &args) + `
        GROUP BY bucket ORDER BY bucket`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GroupedTotals
	for rows.Next() {
		var group GroupedTotals
		if err := rows.Scan(
			&group.Key,
			&group.Tickets,
			&group.FirstResponseMet,
			&group.FirstResponseBreached,
			&group.ResolutionMet,
			&group.ResolutionBreached,
		); err != nil {
			return nil, err
		}
		result = append(result, group)
	}
	return result, rows.Err()
}
