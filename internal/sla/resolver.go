package sla

import "github.com/spec-kit/servicedesk/internal/domain"

// ResolvePolicy selects the policy governing a ticket: the first active
// policy whose applicability filter matches the ticket context, scanning in
// the order the caller provides (creation order from storage). More specific
// policies are expected to be listed before general ones by administrative
// ordering; the resolver never re-sorts, keeping tie-break behavior fully
// auditable from the policy list itself.
//
// Returns nil when nothing matches: the ticket stays unbound and no fallback
// policy is invented. When two structurally identical policies both match,
// the first one wins; this is a documented ambiguity, not a silent
// most-recent-wins rule.
func ResolvePolicy(policies []domain.SLAPolicy, ctx domain.TicketContext) *domain.SLAPolicy {
	for i := range policies {
		if !policies[i].IsActive {
			continue
		}
		if policies[i].Matches(ctx) {
			return &policies[i]
		}
	}
	return nil
}
