package domain

import "time"

// AgentRole enumerates operator roles within a tenant.
type AgentRole string

const (
	AgentRoleAgent AgentRole = "AGENT"
	AgentRoleAdmin AgentRole = "ADMIN"
)

// Agent models a tenant-scoped support agent or administrator.
type Agent struct {
	ID           string
	TenantID     string
	Name         string
	Email        string
	PasswordHash string
	Role         AgentRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
