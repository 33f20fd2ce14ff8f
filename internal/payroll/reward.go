// Package payroll computes task rewards and the payments report. Everything here is pure:
// it reads an in-memory snapshot and never blocks or fails.
package payroll

import "zenflow/internal/domain"

// AllUsers is the report filter for organization-wide totals.
const AllUsers = "ALL"

// Requester is the authenticated caller as seen by the payroll engine.
type Requester struct {
	ID   string
	Role domain.Role
}

// AssigneeRate returns the performer percentage that applies to an assignee with role.
func AssigneeRate(t domain.Task, role domain.Role) float64 {
	switch role {
	case domain.RoleSeniorPerformer:
		return t.SeniorPerformerRate
	case domain.RolePerformer, domain.RoleManager, domain.RoleAdmin:
		return t.PerformerRate
	default:
		return t.PerformerRate
	}
}

// RewardFor is the amount participant is owed for t. A manager who created and is assigned
// the same task collects both cuts.
func RewardFor(t domain.Task, participant domain.User) float64 {
	var reward float64
	if t.AssignedTo == participant.ID {
		reward += t.Cost * AssigneeRate(t, participant.Role) / 100
	}
	if t.CreatedBy == participant.ID && participant.Role == domain.RoleManager {
		reward += t.Cost * t.ManagerRate / 100
	}
	return reward
}

// OrgReward is the total payroll obligation for t regardless of who is assigned.
func OrgReward(t domain.Task) float64 {
	return t.Cost * (t.ManagerRate + t.PerformerRate + t.SeniorPerformerRate) / 100
}
