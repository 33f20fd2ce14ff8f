package payroll

import "zenflow/internal/domain"

// Scope is the resolved target of a payments view.
type Scope struct {
	// TargetID is a user id, or AllUsers for the organization view.
	TargetID string
	All      bool
}

// CanViewOrgTotals reports whether role may see organization-wide payroll.
func CanViewOrgTotals(role domain.Role) bool {
	switch role {
	case domain.RoleAdmin:
		return true
	case domain.RoleManager, domain.RoleSeniorPerformer, domain.RolePerformer:
		return false
	}
	return false
}

// CanChooseTarget reports whether role may name a report subject. Only admins get a
// subject other than themselves; see BuildReport.
func CanChooseTarget(role domain.Role) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleManager:
		return true
	case domain.RoleSeniorPerformer, domain.RolePerformer:
		return false
	}
	return false
}

// CanViewBudget reports whether role sees task cost and rate splits.
func CanViewBudget(role domain.Role) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleManager:
		return true
	case domain.RoleSeniorPerformer, domain.RolePerformer:
		return false
	}
	return false
}

// ResolveScope applies the visibility rules to a requested filter. Performers always get
// themselves. Only admins keep AllUsers; a manager asking for it gets their own view. An
// empty filter means AllUsers for admins and self for everyone else.
func ResolveScope(req Requester, filter string) Scope {
	if !CanChooseTarget(req.Role) {
		return Scope{TargetID: req.ID}
	}
	if filter == "" {
		filter = AllUsers
	}
	if filter == AllUsers {
		if CanViewOrgTotals(req.Role) {
			return Scope{TargetID: AllUsers, All: true}
		}
		return Scope{TargetID: req.ID}
	}
	return Scope{TargetID: filter}
}

// VisibleTasks filters tasks for a list view. Performers see only their assignments;
// projectID, when set, narrows the list for everyone.
func VisibleTasks(req Requester, tasks []domain.Task, projectID string) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if projectID != "" && t.ProjectID != projectID {
			continue
		}
		if req.Role.IsPerformer() && t.AssignedTo != req.ID {
			continue
		}
		out = append(out, t)
	}
	return out
}

// CanViewTask reports whether req may open t directly.
func CanViewTask(req Requester, t domain.Task) bool {
	if req.Role.IsPerformer() {
		return t.AssignedTo == req.ID
	}
	return req.Role.Valid()
}

// TaskView is a task as shown to a particular requester.
type TaskView struct {
	domain.Task
	// Reward is the requester's own cut for the task.
	Reward float64 `json:"reward"`
	// BudgetHidden is set when cost and rates were blanked out.
	BudgetHidden bool `json:"budget_hidden,omitempty"`
}

// RedactTask returns t as req may see it. For roles without budget visibility the cost and the
// rate split are zeroed, leaving only the requester's own reward.
func RedactTask(req Requester, self domain.User, t domain.Task) TaskView {
	view := TaskView{Task: t, Reward: RewardFor(t, self)}
	if CanViewBudget(req.Role) {
		return view
	}
	view.Task = hideBudget(t)
	view.BudgetHidden = true
	return view
}

func hideBudget(t domain.Task) domain.Task {
	t.Cost = 0
	t.ManagerRate = 0
	t.PerformerRate = 0
	t.SeniorPerformerRate = 0
	return t
}
