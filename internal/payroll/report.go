package payroll

import "zenflow/internal/domain"

// ReportItem is one task line in the payments report.
type ReportItem struct {
	Task   domain.Task `json:"task"`
	Reward float64     `json:"reward"`
	Paid   bool        `json:"paid"`
}

// Report summarises rewards for the resolved scope. Earned is rewards on DONE tasks; Pending
// is everything else, including tasks that have not started.
type Report struct {
	TargetID     string       `json:"target_id"`
	All          bool         `json:"all"`
	EarnedTotal  float64      `json:"earned_total"`
	PendingTotal float64      `json:"pending_total"`
	TaskCount    int          `json:"task_count"`
	Items        []ReportItem `json:"items"`
}

// BuildReport folds the reward rules over a snapshot. An unknown target yields an empty report;
// a known target other than the requester is reported only to admins.
func BuildReport(tasks []domain.Task, users []domain.User, req Requester, filter string) Report {
	scope := ResolveScope(req, filter)
	rep := Report{TargetID: scope.TargetID, All: scope.All, Items: []ReportItem{}}

	var target domain.User
	if !scope.All {
		u, ok := domain.FindUser(users, scope.TargetID)
		if !ok {
			return rep
		}
		if u.ID != req.ID && !CanViewOrgTotals(req.Role) {
			// Managers may name anyone but only see their own payouts.
			rep.TargetID = req.ID
			if u, ok = domain.FindUser(users, req.ID); !ok {
				return rep
			}
		}
		target = u
	}

	for _, t := range tasks {
		var reward float64
		if scope.All {
			reward = OrgReward(t)
		} else {
			if t.AssignedTo != target.ID && t.CreatedBy != target.ID {
				continue
			}
			reward = RewardFor(t, target)
		}
		paid := t.Status == domain.TaskDone
		if paid {
			rep.EarnedTotal += reward
		} else {
			rep.PendingTotal += reward
		}
		rep.TaskCount++
		item := ReportItem{Task: t, Reward: reward, Paid: paid}
		if !CanViewBudget(req.Role) {
			item.Task = hideBudget(t)
		}
		rep.Items = append(rep.Items, item)
	}
	return rep
}
