package payroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenflow/internal/domain"
)

var (
	admin   = domain.User{ID: "u1", Role: domain.RoleAdmin}
	manager = domain.User{ID: "u2", Role: domain.RoleManager}
	ivan    = domain.User{ID: "u3", Role: domain.RolePerformer}
	elena   = domain.User{ID: "u4", Role: domain.RolePerformer}
	senior  = domain.User{ID: "u5", Role: domain.RoleSeniorPerformer}
	users   = []domain.User{admin, manager, ivan, elena, senior}
)

func asRequester(u domain.User) Requester { return Requester{ID: u.ID, Role: u.Role} }

func designTask(status domain.TaskStatus) domain.Task {
	return domain.Task{
		ID:                  "t1",
		ProjectID:           "p1",
		Status:              status,
		AssignedTo:          ivan.ID,
		CreatedBy:           manager.ID,
		Cost:                10000,
		ManagerRate:         10,
		PerformerRate:       15,
		SeniorPerformerRate: 0,
	}
}

func TestRewardForAssignee(t *testing.T) {
	task := designTask(domain.TaskDone)
	assert.InDelta(t, 1500, RewardFor(task, ivan), 1e-9)
}

func TestRewardForSeniorUsesSeniorRateOnly(t *testing.T) {
	task := designTask(domain.TaskTodo)
	task.AssignedTo = senior.ID
	task.SeniorPerformerRate = 6
	assert.InDelta(t, 600, RewardFor(task, senior), 1e-9)

	task.SeniorPerformerRate = 0
	assert.Zero(t, RewardFor(task, senior), "performer rate must never apply to a senior")
}

func TestRewardForUninvolvedIsZero(t *testing.T) {
	task := designTask(domain.TaskDone)
	for _, u := range []domain.User{admin, elena, senior} {
		assert.Zero(t, RewardFor(task, u), "user %s", u.ID)
	}
	// Creator who is not a manager earns nothing for authoring.
	task.CreatedBy = admin.ID
	assert.Zero(t, RewardFor(task, admin))
}

func TestRewardForManagerCreatorAndAssignee(t *testing.T) {
	task := designTask(domain.TaskDone)
	assert.InDelta(t, 1000, RewardFor(task, manager), 1e-9)

	task.AssignedTo = manager.ID
	assert.InDelta(t, 1000+1500, RewardFor(task, manager), 1e-9)
}

func TestRewardPassesThroughOutOfRangeRates(t *testing.T) {
	task := designTask(domain.TaskDone)
	task.PerformerRate = 150
	assert.InDelta(t, 15000, RewardFor(task, ivan), 1e-9)
	task.PerformerRate = -10
	assert.InDelta(t, -1000, RewardFor(task, ivan), 1e-9)
}

func TestOrgRewardDecomposes(t *testing.T) {
	task := designTask(domain.TaskDone)
	task.SeniorPerformerRate = 6

	performerView := task
	seniorView := task
	seniorView.AssignedTo = senior.ID

	managerCut := RewardFor(task, manager)
	performerCut := RewardFor(performerView, ivan)
	seniorCut := RewardFor(seniorView, senior)
	assert.InDelta(t, managerCut+performerCut+seniorCut, OrgReward(task), 1e-9)
	assert.InDelta(t, 3100, OrgReward(task), 1e-9)
}

func TestReportEarnedWhenDone(t *testing.T) {
	rep := BuildReport([]domain.Task{designTask(domain.TaskDone)}, users, asRequester(ivan), "")
	assert.InDelta(t, 1500, rep.EarnedTotal, 1e-9)
	assert.Zero(t, rep.PendingTotal)
	assert.Equal(t, 1, rep.TaskCount)
}

func TestReportPendingWhileInProgress(t *testing.T) {
	rep := BuildReport([]domain.Task{designTask(domain.TaskInProgress)}, users, asRequester(ivan), "")
	assert.Zero(t, rep.EarnedTotal)
	assert.InDelta(t, 1500, rep.PendingTotal, 1e-9)
}

func TestReportPendingIncludesTodo(t *testing.T) {
	rep := BuildReport([]domain.Task{designTask(domain.TaskTodo)}, users, asRequester(ivan), "")
	assert.InDelta(t, 1500, rep.PendingTotal, 1e-9)
}

func TestReportAdminAll(t *testing.T) {
	other := designTask(domain.TaskTodo)
	other.ID = "t2"
	other.AssignedTo = elena.ID
	other.CreatedBy = admin.ID
	tasks := []domain.Task{designTask(domain.TaskDone), other}

	rep := BuildReport(tasks, users, asRequester(admin), AllUsers)
	require.True(t, rep.All)
	assert.Equal(t, 2, rep.TaskCount)
	require.Len(t, rep.Items, 2)
	for _, item := range rep.Items {
		assert.InDelta(t, 2500, item.Reward, 1e-9)
	}
	assert.InDelta(t, 2500, rep.EarnedTotal, 1e-9)
	assert.InDelta(t, 2500, rep.PendingTotal, 1e-9)
}

func TestReportPerformerForcedToSelf(t *testing.T) {
	mine := designTask(domain.TaskDone)
	theirs := designTask(domain.TaskDone)
	theirs.ID = "t2"
	theirs.AssignedTo = elena.ID
	tasks := []domain.Task{mine, theirs}

	for _, filter := range []string{"", AllUsers, elena.ID, "nobody"} {
		rep := BuildReport(tasks, users, asRequester(ivan), filter)
		assert.Equal(t, ivan.ID, rep.TargetID, "filter %q", filter)
		assert.False(t, rep.All)
		assert.Equal(t, 1, rep.TaskCount, "filter %q", filter)
		assert.InDelta(t, 1500, rep.EarnedTotal, 1e-9)
	}
}

func TestReportPerformerBudgetHidden(t *testing.T) {
	rep := BuildReport([]domain.Task{designTask(domain.TaskDone)}, users, asRequester(ivan), "")
	require.Len(t, rep.Items, 1)
	assert.Zero(t, rep.Items[0].Task.Cost)
	assert.Zero(t, rep.Items[0].Task.ManagerRate)
	assert.InDelta(t, 1500, rep.Items[0].Reward, 1e-9)
}

func TestReportManagerUnknownTarget(t *testing.T) {
	rep := BuildReport([]domain.Task{designTask(domain.TaskDone)}, users, asRequester(manager), "ghost")
	assert.Zero(t, rep.EarnedTotal)
	assert.Zero(t, rep.PendingTotal)
	assert.Zero(t, rep.TaskCount)
	assert.Empty(t, rep.Items)
	assert.NotNil(t, rep.Items)
}

func TestReportManagerAllDowngradedToSelf(t *testing.T) {
	rep := BuildReport([]domain.Task{designTask(domain.TaskDone)}, users, asRequester(manager), AllUsers)
	assert.False(t, rep.All)
	assert.Equal(t, manager.ID, rep.TargetID)
	assert.InDelta(t, 1000, rep.EarnedTotal, 1e-9)
}

func TestReportManagerOtherUserDowngradedToSelf(t *testing.T) {
	rep := BuildReport([]domain.Task{designTask(domain.TaskDone)}, users, asRequester(manager), ivan.ID)
	assert.False(t, rep.All)
	assert.Equal(t, manager.ID, rep.TargetID)
	assert.Equal(t, 1, rep.TaskCount)
	assert.InDelta(t, 1000, rep.EarnedTotal, 1e-9, "manager cut, not the assignee's 1500")
}

func TestReportAdminTargetsUser(t *testing.T) {
	rep := BuildReport([]domain.Task{designTask(domain.TaskDone)}, users, asRequester(admin), manager.ID)
	assert.Equal(t, 1, rep.TaskCount)
	assert.InDelta(t, 1000, rep.EarnedTotal, 1e-9)
}

func TestReportIsIdempotent(t *testing.T) {
	tasks := []domain.Task{designTask(domain.TaskDone), designTask(domain.TaskTodo)}
	first := BuildReport(tasks, users, asRequester(admin), AllUsers)
	second := BuildReport(tasks, users, asRequester(admin), AllUsers)
	assert.Equal(t, first, second)
}

func TestVisibleTasks(t *testing.T) {
	a := designTask(domain.TaskTodo)
	b := designTask(domain.TaskTodo)
	b.ID = "t2"
	b.AssignedTo = elena.ID
	b.ProjectID = "p2"
	tasks := []domain.Task{a, b}

	assert.Len(t, VisibleTasks(asRequester(ivan), tasks, ""), 1)
	assert.Len(t, VisibleTasks(asRequester(manager), tasks, ""), 2)
	assert.Len(t, VisibleTasks(asRequester(admin), tasks, "p2"), 1)
	assert.Empty(t, VisibleTasks(asRequester(ivan), tasks, "p2"))
}

func TestRedactTask(t *testing.T) {
	task := designTask(domain.TaskTodo)
	view := RedactTask(asRequester(ivan), ivan, task)
	assert.True(t, view.BudgetHidden)
	assert.Zero(t, view.Cost)
	assert.InDelta(t, 1500, view.Reward, 1e-9)

	view = RedactTask(asRequester(manager), manager, task)
	assert.False(t, view.BudgetHidden)
	assert.InDelta(t, 10000, view.Cost, 1e-9)
	assert.InDelta(t, 1000, view.Reward, 1e-9)
}

func TestResolveScope(t *testing.T) {
	assert.Equal(t, Scope{TargetID: AllUsers, All: true}, ResolveScope(asRequester(admin), ""))
	assert.Equal(t, Scope{TargetID: ivan.ID}, ResolveScope(asRequester(admin), ivan.ID))
	assert.Equal(t, Scope{TargetID: manager.ID}, ResolveScope(asRequester(manager), ""))
	assert.Equal(t, Scope{TargetID: senior.ID}, ResolveScope(asRequester(senior), AllUsers))
}
