package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"zenflow/internal/ai"
	"zenflow/internal/config"
	"zenflow/internal/db"
	"zenflow/internal/domain"
	"zenflow/internal/engine"
	"zenflow/internal/engine/auth"
	"zenflow/internal/migrate"
	"zenflow/internal/payroll"
	"zenflow/internal/repo"
)

var (
	admin   = payroll.Requester{ID: "u1", Role: domain.RoleAdmin}
	manager = payroll.Requester{ID: "u2", Role: domain.RoleManager}
	ivan    = payroll.Requester{ID: "u3", Role: domain.RolePerformer}
	elena   = payroll.Requester{ID: "u4", Role: domain.RolePerformer}
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	clock  *time.Time
}

func (env testEnv) advance(d time.Duration) {
	*env.clock = env.clock.Add(d)
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	eng.Now = func() time.Time { return clock }
	ctx := context.Background()
	seeded, err := eng.SeedDemo(ctx, "password123")
	if err != nil || !seeded {
		t.Fatalf("seed: %v (seeded=%v)", err, seeded)
	}
	return testEnv{Engine: eng, Ctx: ctx, clock: &clock}
}

type fakeAI struct {
	description string
}

func (f fakeAI) Available() bool { return true }
func (f fakeAI) GenerateDescription(context.Context, string) string {
	return f.description
}
func (f fakeAI) AnalyzeWorkload(context.Context, []domain.Task) string { return "steady" }

func TestSeedDemoRunsOnce(t *testing.T) {
	env := newTestEnv(t)
	seeded, err := env.Engine.SeedDemo(env.Ctx, "password123")
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if seeded {
		t.Fatalf("seed must skip a populated store")
	}
}

func TestLoginLogout(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Login(env.Ctx, engine.LoginOptions{Email: "ivan.p@zentask.com", Password: "wrong"})
	if !errors.Is(err, engine.ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	_, err = env.Engine.Login(env.Ctx, engine.LoginOptions{Email: "nobody@zentask.com", Password: "password123"})
	if !errors.Is(err, engine.ErrInvalidCredentials) {
		t.Fatalf("unknown email: %v", err)
	}
	res, err := env.Engine.Login(env.Ctx, engine.LoginOptions{Email: "IVAN.P@zentask.com", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.User.ID != "u3" || res.Token == "" {
		t.Fatalf("unexpected login result %+v", res)
	}
	u, s, err := env.Engine.Authenticate(env.Ctx, res.Token)
	if err != nil || u.ID != "u3" || s.ID != res.Session.ID {
		t.Fatalf("authenticate: %v %+v", err, u)
	}
	if err := env.Engine.Logout(env.Ctx, res.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := env.Engine.Authenticate(env.Ctx, res.Token); !errors.Is(err, engine.ErrInvalidSession) {
		t.Fatalf("expected revoked session, got %v", err)
	}
	if err := env.Engine.Logout(env.Ctx, res.Token); err != nil {
		t.Fatalf("second logout should be a no-op: %v", err)
	}
}

func TestSessionExpires(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.Engine.Login(env.Ctx, engine.LoginOptions{
		Email: "admin@zentask.com", Password: "password123",
		Sign: func(s domain.Session, u domain.User) (string, error) { return "signed-" + s.ID, nil },
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token != "signed-"+res.Session.ID {
		t.Fatalf("signer not used: %s", res.Token)
	}
	env.advance(721 * time.Hour)
	if _, _, err := env.Engine.Authenticate(env.Ctx, res.Token); !errors.Is(err, engine.ErrInvalidSession) {
		t.Fatalf("expected expiry, got %v", err)
	}
	n, err := env.Engine.PruneSessions(env.Ctx)
	if err != nil || n != 1 {
		t.Fatalf("prune: %d %v", n, err)
	}
}

func TestUserManagement(t *testing.T) {
	env := newTestEnv(t)
	opts := engine.UserCreateOptions{Name: "Olga Senior", Email: "Olga@zentask.com", Role: domain.RoleSeniorPerformer, Password: "secret1"}
	var fe auth.ForbiddenError
	if _, err := env.Engine.CreateUser(env.Ctx, manager, opts); !errors.As(err, &fe) {
		t.Fatalf("manager must not create users: %v", err)
	}
	u, err := env.Engine.CreateUser(env.Ctx, admin, opts)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "olga@zentask.com" || u.Avatar != "https://api.dicebear.com/7.x/avataaars/svg?seed=Olga+Senior" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := env.Engine.CreateUser(env.Ctx, admin, opts); !errors.Is(err, engine.ErrEmailTaken) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	opts.Email = "x@zentask.com"
	opts.Role = "INTERN"
	_, err = env.Engine.CreateUser(env.Ctx, admin, opts)
	if !errors.Is(err, engine.ErrInvalidInput) || !strings.Contains(err.Error(), "SENIOR_PERFORMER") {
		t.Fatalf("expected invalid role listing valid roles, got %v", err)
	}
	if err := env.Engine.DeleteUser(env.Ctx, admin, "u1"); !errors.Is(err, engine.ErrSelfDelete) {
		t.Fatalf("expected self delete error, got %v", err)
	}
	if err := env.Engine.DeleteUser(env.Ctx, admin, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := env.Engine.DeleteUser(env.Ctx, admin, u.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := env.Engine.ListUsers(env.Ctx, ivan); !errors.As(err, &fe) {
		t.Fatalf("performers cannot list users: %v", err)
	}
}

func TestCreateTaskRates(t *testing.T) {
	env := newTestEnv(t)
	base := engine.TaskCreateOptions{ProjectID: "p2", Title: "Audit", AssignedTo: "u4", Cost: 2000}

	task, err := env.Engine.CreateTask(env.Ctx, manager, base)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ManagerRate != 10 || task.PerformerRate != 15 || task.SeniorPerformerRate != 0 {
		t.Fatalf("default preset not applied: %+v", task.Task)
	}
	if task.Priority != domain.PriorityMedium || task.Status != domain.TaskTodo || task.CreatedBy != "u2" {
		t.Fatalf("unexpected defaults: %+v", task.Task)
	}
	if task.Reward != 200 {
		t.Fatalf("creator reward = %v", task.Reward)
	}

	senior := base
	senior.RatePreset = "senior"
	task, err = env.Engine.CreateTask(env.Ctx, admin, senior)
	if err != nil || task.SeniorPerformerRate != 6 || task.ManagerRate != 8 {
		t.Fatalf("senior preset: %v %+v", err, task.Task)
	}

	manual := base
	m, p := 5.0, 50.0
	manual.ManagerRate, manual.PerformerRate = &m, &p
	task, err = env.Engine.CreateTask(env.Ctx, admin, manual)
	if err != nil || task.ManagerRate != 5 || task.PerformerRate != 50 || task.SeniorPerformerRate != 0 {
		t.Fatalf("manual rates: %v %+v", err, task.Task)
	}

	bad := base
	bad.Cost = -1
	if _, err := env.Engine.CreateTask(env.Ctx, admin, bad); !errors.Is(err, engine.ErrInvalidInput) {
		t.Fatalf("expected negative cost rejection, got %v", err)
	}
	bad = base
	bad.ProjectID = "missing"
	if _, err := env.Engine.CreateTask(env.Ctx, admin, bad); !errors.Is(err, engine.ErrInvalidInput) {
		t.Fatalf("expected unknown project rejection, got %v", err)
	}
	bad = base
	bad.RatePreset = "premium"
	if _, err := env.Engine.CreateTask(env.Ctx, admin, bad); !errors.Is(err, engine.ErrInvalidInput) {
		t.Fatalf("expected unknown preset rejection, got %v", err)
	}
	var fe auth.ForbiddenError
	if _, err := env.Engine.CreateTask(env.Ctx, ivan, base); !errors.As(err, &fe) {
		t.Fatalf("performer must not create: %v", err)
	}
}

func TestCreateTaskGeneratesDescription(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.AI = fakeAI{description: "<p>generated</p>"}
	task, err := env.Engine.CreateTask(env.Ctx, manager, engine.TaskCreateOptions{
		ProjectID: "p1", Title: "Onboarding", AssignedTo: "u3", GenerateDescription: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Description != "<p>generated</p>" {
		t.Fatalf("description = %q", task.Description)
	}
	task, err = env.Engine.CreateTask(env.Ctx, manager, engine.TaskCreateOptions{
		ProjectID: "p1", Title: "Kept", Description: "mine", AssignedTo: "u3", GenerateDescription: true,
	})
	if err != nil || task.Description != "mine" {
		t.Fatalf("explicit description overwritten: %v %q", err, task.Description)
	}
}

func TestTaskStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, ivan, "t1", domain.TaskDone); !errors.As(err, new(engine.TransitionError)) {
		t.Fatalf("expected transition error skipping a step, got %v", err)
	}
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, elena, "t1", domain.TaskInProgress); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("other performer should not see task: %v", err)
	}
	var fe auth.ForbiddenError
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, manager, "t1", domain.TaskInProgress); !errors.As(err, &fe) {
		t.Fatalf("only the assignee moves tasks: %v", err)
	}

	started := env.clock.UnixMilli()
	task, err := env.Engine.UpdateTaskStatus(env.Ctx, ivan, "t1", domain.TaskInProgress)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if task.StartedAt == nil || *task.StartedAt != started || task.CompletedAt != nil {
		t.Fatalf("started_at not stamped: %+v", task.Task)
	}
	env.advance(time.Hour)
	task, err = env.Engine.UpdateTaskStatus(env.Ctx, ivan, "t1", domain.TaskDone)
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	if task.CompletedAt == nil || *task.CompletedAt != env.clock.UnixMilli() {
		t.Fatalf("completed_at not stamped: %+v", task.Task)
	}
	if task.StartedAt == nil || *task.StartedAt != started {
		t.Fatalf("started_at must survive completion: %+v", task.Task)
	}
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, ivan, "t1", domain.TaskTodo); !errors.As(err, new(engine.TransitionError)) {
		t.Fatalf("expected backwards transition error, got %v", err)
	}
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, ivan, "t1", domain.TaskDone); err != nil {
		t.Fatalf("same status should be a no-op: %v", err)
	}
}

func TestListTasksVisibility(t *testing.T) {
	env := newTestEnv(t)
	tasks, err := env.Engine.ListTasks(env.Ctx, elena, engine.TaskListOptions{})
	if err != nil || len(tasks) != 0 {
		t.Fatalf("elena sees %d tasks (%v)", len(tasks), err)
	}
	tasks, err = env.Engine.ListTasks(env.Ctx, ivan, engine.TaskListOptions{})
	if err != nil || len(tasks) != 1 {
		t.Fatalf("ivan sees %d tasks (%v)", len(tasks), err)
	}
	if !tasks[0].BudgetHidden || tasks[0].Cost != 0 || tasks[0].Reward != 1500 {
		t.Fatalf("performer view not redacted: %+v", tasks[0])
	}
	tasks, err = env.Engine.ListTasks(env.Ctx, manager, engine.TaskListOptions{ProjectID: "p2"})
	if err != nil || len(tasks) != 0 {
		t.Fatalf("project filter: %d %v", len(tasks), err)
	}
	tasks, err = env.Engine.ListTasks(env.Ctx, admin, engine.TaskListOptions{Status: domain.TaskTodo})
	if err != nil || len(tasks) != 1 || tasks[0].Cost != 10000 {
		t.Fatalf("admin view: %v %+v", err, tasks)
	}
	if _, err := env.Engine.ListTasks(env.Ctx, admin, engine.TaskListOptions{Status: "BLOCKED"}); !errors.Is(err, engine.ErrInvalidInput) {
		t.Fatalf("expected invalid status, got %v", err)
	}
	if _, err := env.Engine.GetTask(env.Ctx, elena, "t1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("elena must not open t1: %v", err)
	}
}

func TestSnapshotHidesLeadsFromPerformers(t *testing.T) {
	env := newTestEnv(t)
	snap, err := env.Engine.Snapshot(env.Ctx, ivan)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Leads) != 0 || len(snap.Tasks) != 1 || len(snap.Users) != 4 || len(snap.Projects) != 2 {
		t.Fatalf("unexpected performer snapshot: %+v", snap)
	}
	snap, err = env.Engine.Snapshot(env.Ctx, manager)
	if err != nil || len(snap.Leads) != 2 {
		t.Fatalf("manager snapshot: %v %d leads", err, len(snap.Leads))
	}
}

func TestLeadFunnel(t *testing.T) {
	env := newTestEnv(t)
	lead, err := env.Engine.AdvanceLead(env.Ctx, manager, "l2")
	if err != nil || lead.Status != domain.LeadProposal {
		t.Fatalf("advance: %v %s", err, lead.Status)
	}
	lead, err = env.Engine.AdvanceLead(env.Ctx, manager, "l2")
	if err != nil || lead.Status != domain.LeadWon {
		t.Fatalf("advance to won: %v %s", err, lead.Status)
	}
	lead, err = env.Engine.AdvanceLead(env.Ctx, manager, "l2")
	if err != nil || lead.Status != domain.LeadWon {
		t.Fatalf("won must be absorbing: %v %s", err, lead.Status)
	}
	lead, err = env.Engine.LoseLead(env.Ctx, admin, "l2")
	if err != nil || lead.Status != domain.LeadWon {
		t.Fatalf("lose on won must be a no-op: %v %s", err, lead.Status)
	}
	lead, err = env.Engine.LoseLead(env.Ctx, admin, "l1")
	if err != nil || lead.Status != domain.LeadLost {
		t.Fatalf("lose: %v %s", err, lead.Status)
	}
	created, err := env.Engine.CreateLead(env.Ctx, manager, engine.LeadCreateOptions{Name: "Mobile app", Cost: 5000})
	if err != nil || created.Status != domain.LeadNew {
		t.Fatalf("create lead: %v %+v", err, created)
	}
	if err := env.Engine.DeleteLead(env.Ctx, manager, created.ID); err != nil {
		t.Fatalf("delete lead: %v", err)
	}
	var fe auth.ForbiddenError
	if _, err := env.Engine.AdvanceLead(env.Ctx, ivan, "l1"); !errors.As(err, &fe) {
		t.Fatalf("performers cannot touch leads: %v", err)
	}
	if _, err := env.Engine.AdvanceLead(env.Ctx, admin, "nope"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReportFollowsTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	rep, err := env.Engine.Report(env.Ctx, admin, payroll.AllUsers)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !rep.All || rep.PendingTotal != 2500 || rep.EarnedTotal != 0 || rep.TaskCount != 1 {
		t.Fatalf("admin org report: %+v", rep)
	}
	rep, err = env.Engine.Report(env.Ctx, manager, payroll.AllUsers)
	if err != nil || rep.All || rep.TargetID != "u2" || rep.PendingTotal != 1000 {
		t.Fatalf("manager ALL must be downgraded: %v %+v", err, rep)
	}
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, ivan, "t1", domain.TaskInProgress); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, ivan, "t1", domain.TaskDone); err != nil {
		t.Fatal(err)
	}
	rep, err = env.Engine.Report(env.Ctx, ivan, "u2")
	if err != nil || rep.TargetID != "u3" || rep.EarnedTotal != 1500 || rep.PendingTotal != 0 {
		t.Fatalf("performer report: %v %+v", err, rep)
	}
	rep, err = env.Engine.Report(env.Ctx, admin, "ghost")
	if err != nil || rep.TaskCount != 0 || rep.EarnedTotal != 0 || len(rep.Items) != 0 {
		t.Fatalf("unknown target: %v %+v", err, rep)
	}
}

func TestWritesPublishChanges(t *testing.T) {
	env := newTestEnv(t)
	ch, stop := env.Engine.Events.Subscribe(4)
	defer stop()
	p, err := env.Engine.CreateProject(env.Ctx, manager, engine.ProjectCreateOptions{Name: "Docs"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if p.Color != "#6366f1" {
		t.Fatalf("default color = %s", p.Color)
	}
	select {
	case c := <-ch:
		if c.Type != "refresh" || c.Entity != "projects" || c.ID != p.ID {
			t.Fatalf("unexpected change %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatalf("no change published")
	}
	if _, err := env.Engine.CreateProject(env.Ctx, manager, engine.ProjectCreateOptions{Name: "Bad", Color: "red"}); !errors.Is(err, engine.ErrInvalidInput) {
		t.Fatalf("expected color validation, got %v", err)
	}
	var fe auth.ForbiddenError
	if err := env.Engine.DeleteProject(env.Ctx, manager, p.ID); !errors.As(err, &fe) {
		t.Fatalf("manager cannot delete projects: %v", err)
	}
	if err := env.Engine.DeleteProject(env.Ctx, admin, "p1"); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if _, err := env.Engine.GetTask(env.Ctx, admin, "t1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("tasks must go with their project: %v", err)
	}
}

func TestAssistantFallsBackWithoutKey(t *testing.T) {
	env := newTestEnv(t)
	text, err := env.Engine.GenerateDescription(env.Ctx, manager, "Landing")
	if err != nil || text != ai.DescriptionUnavailable {
		t.Fatalf("description fallback: %v %q", err, text)
	}
	text, err = env.Engine.AnalyzeWorkload(env.Ctx, admin)
	if err != nil || text != ai.WorkloadUnavailable {
		t.Fatalf("workload fallback: %v %q", err, text)
	}
	var fe auth.ForbiddenError
	if _, err := env.Engine.GenerateDescription(env.Ctx, ivan, "Landing"); !errors.As(err, &fe) {
		t.Fatalf("performers cannot use AI: %v", err)
	}
	env.Engine.AI = fakeAI{}
	text, err = env.Engine.AnalyzeWorkload(env.Ctx, admin)
	if err != nil || text != "steady" {
		t.Fatalf("workload: %v %q", err, text)
	}
}
