package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"zenflow/internal/ai"
	"zenflow/internal/config"
	"zenflow/internal/domain"
	"zenflow/internal/events"
	"zenflow/internal/payroll"
	"zenflow/internal/repo"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSession     = errors.New("session expired or revoked")
	ErrSelfDelete         = errors.New("users cannot delete themselves")
	ErrEmailTaken         = errors.New("email already registered")
)

// TransitionError rejects a task status change that is not a single forward step.
type TransitionError struct {
	From domain.TaskStatus
	To   domain.TaskStatus
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("invalid task status transition %s -> %s", e.From, e.To)
}

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events *events.Bus
	Config *config.Config
	AI     ai.Generator
	Log    *zap.Logger
	Now    func() time.Time

	writeMu *sync.Mutex
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:      db,
		Repo:    repo.Repo{DB: db},
		Events:  events.NewBus(),
		Config:  cfg,
		AI:      ai.NewWithModel(nil, cfg.AI, nil),
		Log:     zap.NewNop(),
		Now:     time.Now,
		writeMu: &sync.Mutex{},
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowMillis() int64 {
	return e.now().UnixMilli()
}

func (e Engine) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// write runs fn in one transaction while holding the write lock.
func (e Engine) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if e.writeMu != nil {
		e.writeMu.Lock()
		defer e.writeMu.Unlock()
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) committed(entity, id, action string) {
	e.logger().Debug("committed", zap.String("entity", entity), zap.String("id", id), zap.String("action", action))
	e.Events.Publish(entity, id, action)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// RequesterFor builds the payroll identity of an authenticated user.
func RequesterFor(u domain.User) payroll.Requester {
	return payroll.Requester{ID: u.ID, Role: u.Role}
}

func selfOf(req payroll.Requester) domain.User {
	return domain.User{ID: req.ID, Role: req.Role}
}

// SnapshotView is the fetch-all payload after visibility rules.
type SnapshotView struct {
	Users    []domain.User      `json:"users"`
	Projects []domain.Project   `json:"projects"`
	Tasks    []payroll.TaskView `json:"tasks"`
	Leads    []domain.Lead      `json:"leads"`
}

// Snapshot loads every collection and applies req's visibility. Leads are only
// returned to roles that manage the CRM.
func (e Engine) Snapshot(ctx context.Context, req payroll.Requester) (SnapshotView, error) {
	snap, err := e.Repo.Snapshot(ctx)
	if err != nil {
		return SnapshotView{}, err
	}
	view := SnapshotView{Users: snap.Users, Projects: snap.Projects, Leads: []domain.Lead{}}
	view.Tasks = e.redact(req, payroll.VisibleTasks(req, snap.Tasks, ""))
	if canReadLeads(req) {
		view.Leads = snap.Leads
	}
	return view, nil
}

func (e Engine) redact(req payroll.Requester, tasks []domain.Task) []payroll.TaskView {
	self := selfOf(req)
	out := make([]payroll.TaskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, payroll.RedactTask(req, self, t))
	}
	return out
}

// Report builds the payments report for filter (a user id or payroll.AllUsers).
func (e Engine) Report(ctx context.Context, req payroll.Requester, filter string) (payroll.Report, error) {
	users, err := e.Repo.ListUsers(ctx)
	if err != nil {
		return payroll.Report{}, err
	}
	tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{})
	if err != nil {
		return payroll.Report{}, err
	}
	return payroll.BuildReport(tasks, users, req, filter), nil
}
