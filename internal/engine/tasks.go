package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"zenflow/internal/domain"
	"zenflow/internal/engine/auth"
	"zenflow/internal/payroll"
	"zenflow/internal/repo"
)

// ManualRates selects explicit rates instead of a configured preset.
const ManualRates = "manual"

// TaskCreateOptions are parameters for creating a task. When any rate pointer
// is set, or RatePreset is ManualRates, the rates are taken as given (unset
// ones are zero); otherwise the named preset, or the default one, applies.
type TaskCreateOptions struct {
	ProjectID           string
	Title               string
	Description         string
	AssignedTo          string
	Priority            domain.Priority
	Cost                float64
	RatePreset          string
	ManagerRate         *float64
	PerformerRate       *float64
	SeniorPerformerRate *float64
	Attachments         []domain.Attachment
	// GenerateDescription asks the AI collaborator for a description when
	// Description is empty.
	GenerateDescription bool
}

func (e Engine) CreateTask(ctx context.Context, req payroll.Requester, opts TaskCreateOptions) (payroll.TaskView, error) {
	if err := auth.Require(req.Role, auth.PermTaskCreate); err != nil {
		return payroll.TaskView{}, err
	}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return payroll.TaskView{}, invalid("title is required")
	}
	if opts.ProjectID == "" {
		return payroll.TaskView{}, invalid("project_id is required")
	}
	if opts.AssignedTo == "" {
		return payroll.TaskView{}, invalid("assigned_to is required")
	}
	if opts.Cost < 0 {
		return payroll.TaskView{}, invalid("cost must not be negative")
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}
	if !opts.Priority.Valid() {
		return payroll.TaskView{}, invalid("priority %q is invalid", opts.Priority)
	}
	for _, a := range opts.Attachments {
		if strings.TrimSpace(a.Name) == "" {
			return payroll.TaskView{}, invalid("attachment name is required")
		}
	}
	t := domain.Task{
		ID:          uuid.NewString(),
		ProjectID:   opts.ProjectID,
		Title:       title,
		Description: opts.Description,
		Status:      domain.TaskTodo,
		AssignedTo:  opts.AssignedTo,
		CreatedBy:   req.ID,
		Priority:    opts.Priority,
		Attachments: opts.Attachments,
		Cost:        opts.Cost,
	}
	if err := e.applyRates(&t, opts); err != nil {
		return payroll.TaskView{}, err
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return payroll.TaskView{}, invalid("project %s not found", opts.ProjectID)
		}
		return payroll.TaskView{}, err
	}
	if _, err := e.Repo.GetUser(ctx, opts.AssignedTo); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return payroll.TaskView{}, invalid("assignee %s not found", opts.AssignedTo)
		}
		return payroll.TaskView{}, err
	}
	if strings.TrimSpace(t.Description) == "" && opts.GenerateDescription && e.AI != nil && e.AI.Available() {
		t.Description = e.AI.GenerateDescription(ctx, title)
	}
	t.CreatedAt = e.nowMillis()
	if err := e.write(ctx, func(tx *sql.Tx) error {
		return e.Repo.InsertTask(ctx, tx, t)
	}); err != nil {
		return payroll.TaskView{}, err
	}
	e.committed("tasks", t.ID, "create")
	return payroll.RedactTask(req, selfOf(req), t), nil
}

func (e Engine) applyRates(t *domain.Task, opts TaskCreateOptions) error {
	manual := opts.RatePreset == ManualRates || opts.ManagerRate != nil || opts.PerformerRate != nil || opts.SeniorPerformerRate != nil
	if manual {
		t.ManagerRate = deref(opts.ManagerRate)
		t.PerformerRate = deref(opts.PerformerRate)
		t.SeniorPerformerRate = deref(opts.SeniorPerformerRate)
		return nil
	}
	if e.Config == nil {
		return errors.New("config not loaded")
	}
	p, err := e.Config.Preset(opts.RatePreset)
	if err != nil {
		return invalid("%v", err)
	}
	t.ManagerRate = p.Manager
	t.PerformerRate = p.Performer
	t.SeniorPerformerRate = p.SeniorPerformer
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

type TaskListOptions struct {
	ProjectID string
	Status    domain.TaskStatus
}

func (e Engine) ListTasks(ctx context.Context, req payroll.Requester, opts TaskListOptions) ([]payroll.TaskView, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, invalid("status %q is invalid", opts.Status)
	}
	f := repo.TaskFilters{ProjectID: opts.ProjectID, Status: string(opts.Status)}
	if !auth.Has(req.Role, auth.PermTaskViewAll) {
		f.AssignedTo = req.ID
	}
	tasks, err := e.Repo.ListTasks(ctx, f)
	if err != nil {
		return nil, err
	}
	return e.redact(req, payroll.VisibleTasks(req, tasks, opts.ProjectID)), nil
}

// GetTask hides tasks req may not open behind repo.ErrNotFound.
func (e Engine) GetTask(ctx context.Context, req payroll.Requester, id string) (payroll.TaskView, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return payroll.TaskView{}, err
	}
	if !payroll.CanViewTask(req, t) {
		return payroll.TaskView{}, fmt.Errorf("task %s: %w", id, repo.ErrNotFound)
	}
	return payroll.RedactTask(req, selfOf(req), t), nil
}

// UpdateTaskStatus moves a task one step forward. Only the assignee may do it;
// started_at and completed_at are stamped once and never cleared. Requesting
// the current status is a no-op.
func (e Engine) UpdateTaskStatus(ctx context.Context, req payroll.Requester, id string, status domain.TaskStatus) (payroll.TaskView, error) {
	if !status.Valid() {
		return payroll.TaskView{}, invalid("status %q is invalid", status)
	}
	var t domain.Task
	changed := false
	err := e.write(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = e.Repo.GetTaskTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !payroll.CanViewTask(req, t) {
			return fmt.Errorf("task %s: %w", id, repo.ErrNotFound)
		}
		if t.AssignedTo != req.ID {
			return auth.ForbiddenError{Permission: "task.assignee"}
		}
		if t.Status == status {
			return nil
		}
		next, ok := t.Status.Next()
		if !ok || next != status {
			return TransitionError{From: t.Status, To: status}
		}
		now := e.nowMillis()
		t.Status = next
		if next == domain.TaskInProgress && t.StartedAt == nil {
			t.StartedAt = &now
		}
		if next == domain.TaskDone && t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		changed = true
		return e.Repo.UpdateTaskStatus(ctx, tx, t)
	})
	if err != nil {
		return payroll.TaskView{}, err
	}
	if changed {
		e.committed("tasks", t.ID, "status")
		e.logger().Info("task status", zap.String("id", t.ID), zap.String("status", string(t.Status)), zap.String("by", req.ID))
	}
	return payroll.RedactTask(req, selfOf(req), t), nil
}

func (e Engine) DeleteTask(ctx context.Context, req payroll.Requester, id string) error {
	if err := auth.Require(req.Role, auth.PermTaskDelete); err != nil {
		return err
	}
	if err := e.write(ctx, func(tx *sql.Tx) error {
		return e.Repo.DeleteTask(ctx, tx, id)
	}); err != nil {
		return err
	}
	e.committed("tasks", id, "delete")
	return nil
}
