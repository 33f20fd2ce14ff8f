package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"zenflow/internal/domain"
)

const taskColumns = `id,project_id,title,description,status,assigned_to,created_by,created_at,started_at,completed_at,priority,attachments_json,cost,manager_rate,performer_rate,senior_performer_rate`

func scanTask(s scanner) (domain.Task, error) {
	var t domain.Task
	var status, priority string
	var startedAt, completedAt sql.NullInt64
	var attachments sql.NullString
	err := s.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &status, &t.AssignedTo, &t.CreatedBy, &t.CreatedAt,
		&startedAt, &completedAt, &priority, &attachments, &t.Cost, &t.ManagerRate, &t.PerformerRate, &t.SeniorPerformerRate)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.Priority(priority)
	if startedAt.Valid {
		v := startedAt.Int64
		t.StartedAt = &v
	}
	if completedAt.Valid {
		v := completedAt.Int64
		t.CompletedAt = &v
	}
	if attachments.Valid && attachments.String != "" {
		if err := json.Unmarshal([]byte(attachments.String), &t.Attachments); err != nil {
			return t, fmt.Errorf("decode attachments for task %s: %w", t.ID, err)
		}
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	var attachments any
	if len(t.Attachments) > 0 {
		b, err := json.Marshal(t.Attachments)
		if err != nil {
			return err
		}
		attachments = string(b)
	}
	_, err := r.exec(tx).ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ProjectID, t.Title, t.Description, string(t.Status), t.AssignedTo, t.CreatedBy, t.CreatedAt,
		nullableInt64Ptr(t.StartedAt), nullableInt64Ptr(t.CompletedAt), string(t.Priority), attachments,
		t.Cost, t.ManagerRate, t.PerformerRate, t.SeniorPerformerRate)
	return mapConstraint(err)
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return r.GetTaskTx(ctx, nil, id)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return scanTask(r.query(tx).QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

type TaskFilters struct {
	ProjectID  string
	Status     string
	AssignedTo string
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.AssignedTo != "" {
		clauses = append(clauses, "assigned_to=?")
		args = append(args, f.AssignedTo)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks `+where+` ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// UpdateTaskStatus writes the status and lifecycle timestamps of t.
func (r Repo) UpdateTaskStatus(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := r.exec(tx).ExecContext(ctx, `UPDATE tasks SET status=?, started_at=?, completed_at=? WHERE id=?`,
		string(t.Status), nullableInt64Ptr(t.StartedAt), nullableInt64Ptr(t.CompletedAt), t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.exec(tx).ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
