package engine

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"zenflow/internal/domain"
	"zenflow/internal/engine/auth"
	"zenflow/internal/payroll"
)

const defaultProjectColor = "#6366f1"

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type ProjectCreateOptions struct {
	Name        string
	Description string
	Color       string
}

func (e Engine) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return e.Repo.ListProjects(ctx)
}

func (e Engine) CreateProject(ctx context.Context, req payroll.Requester, opts ProjectCreateOptions) (domain.Project, error) {
	if err := auth.Require(req.Role, auth.PermProjectCreate); err != nil {
		return domain.Project{}, err
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return domain.Project{}, invalid("name is required")
	}
	color := strings.TrimSpace(opts.Color)
	if color == "" {
		color = defaultProjectColor
	}
	if !colorPattern.MatchString(color) {
		return domain.Project{}, invalid("color %q must look like #rrggbb", opts.Color)
	}
	p := domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(opts.Description),
		Color:       color,
		CreatedAt:   e.nowMillis(),
	}
	if err := e.write(ctx, func(tx *sql.Tx) error {
		return e.Repo.InsertProject(ctx, tx, p)
	}); err != nil {
		return domain.Project{}, err
	}
	e.committed("projects", p.ID, "create")
	return p, nil
}

// DeleteProject removes the project together with its tasks.
func (e Engine) DeleteProject(ctx context.Context, req payroll.Requester, id string) error {
	if err := auth.Require(req.Role, auth.PermProjectDelete); err != nil {
		return err
	}
	if err := e.write(ctx, func(tx *sql.Tx) error {
		return e.Repo.DeleteProject(ctx, tx, id)
	}); err != nil {
		return err
	}
	e.committed("projects", id, "delete")
	e.committed("tasks", "", "delete")
	return nil
}
