package engine

import (
	"context"
	"strings"

	"zenflow/internal/ai"
	"zenflow/internal/engine/auth"
	"zenflow/internal/payroll"
	"zenflow/internal/repo"
)

func (e Engine) assistant() ai.Generator {
	if e.AI != nil {
		return e.AI
	}
	return ai.NewWithModel(nil, e.Config.AI, e.Log)
}

// GenerateDescription drafts an HTML description for title. AI failures come
// back as fallback text, not errors.
func (e Engine) GenerateDescription(ctx context.Context, req payroll.Requester, title string) (string, error) {
	if err := auth.Require(req.Role, auth.PermAIUse); err != nil {
		return "", err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "", invalid("title is required")
	}
	return e.assistant().GenerateDescription(ctx, title), nil
}

// AnalyzeWorkload summarises the current task load.
func (e Engine) AnalyzeWorkload(ctx context.Context, req payroll.Requester) (string, error) {
	if err := auth.Require(req.Role, auth.PermAIUse); err != nil {
		return "", err
	}
	tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{})
	if err != nil {
		return "", err
	}
	return e.assistant().AnalyzeWorkload(ctx, tasks), nil
}
