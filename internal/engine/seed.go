package engine

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"zenflow/internal/domain"
)

// SeedDemo loads the demo organization into an empty store. It reports false
// without writing when any user already exists.
func (e Engine) SeedDemo(ctx context.Context, password string) (bool, error) {
	if password == "" {
		return false, errors.New("seed password required")
	}
	n, err := e.Repo.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	now := e.nowMillis()
	users := []domain.User{
		{ID: "u1", Name: "Alexander Admin", Email: "admin@zentask.com", Role: domain.RoleAdmin, Avatar: avatarBase + "admin"},
		{ID: "u2", Name: "Sarah Manager", Email: "sarah.m@zentask.com", Role: domain.RoleManager, Avatar: avatarBase + "sarah"},
		{ID: "u3", Name: "Ivan Performer", Email: "ivan.p@zentask.com", Role: domain.RolePerformer, Avatar: avatarBase + "ivan"},
		{ID: "u4", Name: "Elena Developer", Email: "elena.w@zentask.com", Role: domain.RolePerformer, Avatar: avatarBase + "elena"},
	}
	projects := []domain.Project{
		{ID: "p1", Name: "Mobile app rebranding", Color: "#6366f1", CreatedAt: now - 10_000_000},
		{ID: "p2", Name: "Internal admin dashboard", Color: "#10b981", CreatedAt: now - 5_000_000},
	}
	tasks := []domain.Task{{
		ID: "t1", ProjectID: "p1", Title: "Design system refresh",
		Description: "Update the core design system components for the mobile app redesign.",
		Status:      domain.TaskTodo, AssignedTo: "u3", CreatedBy: "u2", CreatedAt: now - 86_400_000,
		Priority: domain.PriorityHigh, Cost: 10000, ManagerRate: 10, PerformerRate: 15,
	}}
	leads := []domain.Lead{
		{ID: "l1", Name: "Corporate website", Contact: "Igor (+7 900 123-45-67)",
			Description: "A modern landing page for a consulting agency.", Cost: 150000, Status: domain.LeadNew, CreatedAt: now - 43_200_000},
		{ID: "l2", Name: "Payment system integration", Contact: "FinTech LLC (hr@fintech.ru)",
			Description: "Add crypto payment support to an existing service.", Cost: 85000, Status: domain.LeadQualified, CreatedAt: now - 172_800_000},
	}
	err = e.write(ctx, func(tx *sql.Tx) error {
		for _, u := range users {
			u.PasswordHash = hash
			if err := e.Repo.InsertUser(ctx, tx, u); err != nil {
				return err
			}
		}
		for _, p := range projects {
			if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
				return err
			}
		}
		for _, t := range tasks {
			if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
				return err
			}
		}
		for _, l := range leads {
			if err := e.Repo.InsertLead(ctx, tx, l); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	e.logger().Info("seeded demo data", zap.Int("users", len(users)), zap.Int("tasks", len(tasks)), zap.Int("leads", len(leads)))
	e.committed("snapshot", "", "seed")
	return true, nil
}
