package engine

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"zenflow/internal/domain"
	"zenflow/internal/engine/auth"
	"zenflow/internal/payroll"
)

func canReadLeads(req payroll.Requester) bool {
	return auth.Has(req.Role, auth.PermLeadRead)
}

type LeadCreateOptions struct {
	Name        string
	Contact     string
	Description string
	Cost        float64
}

func (e Engine) ListLeads(ctx context.Context, req payroll.Requester) ([]domain.Lead, error) {
	if err := auth.Require(req.Role, auth.PermLeadRead); err != nil {
		return nil, err
	}
	return e.Repo.ListLeads(ctx)
}

func (e Engine) CreateLead(ctx context.Context, req payroll.Requester, opts LeadCreateOptions) (domain.Lead, error) {
	if err := auth.Require(req.Role, auth.PermLeadWrite); err != nil {
		return domain.Lead{}, err
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return domain.Lead{}, invalid("name is required")
	}
	if opts.Cost < 0 {
		return domain.Lead{}, invalid("cost must not be negative")
	}
	l := domain.Lead{
		ID:          uuid.NewString(),
		Name:        name,
		Contact:     strings.TrimSpace(opts.Contact),
		Description: opts.Description,
		Cost:        opts.Cost,
		Status:      domain.LeadNew,
		CreatedAt:   e.nowMillis(),
	}
	if err := e.write(ctx, func(tx *sql.Tx) error {
		return e.Repo.InsertLead(ctx, tx, l)
	}); err != nil {
		return domain.Lead{}, err
	}
	e.committed("leads", l.ID, "create")
	return l, nil
}

// AdvanceLead moves a lead to the next funnel stage. WON and LOST leads are
// returned unchanged.
func (e Engine) AdvanceLead(ctx context.Context, req payroll.Requester, id string) (domain.Lead, error) {
	return e.moveLead(ctx, req, id, "advance", func(s domain.LeadStatus) (domain.LeadStatus, bool) {
		return s.Advance()
	})
}

// LoseLead marks a non-terminal lead LOST.
func (e Engine) LoseLead(ctx context.Context, req payroll.Requester, id string) (domain.Lead, error) {
	return e.moveLead(ctx, req, id, "lose", func(s domain.LeadStatus) (domain.LeadStatus, bool) {
		if s.Terminal() {
			return s, false
		}
		return domain.LeadLost, true
	})
}

func (e Engine) moveLead(ctx context.Context, req payroll.Requester, id, action string, step func(domain.LeadStatus) (domain.LeadStatus, bool)) (domain.Lead, error) {
	if err := auth.Require(req.Role, auth.PermLeadWrite); err != nil {
		return domain.Lead{}, err
	}
	var l domain.Lead
	changed := false
	err := e.write(ctx, func(tx *sql.Tx) error {
		var err error
		l, err = e.Repo.GetLeadTx(ctx, tx, id)
		if err != nil {
			return err
		}
		next, ok := step(l.Status)
		if !ok {
			return nil
		}
		l.Status = next
		changed = true
		return e.Repo.UpdateLeadStatus(ctx, tx, l.ID, next)
	})
	if err != nil {
		return domain.Lead{}, err
	}
	if changed {
		e.committed("leads", l.ID, action)
	}
	return l, nil
}

func (e Engine) DeleteLead(ctx context.Context, req payroll.Requester, id string) error {
	if err := auth.Require(req.Role, auth.PermLeadWrite); err != nil {
		return err
	}
	if err := e.write(ctx, func(tx *sql.Tx) error {
		return e.Repo.DeleteLead(ctx, tx, id)
	}); err != nil {
		return err
	}
	e.committed("leads", id, "delete")
	return nil
}
