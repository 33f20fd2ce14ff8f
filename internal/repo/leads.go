package repo

import (
	"context"
	"database/sql"

	"zenflow/internal/domain"
)

func scanLead(s scanner) (domain.Lead, error) {
	var l domain.Lead
	var status string
	err := s.Scan(&l.ID, &l.Name, &l.Contact, &l.Description, &l.Cost, &status, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	l.Status = domain.LeadStatus(status)
	return l, err
}

func (r Repo) InsertLead(ctx context.Context, tx *sql.Tx, l domain.Lead) error {
	_, err := r.exec(tx).ExecContext(ctx, `INSERT INTO leads(id,name,contact,description,cost,status,created_at) VALUES (?,?,?,?,?,?,?)`,
		l.ID, l.Name, l.Contact, l.Description, l.Cost, string(l.Status), l.CreatedAt)
	return mapConstraint(err)
}

func (r Repo) GetLead(ctx context.Context, id string) (domain.Lead, error) {
	return r.GetLeadTx(ctx, nil, id)
}

func (r Repo) GetLeadTx(ctx context.Context, tx *sql.Tx, id string) (domain.Lead, error) {
	return scanLead(r.query(tx).QueryRowContext(ctx, `SELECT id,name,contact,description,cost,status,created_at FROM leads WHERE id=?`, id))
}

func (r Repo) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,contact,description,cost,status,created_at FROM leads ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func (r Repo) UpdateLeadStatus(ctx context.Context, tx *sql.Tx, id string, status domain.LeadStatus) error {
	res, err := r.exec(tx).ExecContext(ctx, `UPDATE leads SET status=? WHERE id=?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteLead(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.exec(tx).ExecContext(ctx, `DELETE FROM leads WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
