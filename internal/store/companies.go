package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dveraz/carbontrack/internal/model"
)

// Companies manages the empresa table.
type Companies struct {
	st *Store
}

// NewCompanies returns a Companies repository backed by st.
func NewCompanies(st *Store) *Companies {
	return &Companies{st: st}
}

// Add inserts a company and returns it with the generated id. Name
// uniqueness is case-insensitive and enforced by the NOCASE index, so a
// clash surfaces as ErrDuplicateCompany from the insert itself instead
// of a racy read-then-write check.
func (c *Companies) Add(ctx context.Context, company model.Company) (*model.Company, error) {
	res, err := c.st.db.ExecContext(ctx,
		"INSERT INTO empresa (nombre, sector) VALUES (?, ?)", company.Name, company.Sector)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCompany
		}
		c.st.log.Error("add company failed", zap.String("name", company.Name), zap.Error(err))
		return nil, fmt.Errorf("add company: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("add company: last insert id: %w", err)
	}

	company.ID = id
	return &company, nil
}

// Update rewrites a company's name and sector by id. When actor is
// non-nil an audit entry commits in the same transaction. Renaming onto
// an existing name, ignoring case, yields ErrDuplicateCompany.
func (c *Companies) Update(ctx context.Context, company model.Company, actor *model.User) error {
	tx, err := c.st.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update company: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"UPDATE empresa SET nombre = ?, sector = ? WHERE id = ?",
		company.Name, company.Sector, company.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCompany
		}
		c.st.log.Error("update company failed", zap.Int64("id", company.ID), zap.Error(err))
		return fmt.Errorf("update company: %w", err)
	}

	if actor != nil {
		action := "MODIFICACIÓN EMPRESA | Nombre: " + company.Name
		if err := recordAudit(ctx, tx, action, actor.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update company: commit: %w", err)
	}
	return nil
}

// Delete removes a company. The schema's cascade rules take its
// emissions and sites with it; nothing belonging to other companies is
// touched. This destructive path writes no audit entry.
func (c *Companies) Delete(ctx context.Context, id int64) error {
	if _, err := c.st.db.ExecContext(ctx, "DELETE FROM empresa WHERE id = ?", id); err != nil {
		c.st.log.Error("delete company failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("delete company: %w", err)
	}
	return nil
}

// Search returns companies whose name or sector contains term, each
// with its accumulated CO2e footprint. Companies without emissions
// still appear, with a zero total.
func (c *Companies) Search(ctx context.Context, term string) ([]model.Company, error) {
	pattern := "%" + term + "%"
	rows, err := c.st.db.QueryContext(ctx, `
		SELECT c.id, c.nombre, c.sector, COALESCE(SUM(e.co2e), 0) AS total_co2e
		FROM empresa c
		LEFT JOIN registro_emisiones e ON c.id = e.id_empresa
		WHERE (c.nombre LIKE ? OR c.sector LIKE ?)
		GROUP BY c.id, c.nombre, c.sector
	`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search companies: %w", err)
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var company model.Company
		if err := rows.Scan(&company.ID, &company.Name, &company.Sector, &company.TotalCO2e); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, company)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}

	if companies == nil {
		companies = []model.Company{}
	}

	return companies, nil
}

// ListAll returns every company ordered by name, without aggregation,
// for selection lists.
func (c *Companies) ListAll(ctx context.Context) ([]model.Company, error) {
	rows, err := c.st.db.QueryContext(ctx,
		"SELECT id, nombre, sector FROM empresa ORDER BY nombre ASC")
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var company model.Company
		if err := rows.Scan(&company.ID, &company.Name, &company.Sector); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, company)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}

	if companies == nil {
		companies = []model.Company{}
	}

	return companies, nil
}
