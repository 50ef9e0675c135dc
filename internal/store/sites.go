package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dveraz/carbontrack/internal/model"
)

// defaultCountry is applied to every new site.
const defaultCountry = "España"

// Sites manages the sede table. Every mutation here is attributed, so
// the audit entry and the write share one transaction: both commit or
// both roll back.
type Sites struct {
	st *Store
}

// NewSites returns a Sites repository backed by st.
func NewSites(st *Store) *Sites {
	return &Sites{st: st}
}

// Create stores a new site with the default country. The (city,
// address) pair must be unique within the company, ignoring case;
// the unique index reports a clash as ErrDuplicateSite. companyName is
// only used to build the audit message.
func (s *Sites) Create(ctx context.Context, site model.Site, actor model.User, companyName string) error {
	tx, err := s.st.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create site: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sede (ciudad, pais, direccion, id_empresa)
		VALUES (?, ?, ?, ?)
	`, site.City, defaultCountry, site.Address, site.CompanyID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSite
		}
		s.st.log.Error("create site failed", zap.Int64("company_id", site.CompanyID), zap.Error(err))
		return fmt.Errorf("create site: %w", err)
	}

	action := fmt.Sprintf("ALTA SEDE | Para: %s | Ubicación: %s", companyName, site.City)
	if err := recordAudit(ctx, tx, action, actor.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create site: commit: %w", err)
	}
	return nil
}

// Update rewrites a site's city and address by id, audit entry in the
// same transaction. Moving onto another site's (city, address) within
// the company yields ErrDuplicateSite; the row being edited never
// conflicts with itself.
func (s *Sites) Update(ctx context.Context, site model.Site, actor model.User, companyName string) error {
	tx, err := s.st.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update site: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"UPDATE sede SET ciudad = ?, direccion = ? WHERE id = ?",
		site.City, site.Address, site.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSite
		}
		s.st.log.Error("update site failed", zap.Int64("id", site.ID), zap.Error(err))
		return fmt.Errorf("update site: %w", err)
	}

	action := fmt.Sprintf("MODIFICACIÓN SEDE | Empresa: %s | Nueva Ubicación: %s", companyName, site.City)
	if err := recordAudit(ctx, tx, action, actor.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update site: commit: %w", err)
	}
	return nil
}

// Delete removes a site, audit entry in the same transaction. city is
// carried by the caller because the row is gone before the audit
// message is built.
func (s *Sites) Delete(ctx context.Context, id int64, city string, actor model.User, companyName string) error {
	tx, err := s.st.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete site: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sede WHERE id = ?", id); err != nil {
		s.st.log.Error("delete site failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("delete site: %w", err)
	}

	action := fmt.Sprintf("BAJA SEDE | Empresa: %s | Ciudad: %s", companyName, city)
	if err := recordAudit(ctx, tx, action, actor.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete site: commit: %w", err)
	}
	return nil
}

// ListByCompany returns a company's sites.
func (s *Sites) ListByCompany(ctx context.Context, companyID int64) ([]model.Site, error) {
	rows, err := s.st.db.QueryContext(ctx, `
		SELECT id, ciudad, pais, direccion, id_empresa
		FROM sede
		WHERE id_empresa = ?
		ORDER BY id ASC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	var sites []model.Site
	for rows.Next() {
		var site model.Site
		if err := rows.Scan(&site.ID, &site.City, &site.Country, &site.Address, &site.CompanyID); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, site)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sites: %w", err)
	}

	if sites == nil {
		sites = []model.Site{}
	}

	return sites, nil
}
