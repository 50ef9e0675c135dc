package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dveraz/carbontrack/internal/model"
)

// Emissions manages the registro_emisiones table.
type Emissions struct {
	st *Store
}

// NewEmissions returns an Emissions repository backed by st.
func NewEmissions(st *Store) *Emissions {
	return &Emissions{st: st}
}

// Create inserts an emission record and re-reads the persisted row by
// its generated id, so the caller gets the store's authoritative field
// values rather than its own input. An empty date defaults to today;
// edits later preserve the date verbatim unless explicitly changed.
func (e *Emissions) Create(ctx context.Context, em model.Emission) (*model.Emission, error) {
	if em.Date == "" {
		em.Date = time.Now().Format("2006-01-02")
	}

	res, err := e.st.db.ExecContext(ctx, `
		INSERT INTO registro_emisiones (tipo, cantidad, co2e, fecha, id_empresa)
		VALUES (?, ?, ?, ?, ?)
	`, em.Type, em.Quantity, em.CO2e, em.Date, em.CompanyID)
	if err != nil {
		e.st.log.Error("create emission failed", zap.Int64("company_id", em.CompanyID), zap.Error(err))
		return nil, fmt.Errorf("create emission: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create emission: last insert id: %w", err)
	}

	return e.ByID(ctx, id)
}

// ByID reads one full emission row; ErrNotFound when no row matches.
func (e *Emissions) ByID(ctx context.Context, id int64) (*model.Emission, error) {
	row := e.st.db.QueryRowContext(ctx, `
		SELECT id, tipo, cantidad, co2e, fecha, id_empresa
		FROM registro_emisiones
		WHERE id = ?
	`, id)

	var em model.Emission
	if err := row.Scan(&em.ID, &em.Type, &em.Quantity, &em.CO2e, &em.Date, &em.CompanyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read emission: %w", err)
	}
	return &em, nil
}

// Update rewrites every mutable field by id inside one transaction.
// A target id matching no row rolls back and returns false with no
// audit entry written. When actor is non-nil the audit entry embeds the
// new CO2e value to two decimals.
func (e *Emissions) Update(ctx context.Context, em model.Emission, actor *model.User) (bool, error) {
	tx, err := e.st.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("update emission: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE registro_emisiones
		SET tipo = ?, cantidad = ?, co2e = ?, fecha = ?, id_empresa = ?
		WHERE id = ?
	`, em.Type, em.Quantity, em.CO2e, em.Date, em.CompanyID, em.ID)
	if err != nil {
		e.st.log.Error("update emission failed", zap.Int64("id", em.ID), zap.Error(err))
		return false, fmt.Errorf("update emission: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update emission: rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if actor != nil {
		action := fmt.Sprintf("MODIFICACIÓN EMISIÓN | ID: %d | Nuevo CO2e: %.2f", em.ID, em.CO2e)
		if err := recordAudit(ctx, tx, action, actor.ID); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("update emission: commit: %w", err)
	}
	return true, nil
}

// Delete removes one emission record. Unaudited.
func (e *Emissions) Delete(ctx context.Context, id int64) error {
	if _, err := e.st.db.ExecContext(ctx, "DELETE FROM registro_emisiones WHERE id = ?", id); err != nil {
		e.st.log.Error("delete emission failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("delete emission: %w", err)
	}
	return nil
}

// SearchAll returns emissions whose company name, type or date contains
// term, with the company name attached for display.
func (e *Emissions) SearchAll(ctx context.Context, term string) ([]model.Emission, error) {
	query := `
		SELECT e.id, e.tipo, e.cantidad, e.co2e, e.fecha, e.id_empresa, c.nombre
		FROM registro_emisiones e
		JOIN empresa c ON e.id_empresa = c.id
		WHERE (c.nombre LIKE ? OR e.tipo LIKE ? OR e.fecha LIKE ?)
	`
	return e.search(ctx, query, term)
}

// SearchByCompany is SearchAll restricted to one company.
func (e *Emissions) SearchByCompany(ctx context.Context, companyID int64, term string) ([]model.Emission, error) {
	query := `
		SELECT e.id, e.tipo, e.cantidad, e.co2e, e.fecha, e.id_empresa, c.nombre
		FROM registro_emisiones e
		JOIN empresa c ON e.id_empresa = c.id
		WHERE e.id_empresa = ?
		AND (c.nombre LIKE ? OR e.tipo LIKE ? OR e.fecha LIKE ?)
	`
	return e.search(ctx, query, term, companyID)
}

// search runs an emissions query whose last three parameters are the
// LIKE pattern. Optional leading predicate values bind first, in order.
func (e *Emissions) search(ctx context.Context, query, term string, leading ...any) ([]model.Emission, error) {
	pattern := "%" + term + "%"
	args := append(leading, pattern, pattern, pattern)

	rows, err := e.st.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search emissions: %w", err)
	}
	defer rows.Close()

	var emissions []model.Emission
	for rows.Next() {
		var em model.Emission
		if err := rows.Scan(&em.ID, &em.Type, &em.Quantity, &em.CO2e, &em.Date, &em.CompanyID, &em.CompanyName); err != nil {
			return nil, fmt.Errorf("scan emission: %w", err)
		}
		emissions = append(emissions, em)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emissions: %w", err)
	}

	if emissions == nil {
		emissions = []model.Emission{}
	}

	return emissions, nil
}

// ReportByCompany aggregates one company's emissions by type, summed
// and ordered by descending total. Primary input for the dashboard
// charts and the recommendation panel.
func (e *Emissions) ReportByCompany(ctx context.Context, companyID int64) ([]model.TypeTotal, error) {
	rows, err := e.st.db.QueryContext(ctx, `
		SELECT tipo, SUM(co2e) AS total_co2e
		FROM registro_emisiones
		WHERE id_empresa = ?
		GROUP BY tipo
		ORDER BY total_co2e DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("report emissions: %w", err)
	}
	defer rows.Close()

	var report []model.TypeTotal
	for rows.Next() {
		var tt model.TypeTotal
		if err := rows.Scan(&tt.Type, &tt.Total); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		report = append(report, tt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}

	if report == nil {
		report = []model.TypeTotal{}
	}

	return report, nil
}
