package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dveraz/carbontrack/internal/model"
)

// Filters records the search/sort context in use when a report is
// exported. Telemetry only: writes are best-effort and never fail the
// operation that triggered them.
type Filters struct {
	st *Store
}

// NewFilters returns a Filters recorder backed by st.
func NewFilters(st *Store) *Filters {
	return &Filters{st: st}
}

// Record appends one filter-history row attributed to actor. An empty
// search term is stored as "Todo". Failures are logged and swallowed.
func (f *Filters) Record(ctx context.Context, term, sortDesc, contextLabel string, actor model.User) {
	if strings.TrimSpace(term) == "" {
		term = "Todo"
	}

	_, err := f.st.db.ExecContext(ctx, `
		INSERT INTO filtro (criterio_busqueda, ordenamiento, contexto, id_usuario)
		VALUES (?, ?, ?, ?)
	`, term, sortDesc, contextLabel, actor.ID)
	if err != nil {
		f.st.log.Warn("filter history write failed",
			zap.String("context", contextLabel), zap.Error(err))
	}
}

// ListHistory returns filter usage most recent first, rendered through
// the audit-entry shape so the history view can reuse the same table.
func (f *Filters) ListHistory(ctx context.Context) ([]model.AuditEntry, error) {
	rows, err := f.st.db.QueryContext(ctx, `
		SELECT f.fecha_hora, u.nombre_usuario, f.contexto, f.criterio_busqueda, f.ordenamiento
		FROM filtro f
		JOIN usuario u ON f.id_usuario = u.id
		ORDER BY f.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query filter history: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var timestamp, username, contextLabel, term, sortDesc string
		if err := rows.Scan(&timestamp, &username, &contextLabel, &term, &sortDesc); err != nil {
			return nil, fmt.Errorf("scan filter row: %w", err)
		}
		entries = append(entries, model.AuditEntry{
			Action:    fmt.Sprintf("[%s] Buscó: '%s' | Orden: %s", contextLabel, term, sortDesc),
			Timestamp: timestamp,
			Username:  username,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filter rows: %w", err)
	}

	if entries == nil {
		entries = []model.AuditEntry{}
	}

	return entries, nil
}
