package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dveraz/carbontrack/internal/model"
)

const insertAuditSQL = `INSERT INTO auditoria (accion, fecha_hora, id_usuario) VALUES (?, datetime('now', 'localtime'), ?)`

// recordAudit appends one immutable audit row inside the caller's
// transaction. There is no standalone write path: an audit entry either
// commits with the mutation it documents or rolls back with it.
func recordAudit(ctx context.Context, tx *sql.Tx, action string, actorID int64) error {
	if _, err := tx.ExecContext(ctx, insertAuditSQL, action, actorID); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

// Audit reads the action trail.
type Audit struct {
	st *Store
}

// NewAudit returns an Audit backed by st.
func NewAudit(st *Store) *Audit {
	return &Audit{st: st}
}

// ListAll returns every audit entry, most recent first, with the
// actor's username resolved.
func (a *Audit) ListAll(ctx context.Context) ([]model.AuditEntry, error) {
	rows, err := a.st.db.QueryContext(ctx, `
		SELECT a.id, a.accion, a.fecha_hora, u.nombre_usuario
		FROM auditoria a
		JOIN usuario u ON a.id_usuario = u.id
		ORDER BY a.fecha_hora DESC, a.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.Timestamp, &e.Username); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	if entries == nil {
		entries = []model.AuditEntry{}
	}

	return entries, nil
}
