package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dveraz/carbontrack/internal/model"
)

// Users manages accounts and role listings.
type Users struct {
	st *Store
}

// NewUsers returns a Users repository backed by st.
func NewUsers(st *Store) *Users {
	return &Users{st: st}
}

// Create inserts a new account with a hashed password. When actor is
// non-nil (an admin creating the account rather than self-registration)
// an audit entry commits in the same transaction. Duplicates are
// detected from the store's uniqueness violation, not a pre-check.
func (u *Users) Create(ctx context.Context, username, password, fullName string, role model.Role, actor *model.User) error {
	tx, err := u.st.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create user: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO usuario (nombre_usuario, hash_contrasena, nombre_completo, id_rol)
		VALUES (?, ?, ?, ?)
	`, username, HashPassword(password), fullName, role.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		u.st.log.Error("create user failed", zap.String("username", username), zap.Error(err))
		return fmt.Errorf("create user: %w", err)
	}

	if actor != nil {
		action := fmt.Sprintf("ALTA USUARIO | Nuevo: %s (%s)", username, role.Name)
		if err := recordAudit(ctx, tx, action, actor.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create user: commit: %w", err)
	}
	return nil
}

// Update rewrites an account's editable fields: username, full name,
// role and active state, plus the password hash when newPassword is
// non-empty. The SET clause list is assembled before the statement is
// prepared so parameter positions always line up with the clauses.
// Audit is written only when actor is non-nil, in the same transaction.
func (u *Users) Update(ctx context.Context, user model.User, newPassword string, actor *model.User) error {
	sets := []string{"nombre_usuario = ?", "nombre_completo = ?", "id_rol = ?", "activo = ?"}
	args := []any{user.Username, user.FullName, user.Role.ID, boolToInt(user.Active)}
	if newPassword != "" {
		sets = append(sets, "hash_contrasena = ?")
		args = append(args, HashPassword(newPassword))
	}
	args = append(args, user.ID)
	query := "UPDATE usuario SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	tx, err := u.st.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update user: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		u.st.log.Error("update user failed", zap.Int64("id", user.ID), zap.Error(err))
		return fmt.Errorf("update user: %w", err)
	}

	if actor != nil {
		action := "MODIFICACIÓN USUARIO | ID: " + user.Username
		if err := recordAudit(ctx, tx, action, actor.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update user: commit: %w", err)
	}
	return nil
}

// SetActive toggles the block flag without touching anything else.
// A single statement, and deliberately unaudited, unlike Update.
func (u *Users) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := u.st.db.ExecContext(ctx,
		"UPDATE usuario SET activo = ? WHERE id = ?", boolToInt(active), id)
	if err != nil {
		u.st.log.Error("set active failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// Delete removes an account. The display name is read first so the
// audit message survives the row. A delete that touches no row, or one
// refused by the audit/filter foreign keys, rolls back and reports
// ErrUserHasHistory; callers should offer blocking instead.
func (u *Users) Delete(ctx context.Context, id int64, actor *model.User) error {
	tx, err := u.st.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete user: begin tx: %w", err)
	}
	defer tx.Rollback()

	name := "Desconocido"
	err = tx.QueryRowContext(ctx, "SELECT nombre_usuario FROM usuario WHERE id = ?", id).Scan(&name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete user: lookup name: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM usuario WHERE id = ?", id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserHasHistory
		}
		u.st.log.Error("delete user failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete user: rows affected: %w", err)
	} else if n == 0 {
		return ErrUserHasHistory
	}

	if actor != nil {
		if err := recordAudit(ctx, tx, "BAJA USUARIO | Eliminado: "+name, actor.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserHasHistory
		}
		return fmt.Errorf("delete user: commit: %w", err)
	}
	return nil
}

// ListAll returns every account with role and active state.
func (u *Users) ListAll(ctx context.Context) ([]model.User, error) {
	rows, err := u.st.db.QueryContext(ctx, `
		SELECT u.id, u.nombre_usuario, u.nombre_completo, u.activo, r.id, r.nombre_rol
		FROM usuario u
		JOIN rol r ON u.id_rol = r.id
		ORDER BY u.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var user model.User
		var active int
		if err := rows.Scan(&user.ID, &user.Username, &user.FullName, &active, &user.Role.ID, &user.Role.Name); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user.Active = active != 0
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	if users == nil {
		users = []model.User{}
	}

	return users, nil
}

// AssignableRoles returns the roles offered during registration.
// ADMINISTRADOR is excluded so self-registration can never mint admins.
func (u *Users) AssignableRoles(ctx context.Context) ([]model.Role, error) {
	return u.listRoles(ctx, "SELECT id, nombre_rol FROM rol WHERE nombre_rol != 'ADMINISTRADOR'")
}

// AllRoles returns every role, ADMINISTRADOR included, for admins
// reassigning roles.
func (u *Users) AllRoles(ctx context.Context) ([]model.Role, error) {
	return u.listRoles(ctx, "SELECT id, nombre_rol FROM rol")
}

func (u *Users) listRoles(ctx context.Context, query string) ([]model.Role, error) {
	rows, err := u.st.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var r model.Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	if roles == nil {
		roles = []model.Role{}
	}

	return roles, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
