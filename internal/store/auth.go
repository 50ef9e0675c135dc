package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dveraz/carbontrack/internal/model"
)

// HashPassword returns the hex SHA-256 digest of the UTF-8 password
// bytes. The scheme is deliberately unsalted: credential rows written
// by earlier releases must keep comparing equal, so the stored format
// is frozen. A known weakness, not an oversight.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Auth validates credentials against the stored hashes.
type Auth struct {
	st *Store
}

// NewAuth returns an Auth backed by st.
func NewAuth(st *Store) *Auth {
	return &Auth{st: st}
}

// Login returns the user matching the credential pair, with the role
// attached.
//
// Unknown usernames and wrong passwords both yield
// ErrInvalidCredentials. The active check runs only after the
// credentials matched, so a wrong password on a blocked account is
// still a plain credentials failure, and the blocked message never
// leaks account existence.
func (a *Auth) Login(ctx context.Context, username, password string) (*model.User, error) {
	row := a.st.db.QueryRowContext(ctx, `
		SELECT u.id, u.nombre_usuario, u.nombre_completo, u.activo, r.id, r.nombre_rol
		FROM usuario u
		JOIN rol r ON u.id_rol = r.id
		WHERE u.nombre_usuario = ? AND u.hash_contrasena = ?
	`, username, HashPassword(password))

	var u model.User
	var active int
	if err := row.Scan(&u.ID, &u.Username, &u.FullName, &active, &u.Role.ID, &u.Role.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		a.st.log.Error("login query failed", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("login: %w", err)
	}

	if active == 0 {
		return nil, ErrAccountBlocked
	}

	u.Active = true
	return &u, nil
}
