package store

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// Business outcomes of repository operations. Raw driver errors never
// cross the repository boundary unless wrapped; callers match these
// with errors.Is.
var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords. Callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("usuario o contraseña incorrectos")

	// ErrAccountBlocked carries the user-facing message shown when a
	// deactivated account presents correct credentials.
	ErrAccountBlocked = errors.New("ESTÁS BLOQUEADO: Tu cuenta se encuentra bloqueada. No puedes acceder.")

	// ErrDuplicateUsername reports a username uniqueness violation on
	// user creation or rename.
	ErrDuplicateUsername = errors.New("nombre de usuario ya registrado")

	// ErrDuplicateCompany reports a case-insensitive company name clash.
	ErrDuplicateCompany = errors.New("empresa ya existente")

	// ErrDuplicateSite reports a second site at the same city and
	// address for one company, ignoring case.
	ErrDuplicateSite = errors.New("la empresa ya tiene una sede en esa ciudad y dirección")

	// ErrUserHasHistory reports a user delete that was refused because
	// audit or filter rows reference the account. Blocking is the
	// supported remediation.
	ErrUserHasHistory = errors.New("el usuario tiene registros vinculados")

	// ErrNotFound reports a lookup by id that matched no row.
	ErrNotFound = errors.New("registro no encontrado")
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure, including NOCASE index violations.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// isForeignKeyViolation reports whether err is a SQLite FOREIGN KEY
// constraint failure.
func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
