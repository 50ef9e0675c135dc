package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - initial schema (usuario without the block flag)
// 1 - added usuario.activo for account blocking
const currentSchemaVersion = 1

// Default administrator seeded on first run so the system is always
// enterable. Deployments are expected to change the password.
const (
	seedAdminUsername = "admin"
	seedAdminPassword = "admin"
	seedAdminFullName = "Administrador"
)

// Store owns the embedded SQLite database: file lifecycle, pragmas,
// schema, migrations and seed data. Repositories are thin views over it.
//
// The pool is limited to a single connection. SQLite only supports one
// writer anyway, and it guarantees the per-connection foreign_keys
// pragma applies to every statement the repositories run.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open creates or opens the database at path. It is idempotent: pragmas,
// schema, migrations and seed rows are applied on every call and are
// all no-ops once in place. The backing file is created if absent.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := seedFixtures(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed fixtures: %w", err)
	}

	return &Store{db: db, log: log}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB. Prefer the repository types.
func (s *Store) DB() *sql.DB {
	return s.db
}

// applyPragmas sets required SQLite configuration. foreign_keys is a
// per-connection setting in SQLite; the single-connection pool keeps it
// in force for the whole process.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental, additive-only schema migrations
// keyed on PRAGMA user_version. Earlier releases detected missing
// columns by catching "duplicate column" errors; the version counter
// replaces that while keeping the additive contract.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the activo column to usuario. Databases created
// before account blocking existed lack it; rows default to active.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec("ALTER TABLE usuario ADD COLUMN activo INTEGER NOT NULL DEFAULT 1")
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// seedFixtures inserts the three fixed roles and the default
// administrator, all ignore-on-conflict so reopening never duplicates.
func seedFixtures(db *sql.DB) error {
	roles := []struct {
		id   int64
		name string
	}{
		{1, "ADMINISTRADOR"},
		{2, "USUARIO"},
		{3, "CLIENTE"},
	}

	for _, r := range roles {
		if _, err := db.Exec(
			"INSERT OR IGNORE INTO rol (id, nombre_rol) VALUES (?, ?)", r.id, r.name,
		); err != nil {
			return fmt.Errorf("seed role %s: %w", r.name, err)
		}
	}

	_, err := db.Exec(
		`INSERT OR IGNORE INTO usuario (id, nombre_usuario, hash_contrasena, nombre_completo, id_rol)
		 VALUES (1, ?, ?, ?, 1)`,
		seedAdminUsername, HashPassword(seedAdminPassword), seedAdminFullName,
	)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
