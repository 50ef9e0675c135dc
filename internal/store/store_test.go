package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Open multiple times; schema, migrations and seeds must not error
	// or duplicate on reopen.
	for i := 0; i < 3; i++ {
		s, err := Open(path, nil)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var roles int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM rol").Scan(&roles); err != nil {
		t.Fatalf("counting roles: %v", err)
	}
	if roles != 3 {
		t.Errorf("roles = %d, want 3", roles)
	}

	var admins int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM usuario WHERE nombre_usuario = 'admin'").Scan(&admins); err != nil {
		t.Fatalf("counting admin rows: %v", err)
	}
	if admins != 1 {
		t.Errorf("admin rows = %d, want 1", admins)
	}
}

func TestOpen_MigratesSchemaVersion(t *testing.T) {
	s := newTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("reading user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}

	// The v1 migration adds the activo column; the admin must be active.
	var active int
	if err := s.db.QueryRow("SELECT activo FROM usuario WHERE id = 1").Scan(&active); err != nil {
		t.Fatalf("reading admin activo: %v", err)
	}
	if active != 1 {
		t.Errorf("admin activo = %d, want 1", active)
	}
}

func TestOpen_EnforcesForeignKeys(t *testing.T) {
	s := newTestStore(t)

	var on int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&on); err != nil {
		t.Fatalf("reading foreign_keys pragma: %v", err)
	}
	if on != 1 {
		t.Error("foreign_keys pragma is off")
	}

	// An emission pointing at a missing company must be rejected.
	_, err := s.db.Exec(
		"INSERT INTO registro_emisiones (id_empresa, tipo, cantidad, co2e, fecha) VALUES (999, 'x', 1, 1, '2024-01-01')")
	if err == nil {
		t.Error("insert with dangling company id succeeded")
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := newTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_SeedsFixedRoles(t *testing.T) {
	s := newTestStore(t)

	want := map[int64]string{1: "ADMINISTRADOR", 2: "USUARIO", 3: "CLIENTE"}
	rows, err := s.db.Query("SELECT id, nombre_rol FROM rol ORDER BY id")
	if err != nil {
		t.Fatalf("querying roles: %v", err)
	}
	defer rows.Close()

	got := map[int64]string{}
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			t.Fatalf("scanning role: %v", err)
		}
		got[id] = name
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterating roles: %v", err)
	}

	for id, name := range want {
		if got[id] != name {
			t.Errorf("role %d = %q, want %q", id, got[id], name)
		}
	}
}
