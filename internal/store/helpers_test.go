package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dveraz/carbontrack/internal/model"
)

// newTestStore opens a fresh store in a temp directory and closes it
// when the test finishes.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// auditCount returns the number of rows in the audit trail.
func auditCount(t *testing.T, s *Store) int {
	t.Helper()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM auditoria").Scan(&n); err != nil {
		t.Fatalf("counting audit rows: %v", err)
	}
	return n
}

// adminUser returns the seeded administrator as an acting user.
func adminUser() *model.User {
	return &model.User{
		ID:       1,
		Username: "admin",
		FullName: "Administrador",
		Role:     model.Role{ID: 1, Name: model.RoleAdministrator},
		Active:   true,
	}
}

// addCompany inserts a company and fails the test on error.
func addCompany(t *testing.T, s *Store, name, sector string) *model.Company {
	t.Helper()

	c, err := NewCompanies(s).Add(context.Background(), model.Company{Name: name, Sector: sector})
	if err != nil {
		t.Fatalf("Add(%q) failed: %v", name, err)
	}
	return c
}
