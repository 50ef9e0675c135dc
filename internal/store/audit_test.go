package store

import (
	"context"
	"strings"
	"testing"

	"github.com/dveraz/carbontrack/internal/model"
)

func TestAuditListAll_ResolvesActorAndOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := addCompany(t, s, "Trazable SA", "x")
	sites := NewSites(s)
	if err := sites.Create(ctx, model.Site{CompanyID: c.ID, City: "Madrid", Address: "C/ Uno 1"}, *adminUser(), c.Name); err != nil {
		t.Fatalf("Create site failed: %v", err)
	}
	if err := sites.Create(ctx, model.Site{CompanyID: c.ID, City: "Bilbao", Address: "C/ Dos 2"}, *adminUser(), c.Name); err != nil {
		t.Fatalf("Create site failed: %v", err)
	}

	entries, err := NewAudit(s).ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	// Same-second writes fall back to id order, so the later insert
	// still lists first.
	if !strings.Contains(entries[0].Action, "Bilbao") {
		t.Errorf("entries[0] = %q, want the Bilbao entry first", entries[0].Action)
	}
	for _, e := range entries {
		if e.Username != "admin" {
			t.Errorf("username = %q, want admin", e.Username)
		}
		if e.Timestamp == "" {
			t.Error("timestamp is empty")
		}
	}
}

func TestAuditListAll_EmptyTrail(t *testing.T) {
	s := newTestStore(t)

	entries, err := NewAudit(s).ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}
	if entries == nil {
		t.Error("empty trail returned nil, want empty slice")
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestFiltersRecord_EmptyTermStoredAsTodo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	filters := NewFilters(s)

	filters.Record(ctx, "", "Alfabético", "EMPRESAS", *adminUser())
	filters.Record(ctx, "   ", "Fecha desc", "EMISIONES", *adminUser())
	filters.Record(ctx, "solar", "Alfabético", "EXPORT EMPRESAS", *adminUser())

	history, err := filters.ListHistory(ctx)
	if err != nil {
		t.Fatalf("ListHistory() failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history rows = %d, want 3", len(history))
	}

	// Most recent first.
	if want := "[EXPORT EMPRESAS] Buscó: 'solar' | Orden: Alfabético"; history[0].Action != want {
		t.Errorf("history[0] = %q, want %q", history[0].Action, want)
	}
	if want := "[EMISIONES] Buscó: 'Todo' | Orden: Fecha desc"; history[1].Action != want {
		t.Errorf("history[1] = %q, want %q", history[1].Action, want)
	}
	if want := "[EMPRESAS] Buscó: 'Todo' | Orden: Alfabético"; history[2].Action != want {
		t.Errorf("history[2] = %q, want %q", history[2].Action, want)
	}
	if history[0].Username != "admin" {
		t.Errorf("username = %q, want admin", history[0].Username)
	}
}

func TestFiltersRecord_FailureIsSwallowed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Actor id 999 violates the filtro foreign key; Record must not
	// panic or surface the error, only skip the row.
	NewFilters(s).Record(ctx, "x", "Alfabético", "EMPRESAS", model.User{ID: 999})

	history, err := NewFilters(s).ListHistory(ctx)
	if err != nil {
		t.Fatalf("ListHistory() failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history rows = %d, want 0", len(history))
	}
}
