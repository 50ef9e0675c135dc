package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dveraz/carbontrack/internal/model"
)

// SeedDemo loads a small demonstration dataset: one user per role, four
// companies, and per company four emissions and two sites. Existing
// users and companies are left alone, so reloading is safe.
func (s *Store) SeedDemo(ctx context.Context) error {
	users := NewUsers(s)
	companies := NewCompanies(s)
	emissions := NewEmissions(s)
	sites := NewSites(s)

	roles, err := users.AllRoles(ctx)
	if err != nil {
		return fmt.Errorf("seed demo: %w", err)
	}
	byName := make(map[string]model.Role, len(roles))
	for _, r := range roles {
		byName[r.Name] = r
	}

	demoUsers := []struct {
		username, password, fullName, role string
	}{
		{"empleado", "1234", "Empleado Test", model.RoleUser},
		{"cliente", "1234", "Cliente Visita", model.RoleClient},
	}
	for _, du := range demoUsers {
		role, ok := byName[du.role]
		if !ok {
			continue
		}
		err := users.Create(ctx, du.username, du.password, du.fullName, role, nil)
		if err != nil && !errors.Is(err, ErrDuplicateUsername) {
			return fmt.Errorf("seed demo user %s: %w", du.username, err)
		}
	}

	admin := model.User{ID: 1, Username: seedAdminUsername, Role: byName[model.RoleAdministrator], Active: true}

	demoCompanies := []struct {
		name, sector string
	}{
		{"TechSolar Solutions", "Energía"},
		{"Logística Rápida S.L.", "Transporte"},
		{"AgroCultivos Bio", "Agricultura"},
		{"Construcciones Norte", "Construcción"},
	}

	for _, dc := range demoCompanies {
		company, err := companies.Add(ctx, model.Company{Name: dc.name, Sector: dc.sector})
		if err != nil {
			if errors.Is(err, ErrDuplicateCompany) {
				continue
			}
			return fmt.Errorf("seed demo company %s: %w", dc.name, err)
		}

		demoEmissions := []model.Emission{
			{Type: "Consumo Eléctrico", Quantity: 500.0, CO2e: 120.5, CompanyID: company.ID},
			{Type: "Flota Vehículos", Quantity: 1000.0, CO2e: 2500.0, CompanyID: company.ID},
			{Type: "Generadores Diesel", Quantity: 200.0, CO2e: 800.0, CompanyID: company.ID},
			{Type: "Residuos Industriales", Quantity: 50.0, CO2e: 100.0, CompanyID: company.ID},
		}
		for _, em := range demoEmissions {
			if _, err := emissions.Create(ctx, em); err != nil {
				return fmt.Errorf("seed demo emission: %w", err)
			}
		}

		demoSites := []model.Site{
			{City: "Madrid", Address: "C/ Principal 1", CompanyID: company.ID},
			{City: "Barcelona", Address: "Av. Diagonal 200", CompanyID: company.ID},
		}
		for _, site := range demoSites {
			if err := sites.Create(ctx, site, admin, company.Name); err != nil {
				return fmt.Errorf("seed demo site: %w", err)
			}
		}
	}

	return nil
}
