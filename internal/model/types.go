package model

// Fixed role names seeded by the store. ADMINISTRADOR is never offered
// during self-registration; admins can still assign it.
const (
	RoleAdministrator = "ADMINISTRADOR"
	RoleUser          = "USUARIO"
	RoleClient        = "CLIENTE"
)

// Role is an access level. The store seeds exactly three by fixed id.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is an account able to authenticate against the store.
// Inactive users keep their row and history but cannot log in;
// blocking is the supported deactivation path when a user has
// audit history that prevents deletion.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
	Active   bool   `json:"active"`
}

// Company owns sites and emission records. Deleting a company cascades
// to both.
type Company struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Sector string `json:"sector"`

	// TotalCO2e is the aggregated footprint in kg, filled only by
	// Companies.Search. Zero for companies without emissions.
	TotalCO2e float64 `json:"total_co2e"`
}

// Emission is one recorded consumption entry with its CO2-equivalent.
type Emission struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"`
	Quantity  float64 `json:"quantity"`
	CO2e      float64 `json:"co2e"` // kilograms
	Date      string  `json:"date"` // ISO date as stored
	CompanyID int64   `json:"company_id"`

	// CompanyName is filled by joined searches for display; it is not a
	// stored column.
	CompanyName string `json:"company_name,omitempty"`
}

// Site is a physical location belonging to a company.
type Site struct {
	ID        int64  `json:"id"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Address   string `json:"address"`
	CompanyID int64  `json:"company_id"`
}

// AuditEntry is one immutable row of the action trail. Entries are only
// ever written inside the transaction of the mutation they document.
type AuditEntry struct {
	ID        int64  `json:"id"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
}

// TypeTotal is one row of the per-company emissions report: a type and
// its summed CO2e in kg.
type TypeTotal struct {
	Type  string  `json:"type"`
	Total float64 `json:"total"`
}
