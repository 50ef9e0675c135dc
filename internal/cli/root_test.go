package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "carbontrack", cmd.Use)
	assert.Contains(t, cmd.Long, "audit")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"init", "login", "users", "companies", "emissions", "sites", "audit", "filters", "export"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "xml", "audit"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// execute runs a fresh root command against the given database file and
// returns its combined output.
func execute(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--db", dbPath}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestInitAndCompaniesFlow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "flow.db")

	out, err := execute(t, dbPath, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Database initialized.")

	out, err = execute(t, dbPath, "companies", "add", "Verde SA", "--sector", "Energía")
	require.NoError(t, err)
	assert.Contains(t, out, "Verde SA")

	out, err = execute(t, dbPath, "--format", "json", "companies", "list")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			Name   string `json:"name"`
			Sector string `json:"sector"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Verde SA", resp.Data[0].Name)
	assert.Equal(t, "Energía", resp.Data[0].Sector)
}

func TestLoginCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "login.db")

	_, err := execute(t, dbPath, "init")
	require.NoError(t, err)

	out, err := execute(t, dbPath, "login", "admin", "--pass", "admin")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome Administrador (ADMINISTRADOR)")
	assert.Contains(t, out, "Session: ")

	_, err = execute(t, dbPath, "login", "admin", "--pass", "wrong")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestAttributedMutationAppearsInAudit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	_, err := execute(t, dbPath, "init")
	require.NoError(t, err)

	_, err = execute(t, dbPath, "companies", "add", "Trazas SL", "--sector", "Servicios")
	require.NoError(t, err)

	_, err = execute(t, dbPath,
		"--user", "admin", "--password", "admin",
		"sites", "add", "--company", "1", "--city", "Madrid", "--address", "C/ Uno 1")
	require.NoError(t, err)

	out, err := execute(t, dbPath, "audit")
	require.NoError(t, err)
	assert.Contains(t, out, "ALTA SEDE | Para: Trazas SL | Ubicación: Madrid")
	assert.Contains(t, out, "admin")
}

func TestSitesRequireActor(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "actor.db")

	_, err := execute(t, dbPath, "init")
	require.NoError(t, err)
	_, err = execute(t, dbPath, "companies", "add", "Sin Actor SA")
	require.NoError(t, err)

	_, err = execute(t, dbPath, "sites", "add", "--company", "1", "--city", "Madrid", "--address", "C/ Uno 1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "--user")
}

func TestUsersUpdateKeepsRoleAndActiveState(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "rename.db")

	_, err := execute(t, dbPath, "init")
	require.NoError(t, err)

	_, err = execute(t, dbPath, "users", "add", "bob", "Bob Díaz", "--pass", "pw", "--role", "CLIENTE")
	require.NoError(t, err)
	_, err = execute(t, dbPath, "login", "bob", "--pass", "pw")
	require.NoError(t, err)

	// A plain rename must not block the account or change its role.
	_, err = execute(t, dbPath, "users", "update", "2", "bob", "Bob Díaz Jr")
	require.NoError(t, err)

	out, err := execute(t, dbPath, "login", "bob", "--pass", "pw")
	require.NoError(t, err, "renamed account must still authenticate")
	assert.Contains(t, out, "Welcome Bob Díaz Jr (CLIENTE)")

	// Explicit flags still take effect.
	_, err = execute(t, dbPath, "users", "update", "2", "bob", "Bob Díaz Jr", "--active=false")
	require.NoError(t, err)
	_, err = execute(t, dbPath, "login", "bob", "--pass", "pw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BLOQUEADO")
}

func TestUsersUpdateMissingUser(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing.db")

	_, err := execute(t, dbPath, "init")
	require.NoError(t, err)

	_, err = execute(t, dbPath, "users", "update", "42", "nadie", "Nadie")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "user 42 not found")
}

func TestEmissionsUpdateKeepsUnsetFields(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "emupdate.db")

	_, err := execute(t, dbPath, "init")
	require.NoError(t, err)
	_, err = execute(t, dbPath, "companies", "add", "Medida SA", "--sector", "Industria")
	require.NoError(t, err)
	_, err = execute(t, dbPath, "emissions", "add",
		"--company", "1", "--type", "Consumo Eléctrico",
		"--quantity", "500", "--co2e", "120.5", "--date", "2024-03-15")
	require.NoError(t, err)

	// Changing one field must leave the others as stored.
	_, err = execute(t, dbPath, "emissions", "update", "1", "--co2e", "130")
	require.NoError(t, err)

	out, err := execute(t, dbPath, "--format", "json", "emissions", "list")
	require.NoError(t, err)

	var resp struct {
		Data []struct {
			Type     string  `json:"type"`
			Quantity float64 `json:"quantity"`
			CO2e     float64 `json:"co2e"`
			Date     string  `json:"date"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Consumo Eléctrico", resp.Data[0].Type)
	assert.Equal(t, 500.0, resp.Data[0].Quantity)
	assert.Equal(t, 130.0, resp.Data[0].CO2e)
	assert.Equal(t, "2024-03-15", resp.Data[0].Date)
}

func TestEmissionsUpdateMissingRow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "emmissing.db")

	_, err := execute(t, dbPath, "init")
	require.NoError(t, err)

	_, err = execute(t, dbPath, "emissions", "update", "7", "--co2e", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "emission 7 not found")
}

func TestReadCommandsRejectBadActorCredentials(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "badactor.db")

	_, err := execute(t, dbPath, "init")
	require.NoError(t, err)

	// Wrong credentials fail the command instead of silently skipping
	// the filter-history write.
	_, err = execute(t, dbPath, "--user", "admin", "--password", "wrong", "companies", "search", "x")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "actor authentication failed")

	_, err = execute(t, dbPath, "--user", "admin", "--password", "wrong", "export", "companies")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestInitWithDemoData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "demo.db")

	_, err := execute(t, dbPath, "init", "--demo")
	require.NoError(t, err)

	out, err := execute(t, dbPath, "--format", "json", "companies", "list")
	require.NoError(t, err)

	var resp struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data, 4)
}
