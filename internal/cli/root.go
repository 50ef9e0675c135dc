package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	Database   string // overrides the configured database path
	Verbose    bool
	Format     string // "text" | "json"

	// Actor credentials for attributed mutations. Optional; commands
	// that audit their writes resolve these into the acting user.
	User     string
	Password string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the carbontrack root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "carbontrack",
		Short: "CarbonTrack - company CO2e tracking over an auditable local store",
		Long: `CarbonTrack keeps companies, their sites and their CO2e emission
records in an embedded SQLite file, with role-based users and a
tamper-evident audit trail. Mutations that carry an actor are audited
atomically with the write.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.User, "user", "", "acting username for audited operations")
	cmd.PersistentFlags().StringVar(&opts.Password, "password", "", "acting user's password")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewUsersCommand(opts))
	cmd.AddCommand(NewCompaniesCommand(opts))
	cmd.AddCommand(NewEmissionsCommand(opts))
	cmd.AddCommand(NewSitesCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewFiltersCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
