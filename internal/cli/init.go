package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dveraz/carbontrack/internal/config"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Demo        bool
	WriteConfig string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database, schema and seed data",
		Long: `Create or upgrade the database file: tables, additive migrations,
the three fixed roles and the default administrator account. Safe to
run repeatedly.

Examples:
  carbontrack init --db ./carbon_tracker.db
  carbontrack init --db ./carbon_tracker.db --demo
  carbontrack init --write-config ./carbontrack.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Demo, "demo", false, "load the demonstration dataset")
	cmd.Flags().StringVar(&opts.WriteConfig, "write-config", "", "write a default config file to this path")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if opts.WriteConfig != "" {
		if err := config.WriteDefault(opts.WriteConfig); err != nil {
			return WrapExitError(ExitCommandError, "failed to write config", err)
		}
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.Demo {
		if err := st.SeedDemo(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to load demo data", err)
		}
	}

	result := map[string]interface{}{
		"initialized": true,
		"demo":        opts.Demo,
	}
	return emit(cmd, opts.RootOptions, result, func(w io.Writer) {
		fmt.Fprintln(w, "Database initialized.")
		if opts.Demo {
			fmt.Fprintln(w, "Demo data loaded.")
		}
	})
}
