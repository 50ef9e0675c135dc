package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dveraz/carbontrack/internal/store"
)

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "audit",
		Short:         "Show the audit trail, newest first",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, cmd)
		},
	}
}

func runAudit(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := store.NewAudit(st).ListAll(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list audit entries", err)
	}

	return emit(cmd, opts, entries, func(w io.Writer) {
		for _, e := range entries {
			fmt.Fprintf(w, "%s | %s | %s\n", e.Timestamp, e.Username, e.Action)
		}
	})
}

// NewFiltersCommand creates the filters command.
func NewFiltersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "filters",
		Short:         "Show search filter history, newest first",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilters(rootOpts, cmd)
		},
	}
}

func runFilters(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := store.NewFilters(st).ListHistory(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list filter history", err)
	}

	return emit(cmd, opts, entries, func(w io.Writer) {
		for _, e := range entries {
			fmt.Fprintf(w, "%s | %s | %s\n", e.Timestamp, e.Username, e.Action)
		}
	})
}
