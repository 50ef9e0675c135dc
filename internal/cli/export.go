package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dveraz/carbontrack/internal/export"
	"github.com/dveraz/carbontrack/internal/model"
	"github.com/dveraz/carbontrack/internal/store"
)

// ExportOptions holds flags for the export subcommands.
type ExportOptions struct {
	*RootOptions
	Out       string
	XLSX      bool
	CompanyID int64
	Term      string
}

// NewExportCommand creates the export command group.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records to CSV or XLSX",
	}

	companies := &cobra.Command{
		Use:           "companies",
		Short:         "Export companies to CSV",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportCompanies(opts, cmd)
		},
	}
	companies.Flags().StringVar(&opts.Out, "out", "", "output file (stdout if empty)")

	emissions := &cobra.Command{
		Use:           "emissions",
		Short:         "Export emission records to CSV or XLSX",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportEmissions(opts, cmd)
		},
	}
	emissions.Flags().StringVar(&opts.Out, "out", "", "output file (stdout if empty; required with --xlsx)")
	emissions.Flags().BoolVar(&opts.XLSX, "xlsx", false, "write an XLSX workbook instead of CSV")
	emissions.Flags().Int64Var(&opts.CompanyID, "company", 0, "restrict to one company id")
	emissions.Flags().StringVar(&opts.Term, "term", "", "substring filter on company, type or date")

	cmd.AddCommand(companies, emissions)
	return cmd
}

// exportWriter opens the destination, or stdout when no path is given.
func exportWriter(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to create output file", err)
	}
	return f, f.Close, nil
}

func runExportCompanies(opts *ExportOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	companies, err := store.NewCompanies(st).ListAll(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load companies", err)
	}

	actor, err := resolveActor(ctx, st, opts.RootOptions)
	if err != nil {
		return err
	}
	if actor != nil {
		store.NewFilters(st).Record(ctx, "", "Alfabético", "EXPORT EMPRESAS", *actor)
	}

	w, closeFn, err := exportWriter(cmd, opts.Out)
	if err != nil {
		return err
	}
	if err := export.CompaniesCSV(w, companies); err != nil {
		_ = closeFn()
		return WrapExitError(ExitCommandError, "failed to write CSV", err)
	}
	if err := closeFn(); err != nil {
		return WrapExitError(ExitCommandError, "failed to close output file", err)
	}

	if opts.Out == "" {
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d companies to %s.\n", len(companies), opts.Out)
	return nil
}

func runExportEmissions(opts *ExportOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if opts.XLSX && opts.Out == "" {
		return WrapExitError(ExitCommandError, "--xlsx requires --out", nil)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	repo := store.NewEmissions(st)
	var emissions []model.Emission
	if opts.CompanyID > 0 {
		emissions, err = repo.SearchByCompany(ctx, opts.CompanyID, opts.Term)
	} else {
		emissions, err = repo.SearchAll(ctx, opts.Term)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load emissions", err)
	}

	actor, err := resolveActor(ctx, st, opts.RootOptions)
	if err != nil {
		return err
	}
	if actor != nil {
		store.NewFilters(st).Record(ctx, opts.Term, "Fecha desc", "EXPORT EMISIONES", *actor)
	}

	if opts.XLSX {
		if err := export.EmissionsXLSX(opts.Out, emissions); err != nil {
			return WrapExitError(ExitCommandError, "failed to write XLSX", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d emissions to %s.\n", len(emissions), opts.Out)
		return nil
	}

	w, closeFn, err := exportWriter(cmd, opts.Out)
	if err != nil {
		return err
	}
	if err := export.EmissionsCSV(w, emissions); err != nil {
		_ = closeFn()
		return WrapExitError(ExitCommandError, "failed to write CSV", err)
	}
	if err := closeFn(); err != nil {
		return WrapExitError(ExitCommandError, "failed to close output file", err)
	}

	if opts.Out == "" {
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d emissions to %s.\n", len(emissions), opts.Out)
	return nil
}
