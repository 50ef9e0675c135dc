package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dveraz/carbontrack/internal/model"
	"github.com/dveraz/carbontrack/internal/store"
)

// CompaniesOptions holds flags for the companies subcommands.
type CompaniesOptions struct {
	*RootOptions
	Sector string
	Name   string
}

// NewCompaniesCommand creates the companies command group.
func NewCompaniesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompaniesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "companies",
		Short: "Manage companies",
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List companies alphabetically",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompaniesList(opts, cmd)
		},
	}

	search := &cobra.Command{
		Use:           "search [term]",
		Short:         "Search companies with accumulated CO2e totals",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			term := ""
			if len(args) == 1 {
				term = args[0]
			}
			return runCompaniesSearch(opts, cmd, term)
		},
	}

	add := &cobra.Command{
		Use:           "add <name>",
		Short:         "Register a company",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompaniesAdd(opts, cmd, args[0])
		},
	}
	add.Flags().StringVar(&opts.Sector, "sector", "", "business sector")

	update := &cobra.Command{
		Use:           "update <id>",
		Short:         "Rename a company or change its sector",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompaniesUpdate(opts, cmd, args[0])
		},
	}
	update.Flags().StringVar(&opts.Name, "name", "", "new company name (required)")
	update.Flags().StringVar(&opts.Sector, "sector", "", "new business sector")
	_ = update.MarkFlagRequired("name")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a company and its emissions and sites",
		Long: `Delete a company. Its emission records and sites are removed with
it in the same statement via cascading foreign keys.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompaniesRemove(opts, cmd, args[0])
		},
	}

	cmd.AddCommand(list, search, add, update, rm)
	return cmd
}

func runCompaniesList(opts *CompaniesOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	companies, err := store.NewCompanies(st).ListAll(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list companies", err)
	}

	return emit(cmd, opts.RootOptions, companies, func(w io.Writer) {
		for _, c := range companies {
			fmt.Fprintf(w, "[%d] %s (%s)\n", c.ID, c.Name, c.Sector)
		}
	})
}

func runCompaniesSearch(opts *CompaniesOptions, cmd *cobra.Command, term string) error {
	ctx := context.Background()

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	companies, err := store.NewCompanies(st).Search(ctx, term)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to search companies", err)
	}

	actor, err := resolveActor(ctx, st, opts.RootOptions)
	if err != nil {
		return err
	}
	if actor != nil {
		store.NewFilters(st).Record(ctx, term, "Alfabético", "EMPRESAS", *actor)
	}

	return emit(cmd, opts.RootOptions, companies, func(w io.Writer) {
		for _, c := range companies {
			fmt.Fprintf(w, "[%d] %s (%s) - %.2f kg CO2e\n", c.ID, c.Name, c.Sector, c.TotalCO2e)
		}
	})
}

func runCompaniesAdd(opts *CompaniesOptions, cmd *cobra.Command, name string) error {
	ctx := context.Background()

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	company, err := store.NewCompanies(st).Add(ctx, model.Company{Name: name, Sector: opts.Sector})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to add company", err)
	}

	return emit(cmd, opts.RootOptions, company, func(w io.Writer) {
		fmt.Fprintf(w, "Company %s added with id %d.\n", company.Name, company.ID)
	})
}

func runCompaniesUpdate(opts *CompaniesOptions, cmd *cobra.Command, idArg string) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid company id", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	actor, err := resolveActor(ctx, st, opts.RootOptions)
	if err != nil {
		return err
	}

	company := model.Company{ID: id, Name: opts.Name, Sector: opts.Sector}
	if err := store.NewCompanies(st).Update(ctx, company, actor); err != nil {
		return WrapExitError(ExitFailure, "failed to update company", err)
	}

	return emit(cmd, opts.RootOptions, company, func(w io.Writer) {
		fmt.Fprintf(w, "Company %d updated.\n", id)
	})
}

func runCompaniesRemove(opts *CompaniesOptions, cmd *cobra.Command, idArg string) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid company id", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := store.NewCompanies(st).Delete(ctx, id); err != nil {
		return WrapExitError(ExitFailure, "failed to delete company", err)
	}

	return emit(cmd, opts.RootOptions, map[string]int64{"deleted": id}, func(w io.Writer) {
		fmt.Fprintf(w, "Company %d deleted.\n", id)
	})
}
