package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dveraz/carbontrack/internal/model"
	"github.com/dveraz/carbontrack/internal/store"
)

// EmissionsOptions holds flags for the emissions subcommands.
type EmissionsOptions struct {
	*RootOptions
	CompanyID int64
	Type      string
	Quantity  float64
	CO2e      float64
	Date      string
}

// NewEmissionsCommand creates the emissions command group.
func NewEmissionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EmissionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "emissions",
		Short: "Manage emission records",
	}

	list := &cobra.Command{
		Use:           "list [term]",
		Short:         "List emission records, optionally filtered by substring",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			term := ""
			if len(args) == 1 {
				term = args[0]
			}
			return runEmissionsList(opts, cmd, term)
		},
	}
	list.Flags().Int64Var(&opts.CompanyID, "company", 0, "restrict to one company id")

	add := &cobra.Command{
		Use:           "add",
		Short:         "Record an emission for a company",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmissionsAdd(opts, cmd)
		},
	}
	add.Flags().Int64Var(&opts.CompanyID, "company", 0, "company id (required)")
	add.Flags().StringVar(&opts.Type, "type", "", "emission type (required)")
	add.Flags().Float64Var(&opts.Quantity, "quantity", 0, "measured quantity")
	add.Flags().Float64Var(&opts.CO2e, "co2e", 0, "CO2 equivalent in kg")
	add.Flags().StringVar(&opts.Date, "date", "", "record date (YYYY-MM-DD, today if empty)")
	_ = add.MarkFlagRequired("company")
	_ = add.MarkFlagRequired("type")

	update := &cobra.Command{
		Use:           "update <id>",
		Short:         "Edit an emission record; unset flags keep stored values",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmissionsUpdate(opts, cmd, args[0])
		},
	}
	update.Flags().Int64Var(&opts.CompanyID, "company", 0, "new company id")
	update.Flags().StringVar(&opts.Type, "type", "", "new emission type")
	update.Flags().Float64Var(&opts.Quantity, "quantity", 0, "new measured quantity")
	update.Flags().Float64Var(&opts.CO2e, "co2e", 0, "new CO2 equivalent in kg")
	update.Flags().StringVar(&opts.Date, "date", "", "new record date (YYYY-MM-DD)")

	report := &cobra.Command{
		Use:           "report <company-id>",
		Short:         "Totals per emission type for one company",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmissionsReport(opts, cmd, args[0])
		},
	}

	rm := &cobra.Command{
		Use:           "rm <id>",
		Short:         "Delete an emission record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmissionsRemove(opts, cmd, args[0])
		},
	}

	cmd.AddCommand(list, add, update, report, rm)
	return cmd
}

func runEmissionsList(opts *EmissionsOptions, cmd *cobra.Command, term string) error {
	ctx := context.Background()

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	repo := store.NewEmissions(st)
	var emissions []model.Emission
	if opts.CompanyID > 0 {
		emissions, err = repo.SearchByCompany(ctx, opts.CompanyID, term)
	} else {
		emissions, err = repo.SearchAll(ctx, term)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list emissions", err)
	}

	actor, err := resolveActor(ctx, st, opts.RootOptions)
	if err != nil {
		return err
	}
	if actor != nil {
		store.NewFilters(st).Record(ctx, term, "Fecha desc", "EMISIONES", *actor)
	}

	return emit(cmd, opts.RootOptions, emissions, func(w io.Writer) {
		for _, e := range emissions {
			fmt.Fprintf(w, "[%d] %s - %s - %.2f kg CO2e - %s\n", e.ID, e.CompanyName, e.Type, e.CO2e, e.Date)
		}
	})
}

func runEmissionsAdd(opts *EmissionsOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	em, err := store.NewEmissions(st).Create(ctx, model.Emission{
		CompanyID: opts.CompanyID,
		Type:      opts.Type,
		Quantity:  opts.Quantity,
		CO2e:      opts.CO2e,
		Date:      opts.Date,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to record emission", err)
	}

	return emit(cmd, opts.RootOptions, em, func(w io.Writer) {
		fmt.Fprintf(w, "Emission %d recorded for company %d on %s.\n", em.ID, em.CompanyID, em.Date)
	})
}

func runEmissionsUpdate(opts *EmissionsOptions, cmd *cobra.Command, idArg string) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid emission id", err)
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

	repo := store.NewEmissions(st)
	em, err := repo.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitFailure, fmt.Sprintf("emission %d not found", id), nil)
		}
		return WrapExitError(ExitCommandError, "failed to load emission", err)
	}

	// Only flags the user actually set overwrite the stored row; dates
	// in particular stay untouched unless --date is given.
	if cmd.Flags().Changed("company") {
		em.CompanyID = opts.CompanyID
	}
	if cmd.Flags().Changed("type") {
		em.Type = opts.Type
	}
	if cmd.Flags().Changed("quantity") {
		em.Quantity = opts.Quantity
	}
	if cmd.Flags().Changed("co2e") {
		em.CO2e = opts.CO2e
	}
	if cmd.Flags().Changed("date") {
		em.Date = opts.Date
	}

	ok, err := repo.Update(ctx, *em, actor)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to update emission", err)
	}
	if !ok {
		return WrapExitError(ExitFailure, fmt.Sprintf("emission %d not found", id), nil)
	}

	return emit(cmd, opts.RootOptions, em, func(w io.Writer) {
		fmt.Fprintf(w, "Emission %d updated.\n", id)
	})
}

func runEmissionsReport(opts *EmissionsOptions, cmd *cobra.Command, idArg string) error {
	ctx := context.Background()

	companyID, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid company id", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	totals, err := store.NewEmissions(st).ReportByCompany(ctx, companyID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build report", err)
	}

	return emit(cmd, opts.RootOptions, totals, func(w io.Writer) {
		for _, t := range totals {
			fmt.Fprintf(w, "%s: %.2f kg CO2e\n", t.Type, t.Total)
		}
	})
}

func runEmissionsRemove(opts *EmissionsOptions, cmd *cobra.Command, idArg string) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid emission id", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := store.NewEmissions(st).Delete(ctx, id); err != nil {
		return WrapExitError(ExitFailure, "failed to delete emission", err)
	}

	return emit(cmd, opts.RootOptions, map[string]int64{"deleted": id}, func(w io.Writer) {
		fmt.Fprintf(w, "Emission %d deleted.\n", id)
	})
}
