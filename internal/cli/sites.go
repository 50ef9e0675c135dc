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

// SitesOptions holds flags for the sites subcommands.
type SitesOptions struct {
	*RootOptions
	CompanyID int64
	City      string
	Address   string
}

// NewSitesCommand creates the sites command group. Every site change is
// attributed, so the mutating subcommands require --user/--password.
func NewSitesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SitesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Manage company sites",
	}

	list := &cobra.Command{
		Use:           "list <company-id>",
		Short:         "List the sites of a company",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSitesList(opts, cmd, args[0])
		},
	}

	add := &cobra.Command{
		Use:           "add",
		Short:         "Register a site for a company",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSitesAdd(opts, cmd)
		},
	}
	add.Flags().Int64Var(&opts.CompanyID, "company", 0, "company id (required)")
	add.Flags().StringVar(&opts.City, "city", "", "city (required)")
	add.Flags().StringVar(&opts.Address, "address", "", "street address (required)")
	_ = add.MarkFlagRequired("company")
	_ = add.MarkFlagRequired("city")
	_ = add.MarkFlagRequired("address")

	update := &cobra.Command{
		Use:           "update <id>",
		Short:         "Change a site's city and address",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSitesUpdate(opts, cmd, args[0])
		},
	}
	update.Flags().Int64Var(&opts.CompanyID, "company", 0, "company id (required)")
	update.Flags().StringVar(&opts.City, "city", "", "new city (required)")
	update.Flags().StringVar(&opts.Address, "address", "", "new street address (required)")
	_ = update.MarkFlagRequired("company")
	_ = update.MarkFlagRequired("city")
	_ = update.MarkFlagRequired("address")

	rm := &cobra.Command{
		Use:           "rm <id>",
		Short:         "Delete a site",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSitesRemove(opts, cmd, args[0])
		},
	}
	rm.Flags().Int64Var(&opts.CompanyID, "company", 0, "company id (required)")
	rm.Flags().StringVar(&opts.City, "city", "", "city of the site, for the audit entry (required)")
	_ = rm.MarkFlagRequired("company")
	_ = rm.MarkFlagRequired("city")

	cmd.AddCommand(list, add, update, rm)
	return cmd
}

// requireActor resolves the authenticated actor and rejects anonymous
// invocations.
func requireActor(ctx context.Context, st *store.Store, opts *RootOptions) (model.User, error) {
	actor, err := resolveActor(ctx, st, opts)
	if err != nil {
		return model.User{}, err
	}
	if actor == nil {
		return model.User{}, WrapExitError(ExitFailure, "this command requires --user and --password", nil)
	}
	return *actor, nil
}

// companyName looks up the display name for the audit trail.
func companyName(ctx context.Context, st *store.Store, id int64) (string, error) {
	companies, err := store.NewCompanies(st).ListAll(ctx)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to resolve company", err)
	}
	for _, c := range companies {
		if c.ID == id {
			return c.Name, nil
		}
	}
	return "", WrapExitError(ExitFailure, fmt.Sprintf("company %d not found", id), nil)
}

func runSitesList(opts *SitesOptions, cmd *cobra.Command, idArg string) error {
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

	sites, err := store.NewSites(st).ListByCompany(ctx, companyID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sites", err)
	}

	return emit(cmd, opts.RootOptions, sites, func(w io.Writer) {
		for _, s := range sites {
			fmt.Fprintf(w, "[%d] %s, %s (%s)\n", s.ID, s.City, s.Address, s.Country)
		}
	})
}

func runSitesAdd(opts *SitesOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	actor, err := requireActor(ctx, st, opts.RootOptions)
	if err != nil {
		return err
	}
	name, err := companyName(ctx, st, opts.CompanyID)
	if err != nil {
		return err
	}

	site := model.Site{CompanyID: opts.CompanyID, City: opts.City, Address: opts.Address}
	if err := store.NewSites(st).Create(ctx, site, actor, name); err != nil {
		return WrapExitError(ExitFailure, "failed to add site", err)
	}

	return emit(cmd, opts.RootOptions, site, func(w io.Writer) {
		fmt.Fprintf(w, "Site %s added for %s.\n", site.City, name)
	})
}

func runSitesUpdate(opts *SitesOptions, cmd *cobra.Command, idArg string) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid site id", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	actor, err := requireActor(ctx, st, opts.RootOptions)
	if err != nil {
		return err
	}
	name, err := companyName(ctx, st, opts.CompanyID)
	if err != nil {
		return err
	}

	site := model.Site{ID: id, CompanyID: opts.CompanyID, City: opts.City, Address: opts.Address}
	if err := store.NewSites(st).Update(ctx, site, actor, name); err != nil {
		return WrapExitError(ExitFailure, "failed to update site", err)
	}

	return emit(cmd, opts.RootOptions, site, func(w io.Writer) {
		fmt.Fprintf(w, "Site %d updated.\n", id)
	})
}

func runSitesRemove(opts *SitesOptions, cmd *cobra.Command, idArg string) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid site id", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	actor, err := requireActor(ctx, st, opts.RootOptions)
	if err != nil {
		return err
	}
	name, err := companyName(ctx, st, opts.CompanyID)
	if err != nil {
		return err
	}

	if err := store.NewSites(st).Delete(ctx, id, opts.City, actor, name); err != nil {
		return WrapExitError(ExitFailure, "failed to delete site", err)
	}

	return emit(cmd, opts.RootOptions, map[string]int64{"deleted": id}, func(w io.Writer) {
		fmt.Fprintf(w, "Site %d deleted.\n", id)
	})
}
