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

// UsersOptions holds flags for the users subcommands.
type UsersOptions struct {
	*RootOptions
	NewPassword string
	RoleName    string
	Active      bool
	AllRoles    bool
}

// NewUsersCommand creates the users command group.
func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UsersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts and roles",
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List every account with role and state",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersList(opts, cmd)
		},
	}

	add := &cobra.Command{
		Use:   "add <username> <full name>",
		Short: "Create an account",
		Long: `Create an account with the given role. Supplying --user/--password
attributes the creation to that admin and audits it; without them the
creation is treated as self-registration and left unaudited.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersAdd(opts, cmd, args[0], args[1])
		},
	}
	add.Flags().StringVar(&opts.NewPassword, "pass", "", "password for the new account (required)")
	_ = add.MarkFlagRequired("pass")
	add.Flags().StringVar(&opts.RoleName, "role", model.RoleUser, "role name for the new account")

	update := &cobra.Command{
		Use:   "update <id> <username> <full name>",
		Short: "Edit an account, optionally changing its password",
		Long: `Edit an account's username, full name and role. The password is
only rewritten when --pass is given; role and active state keep their
stored values unless --role or --active is set.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersUpdate(opts, cmd, args[0], args[1], args[2])
		},
	}
	update.Flags().StringVar(&opts.NewPassword, "pass", "", "new password (keeps current when empty)")
	update.Flags().StringVar(&opts.RoleName, "role", "", "new role name (keeps current when empty)")
	update.Flags().BoolVar(&opts.Active, "active", true, "account active state (keeps current when not set)")

	block := &cobra.Command{
		Use:           "block <id>",
		Short:         "Deactivate an account without editing it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersSetActive(opts, cmd, args[0], false)
		},
	}

	unblock := &cobra.Command{
		Use:           "unblock <id>",
		Short:         "Reactivate a blocked account",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersSetActive(opts, cmd, args[0], true)
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an account",
		Long: `Delete an account. Accounts referenced by audit or filter history
cannot be deleted; block them instead.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersRemove(opts, cmd, args[0])
		},
	}

	roles := &cobra.Command{
		Use:           "roles",
		Short:         "List assignable roles",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersRoles(opts, cmd)
		},
	}
	roles.Flags().BoolVar(&opts.AllRoles, "all", false, "include ADMINISTRADOR")

	cmd.AddCommand(list, add, update, block, unblock, rm, roles)
	return cmd
}

func runUsersList(opts *UsersOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	users, err := store.NewUsers(st).ListAll(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list users", err)
	}

	return emit(cmd, opts.RootOptions, users, func(w io.Writer) {
		for _, u := range users {
			state := "activo"
			if !u.Active {
				state = "bloqueado"
			}
			fmt.Fprintf(w, "[%d] %s (%s) - %s - %s\n", u.ID, u.Username, u.FullName, u.Role.Name, state)
		}
	})
}

func runUsersAdd(opts *UsersOptions, cmd *cobra.Command, username, fullName string) error {
	ctx := context.Background()

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	actor, err := resolveActor(ctx, st, opts.RootOptions)
	if err != nil {
		return err
	}

	users := store.NewUsers(st)
	role, err := findRole(ctx, users, opts.RoleName, actor != nil)
	if err != nil {
		return err
	}

	if err := users.Create(ctx, username, opts.NewPassword, fullName, role, actor); err != nil {
		return WrapExitError(ExitFailure, "failed to create user", err)
	}

	return emit(cmd, opts.RootOptions, map[string]string{"created": username}, func(w io.Writer) {
		fmt.Fprintf(w, "User %s created with role %s.\n", username, role.Name)
	})
}

// findRole resolves a role by name. Self-registration (no actor) only
// sees the assignable roles, so ADMINISTRADOR cannot be minted from the
// open path.
func findRole(ctx context.Context, users *store.Users, name string, asAdmin bool) (model.Role, error) {
	var (
		roles []model.Role
		err   error
	)
	if asAdmin {
		roles, err = users.AllRoles(ctx)
	} else {
		roles, err = users.AssignableRoles(ctx)
	}
	if err != nil {
		return model.Role{}, WrapExitError(ExitCommandError, "failed to list roles", err)
	}

	for _, r := range roles {
		if r.Name == name {
			return r, nil
		}
	}
	return model.Role{}, WrapExitError(ExitFailure, fmt.Sprintf("role %q not available", name), nil)
}

func runUsersUpdate(opts *UsersOptions, cmd *cobra.Command, idArg, username, fullName string) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid user id", err)
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

	users := store.NewUsers(st)
	current, err := userByID(ctx, users, id)
	if err != nil {
		return err
	}

	// Unspecified flags keep the stored values, so a plain rename never
	// changes the account's role or blocks it.
	user := model.User{ID: id, Username: username, FullName: fullName, Role: current.Role, Active: current.Active}
	if cmd.Flags().Changed("role") {
		role, err := findRole(ctx, users, opts.RoleName, actor != nil)
		if err != nil {
			return err
		}
		user.Role = role
	}
	if cmd.Flags().Changed("active") {
		user.Active = opts.Active
	}

	if err := users.Update(ctx, user, opts.NewPassword, actor); err != nil {
		return WrapExitError(ExitFailure, "failed to update user", err)
	}

	return emit(cmd, opts.RootOptions, user, func(w io.Writer) {
		fmt.Fprintf(w, "User %d updated.\n", id)
	})
}

// userByID loads the stored account so edits start from its current
// field values.
func userByID(ctx context.Context, users *store.Users, id int64) (*model.User, error) {
	all, err := users.ListAll(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load user", err)
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, WrapExitError(ExitFailure, fmt.Sprintf("user %d not found", id), nil)
}

func runUsersSetActive(opts *UsersOptions, cmd *cobra.Command, idArg string, active bool) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid user id", err)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := store.NewUsers(st).SetActive(ctx, id, active); err != nil {
		return WrapExitError(ExitFailure, "failed to change account state", err)
	}

	state := "blocked"
	if active {
		state = "unblocked"
	}
	return emit(cmd, opts.RootOptions, map[string]interface{}{"id": id, "state": state}, func(w io.Writer) {
		fmt.Fprintf(w, "User %d %s.\n", id, state)
	})
}

func runUsersRemove(opts *UsersOptions, cmd *cobra.Command, idArg string) error {
	ctx := context.Background()

	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid user id", err)
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

	if err := store.NewUsers(st).Delete(ctx, id, actor); err != nil {
		return WrapExitError(ExitFailure, "failed to delete user", err)
	}

	return emit(cmd, opts.RootOptions, map[string]int64{"deleted": id}, func(w io.Writer) {
		fmt.Fprintf(w, "User %d deleted.\n", id)
	})
}

func runUsersRoles(opts *UsersOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	users := store.NewUsers(st)
	var roles []model.Role
	if opts.AllRoles {
		roles, err = users.AllRoles(ctx)
	} else {
		roles, err = users.AssignableRoles(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list roles", err)
	}

	return emit(cmd, opts.RootOptions, roles, func(w io.Writer) {
		for _, r := range roles {
			fmt.Fprintf(w, "[%d] %s\n", r.ID, r.Name)
		}
	})
}
