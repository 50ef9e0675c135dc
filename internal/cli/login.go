package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dveraz/carbontrack/internal/store"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	PasswordArg string
}

// LoginResult is the payload printed after a successful login.
type LoginResult struct {
	Session  string `json:"session"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Validate credentials and print a session token",
		Long: `Validate a credential pair against the store. Unknown usernames and
wrong passwords produce the same failure; a blocked account with
correct credentials reports the block explicitly.

Examples:
  carbontrack login admin --pass admin`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.PasswordArg, "pass", "", "password (required)")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func runLogin(opts *LoginOptions, cmd *cobra.Command, username string) error {
	ctx := context.Background()

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	user, err := store.NewAuth(st).Login(ctx, username, opts.PasswordArg)
	if err != nil {
		return WrapExitError(ExitFailure, "login failed", err)
	}

	result := LoginResult{
		Session:  uuid.NewString(),
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Role:     user.Role.Name,
	}
	return emit(cmd, opts.RootOptions, result, func(w io.Writer) {
		fmt.Fprintf(w, "Welcome %s (%s)\n", user.FullName, user.Role.Name)
		fmt.Fprintf(w, "Session: %s\n", result.Session)
	})
}
