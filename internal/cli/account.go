package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/taskflow/internal/auth"
	"github.com/nhle/taskflow/internal/notify"
)

func newSignUpCmd(o *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), o)
			if err != nil {
				return err
			}
			defer e.Close()

			if email == "" {
				if email, err = o.ask("Email", false); err != nil {
					return err
				}
			}
			password, err := askNewPassword(o, "Password")
			if err != nil {
				return err
			}

			gate := e.gate(notify.NewLogger(e.log))
			if err := gate.SignUp(cmd.Context(), email, password); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created. Signed in as %s.\n", gate.State().Identity.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newLoginCmd(o *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), o)
			if err != nil {
				return err
			}
			defer e.Close()

			if email == "" {
				if email, err = o.ask("Email", false); err != nil {
					return err
				}
			}
			password, err := o.ask("Password", true)
			if err != nil {
				return err
			}

			gate := e.gate(notify.NewLogger(e.log))
			if err := gate.SignIn(cmd.Context(), email, password); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", gate.State().Identity.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newLogoutCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), o)
			if err != nil {
				return err
			}
			defer e.Close()

			gate := e.gate(notify.NewLogger(e.log))
			if _, err := e.signedIn(cmd.Context(), gate); err != nil {
				return err
			}
			if err := gate.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newPasswdCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the signed-in account's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), o)
			if err != nil {
				return err
			}
			defer e.Close()

			gate := e.gate(notify.NewLogger(e.log))
			if _, err := e.signedIn(cmd.Context(), gate); err != nil {
				return err
			}

			current, err := o.ask("Current password", true)
			if err != nil {
				return err
			}
			next, err := askNewPassword(o, "New password")
			if err != nil {
				return err
			}
			if err := gate.ChangePassword(cmd.Context(), current, next); err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password updated.")
			return nil
		},
	}
}

// askNewPassword prompts for a password twice and requires both to match.
func askNewPassword(o *options, title string) (string, error) {
	password, err := o.ask(title, true)
	if err != nil {
		return "", err
	}
	confirm, err := o.ask("Confirm "+title, true)
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

// userError replaces an auth failure with its user-facing message.
func userError(err error) error {
	if auth.IsError(err) {
		return errors.New(auth.UserMessage(err))
	}
	return err
}
