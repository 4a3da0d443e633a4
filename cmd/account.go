package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vibast-solutions/ms-go-todo/app/service"
	"github.com/vibast-solutions/ms-go-todo/app/types"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage user accounts",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create an account; leave the password empty to send an activation email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		req := &types.RegisterRequest{Email: args[0]}
		if err = req.Validate(); err != nil {
			return err
		}

		password, err := promptPassword(cmd.OutOrStdout())
		if err != nil {
			return err
		}

		ctx := context.Background()
		app, err := newApplication(ctx, cfg, service.WithAsyncRunner(syncDelivery))
		if err != nil {
			return err
		}
		defer app.Close()

		account, err := app.auth.CreateAccount(ctx, req.Email, password)
		if err != nil {
			if errors.Is(err, service.ErrUserExists) {
				return fmt.Errorf("an account for %q already exists", req.Email)
			}
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "account_id: %s\n", account.ID)
		fmt.Fprintf(out, "email: %s\n", account.Email)
		fmt.Fprintf(out, "activated: %t\n", account.IsActivated())
		return nil
	},
}

var accountResetCmd = &cobra.Command{
	Use:   "reset <email>",
	Short: "Send a password reset email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		app, err := newApplication(ctx, cfg, service.WithAsyncRunner(syncDelivery))
		if err != nil {
			return err
		}
		defer app.Close()

		account, err := app.auth.FindAccountByEmail(ctx, args[0])
		if err != nil {
			if errors.Is(err, service.ErrAccountNotFound) {
				return fmt.Errorf("no account for %q", args[0])
			}
			return err
		}

		if err = app.auth.RequestPasswordReset(ctx, &types.EmailRequest{Email: account.Email}); err != nil {
			return err
		}

		if account.IsActivated() {
			fmt.Fprintf(cmd.OutOrStdout(), "password reset email sent to %s\n", account.Email)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "account is not activated; activation email sent to %s\n", account.Email)
		}
		return nil
	},
}

func init() {
	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountResetCmd)
	rootCmd.AddCommand(accountCmd)
}

// promptPassword reads a password without echo. Input that is not a terminal yields an empty password.
func promptPassword(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Fprint(w, "Password (empty to send an activation email): ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
