// Package admin implements the 'imgbed admin' command family: the
// cookie-based admin session and credential management.
package admin

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/imgbed/imgbed/internal/api"
	"github.com/imgbed/imgbed/internal/cli/helpers"
)

// NewAdminCmd creates the admin command group.
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin session and credentials",
	}

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newUpdateCredentialsCmd())

	return cmd
}

// promptPassword reads a password without echo when stdin is a terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		data, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(data), nil
	}

	// Piped input (tests, scripts). An empty line is a valid answer.
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", fmt.Errorf("failed to read password: %w", scanner.Err())
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func newLoginCmd() *cobra.Command {
	var (
		username   string
		rememberMe bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if username == "" {
				fmt.Print("Username: ")
				if _, err := fmt.Scanln(&username); err != nil {
					return fmt.Errorf("failed to read username: %w", err)
				}
			}

			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}

			if err := app.Admin.Login(ctx, username, password, rememberMe); err != nil {
				if apiErr := api.AsError(err); apiErr != nil {
					if apiErr.Locked {
						return fmt.Errorf("account locked, retry in %d seconds", apiErr.RetryAfter)
					}
					if apiErr.RemainingAttempts >= 0 {
						return fmt.Errorf("%s (%d attempts remaining)", apiErr.Message, apiErr.RemainingAttempts)
					}
				}
				return err
			}

			fmt.Printf("Logged in as %s.\n", app.Admin.Username())
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username (prompted if omitted)")
	cmd.Flags().BoolVar(&rememberMe, "remember", false, "Request a long-lived session")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of the admin session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			app.Admin.Logout(cmd.Context())
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the admin session against the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}

			if app.Admin.RestoreAuth(cmd.Context()) {
				fmt.Printf("Logged in as %s.\n", app.Admin.Username())
				return nil
			}
			fmt.Println("Not logged in.")
			return nil
		},
	}
}

func newUpdateCredentialsCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "update-credentials",
		Short: "Change the admin username and/or password",
		Long: `Change the admin username and/or password.

Leave the password empty at the prompt to keep the current one. The
server enforces minimum lengths (3 for username, 6 for password).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if !app.Admin.RestoreAuth(ctx) {
				return fmt.Errorf("not logged in (run 'imgbed admin login')")
			}

			password, err := promptPassword("New password (empty to keep): ")
			if err != nil {
				return err
			}
			if username == "" && password == "" {
				return fmt.Errorf("nothing to change")
			}
			if password != "" {
				confirm, err := promptPassword("Confirm password: ")
				if err != nil {
					return err
				}
				if confirm != password {
					return fmt.Errorf("passwords do not match")
				}
			}

			if err := app.Admin.UpdateCredentials(ctx, username, password); err != nil {
				return err
			}
			fmt.Println("Credentials updated.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "New admin username (empty to keep)")

	return cmd
}
