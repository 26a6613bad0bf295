// Package tg implements the 'imgbed tg' command family: Telegram login
// flows, device session management, and token sync.
package tg

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/imgbed/imgbed/internal/api"
	"github.com/imgbed/imgbed/internal/cli/helpers"
	"github.com/imgbed/imgbed/internal/constants"
	"github.com/imgbed/imgbed/internal/retry"
)

// NewTgCmd creates the tg command group.
func NewTgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tg",
		Short: "Telegram login and device sessions",
		Long: `Log in via Telegram and manage device sessions.

Two login flows are supported:
  login  - the bot sends a code to your Telegram account; you type it here
  code   - this device shows a code; you send it to the bot from any device

After login, tokens linked to your Telegram identity are synced into the
local vault automatically.`,
	}

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newCodeCmd())
	cmd.AddCommand(newLinkCmd())
	cmd.AddCommand(newSessionsCmd())
	cmd.AddCommand(newRevokeCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newHeartbeatCmd())
	cmd.AddCommand(newLogoutCmd())

	return cmd
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <telegram-username>",
		Short: "Log in with a code sent to your Telegram account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			username := strings.TrimPrefix(args[0], "@")

			if err := app.TgAuth.RequestCode(ctx, username); err != nil {
				return err
			}
			fmt.Printf("A login code was sent to @%s on Telegram.\n", username)
			fmt.Print("Enter code: ")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			if !scanner.Scan() {
				return fmt.Errorf("no code entered")
			}
			code := strings.TrimSpace(scanner.Text())

			if err := app.TgAuth.VerifyCode(ctx, username, code); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if !app.TgAuth.IsLoggedIn() {
				return fmt.Errorf("server did not establish a session")
			}

			fmt.Printf("Logged in as %s.\n", app.TgAuth.User().DisplayName())
			return syncAfterLogin(cmd, app)
		},
	}
	return cmd
}

// errCodePending drives the polling retry loop while the bot-side
// confirmation has not landed.
var errCodePending = errors.New("code still pending")

func newCodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Log in by sending a code to the bot from another device",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			webCode, err := app.TgAuth.GenerateWebCode(ctx)
			if err != nil {
				return fmt.Errorf("failed to generate login code: %w", err)
			}

			fmt.Printf("Your login code: %s\n", webCode.Code)
			fmt.Printf("Send it to @%s on Telegram, or open:\n", webCode.BotUsername)
			fmt.Printf("  https://t.me/%s?start=%s\n", webCode.BotUsername, webCode.Code)
			fmt.Println()
			fmt.Println("Waiting for confirmation...")

			interval := constants.DefaultWebCodePollInterval
			cfg := retry.Config{
				MaxRetries:     int(constants.DefaultWebCodePollTimeout / interval),
				InitialBackoff: interval,
				MaxBackoff:     interval, // fixed cadence, not exponential
			}

			err = retry.Do(ctx, cfg, func() error {
				status, pollErr := app.TgAuth.PollCodeStatus(ctx, webCode.Code)
				if pollErr != nil {
					// Transient server trouble; keep polling.
					return errCodePending
				}
				switch status {
				case api.CodeStatusOK:
					return nil
				case api.CodeStatusExpired:
					return fmt.Errorf("login code expired, run 'imgbed tg code' again")
				default:
					return errCodePending
				}
			}, func(err error) bool {
				return errors.Is(err, errCodePending)
			})
			if err != nil {
				if errors.Is(err, errCodePending) {
					return fmt.Errorf("timed out waiting for confirmation")
				}
				return err
			}

			if !app.TgAuth.IsLoggedIn() {
				return fmt.Errorf("server did not establish a session")
			}
			fmt.Printf("Logged in as %s.\n", app.TgAuth.User().DisplayName())
			return syncAfterLogin(cmd, app)
		},
	}
	return cmd
}

func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link <code>",
		Short: "Log in with a one-time login-link code from the bot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if err := app.TgAuth.ConsumeLoginLink(ctx, args[0]); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if !app.TgAuth.IsLoggedIn() {
				return fmt.Errorf("server did not establish a session")
			}

			fmt.Printf("Logged in as %s.\n", app.TgAuth.User().DisplayName())
			return syncAfterLogin(cmd, app)
		},
	}
	return cmd
}

// syncAfterLogin merges identity-linked tokens into the vault, matching
// the web client's post-login behavior.
func syncAfterLogin(cmd *cobra.Command, app *helpers.App) error {
	ctx := cmd.Context()
	if err := app.RestoreVault(ctx); err != nil {
		return err
	}
	before := len(app.Vault.Items())
	app.TgAuth.SyncTokensToVault(ctx)
	if added := len(app.Vault.Items()) - before; added > 0 {
		fmt.Printf("Synced %d token(s) into the vault.\n", added)
	}
	return nil
}

// sessionRow is the session listing output shape.
type sessionRow struct {
	SessionID string `json:"session_id" header:"SESSION"`
	Device    string `json:"device" header:"DEVICE"`
	Platform  string `json:"platform" header:"PLATFORM"`
	IP        string `json:"ip_address" header:"IP"`
	LastSeen  string `json:"last_seen_at" header:"LAST SEEN"`
	Current   string `json:"current" header:"CURRENT"`
}

func newSessionsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List devices logged in to your identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if err := app.TgAuth.CheckSession(ctx); err != nil || !app.TgAuth.IsLoggedIn() {
				return fmt.Errorf("not logged in (run 'imgbed tg login')")
			}

			data, err := app.TgAuth.FetchSessions(ctx)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			rows := make([]sessionRow, 0, len(data.Sessions))
			for _, s := range data.Sessions {
				row := sessionRow{
					SessionID: s.SessionID,
					Device:    s.DeviceName,
					Platform:  s.Platform,
					IP:        s.IPAddress,
					LastSeen:  s.LastSeenAt,
				}
				if s.IsCurrent {
					row.Current = "*"
				}
				rows = append(rows, row)
			}

			formatter, err := helpers.NewFormatter(helpers.OutputFormat(format))
			if err != nil {
				return err
			}
			return formatter.Format(rows, os.Stdout)
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, []helpers.OutputFormat{
		helpers.FormatTable,
		helpers.FormatJSON,
		helpers.FormatCSV,
	})

	return cmd
}

func newRevokeCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "revoke <session-id>",
		Short: "Log another device out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if err := app.TgAuth.CheckSession(ctx); err != nil || !app.TgAuth.IsLoggedIn() {
				return fmt.Errorf("not logged in")
			}

			if !force {
				prompt := fmt.Sprintf("Revoke session %q? The device will be logged out.", args[0])
				if !helpers.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt) {
					fmt.Println("Cancelled.")
					return nil
				}
			}

			if err := app.TgAuth.RevokeSession(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("Session revoked.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync identity-linked tokens into the local vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if err := app.TgAuth.CheckSession(ctx); err != nil || !app.TgAuth.IsLoggedIn() {
				return fmt.Errorf("not logged in (run 'imgbed tg login')")
			}
			if err := app.RestoreVault(ctx); err != nil {
				return err
			}

			before := len(app.Vault.Items())
			app.TgAuth.SyncTokensToVault(ctx)
			fmt.Printf("Vault now holds %d token(s) (%d new).\n",
				len(app.Vault.Items()), len(app.Vault.Items())-before)
			return nil
		},
	}
	return cmd
}

func newHeartbeatCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Refresh this device's last-seen timestamp",
		Long: `Refresh this device's last-seen timestamp on the server.

With --watch, keeps the session marked active by sending a heartbeat
every minute until interrupted. Useful when the CLI is the only client
on this device and sessions are pruned by inactivity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if err := app.TgAuth.CheckSession(ctx); err != nil || !app.TgAuth.IsLoggedIn() {
				return fmt.Errorf("not logged in (run 'imgbed tg login')")
			}

			if err := app.TgAuth.Heartbeat(ctx); err != nil {
				return fmt.Errorf("heartbeat failed: %w", err)
			}
			if !watch {
				fmt.Println("Session refreshed.")
				return nil
			}

			fmt.Printf("Refreshing session every %s. Press Ctrl+C to stop.\n",
				constants.DefaultHeartbeatInterval)
			ticker := time.NewTicker(constants.DefaultHeartbeatInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := app.TgAuth.Heartbeat(ctx); err != nil {
						// Keep going; the next beat may succeed.
						app.Logger.Warn().Err(err).Msg("heartbeat failed")
					}
				}
			}
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep sending heartbeats until interrupted")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Log this device out",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			app.TgAuth.Logout(cmd.Context())
			fmt.Println("Logged out. Tokens in the vault are unaffected.")
			return nil
		},
	}
	return cmd
}
