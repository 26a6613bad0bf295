// Package token implements the 'imgbed token' command family: managing
// the local vault of upload tokens and the server-side records behind
// them.
package token

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imgbed/imgbed/internal/api"
	"github.com/imgbed/imgbed/internal/cli/helpers"
	"github.com/imgbed/imgbed/internal/constants"
	"github.com/imgbed/imgbed/internal/vault"
)

// NewTokenCmd creates the token command group.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage upload tokens in the local vault",
		Long: `Manage upload tokens.

Every token you add is remembered in the local vault with one marked
active. Uploads, history, and album operations use the active token.

The vault stores tokens obfuscated against casual inspection; this is not
encryption. Anyone with access to your home directory can recover them.`,
	}

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newUseCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newUploadsCmd())

	return cmd
}

func newAddCmd() *cobra.Command {
	var (
		album    string
		noActive bool
		noVerify bool
	)

	cmd := &cobra.Command{
		Use:   "add <token>",
		Short: "Remember a token in the vault",
		Long: `Remember a token in the vault and verify it against the server.

Adding a token you already have updates the existing entry instead of
creating a duplicate. New tokens become active unless --no-activate is
given; re-added tokens keep their current active state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := app.RestoreVault(ctx); err != nil {
				return err
			}

			opts := vault.AddOptions{Verify: !noVerify}
			if album != "" {
				opts.AlbumName = &album
			}
			if noActive {
				makeActive := false
				opts.MakeActive = &makeActive
			}

			id, err := app.Vault.AddToken(ctx, strings.TrimSpace(args[0]), opts)
			if err != nil {
				if api.IsTokenInvalid(err) {
					return fmt.Errorf("server rejected the token as invalid")
				}
				return err
			}

			fmt.Printf("Token remembered (id %s).\n", id)
			if app.Vault.ActiveID() == id {
				fmt.Printf("Now active for album %q.\n", app.Vault.AlbumLabel())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&album, "album", "", "Album name for this token")
	cmd.Flags().BoolVar(&noActive, "no-activate", false, "Remember without making it the active token")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip server verification (offline)")

	return cmd
}

// tokenRow is the list output shape. Tokens are always masked.
type tokenRow struct {
	ID       string `json:"id" header:"ID"`
	Token    string `json:"token" header:"TOKEN"`
	Album    string `json:"album" header:"ALBUM"`
	Active   string `json:"active" header:"ACTIVE"`
	Uploads  string `json:"uploads" header:"UPLOADS"`
	Verified string `json:"last_verified" header:"LAST VERIFIED"`
}

func newListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List remembered tokens",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return helpers.ValidateFormat(format, []helpers.OutputFormat{
				helpers.FormatTable,
				helpers.FormatJSON,
				helpers.FormatCSV,
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			if err := app.RestoreVault(cmd.Context()); err != nil {
				return err
			}

			items := app.Vault.Items()
			if len(items) == 0 && format == string(helpers.FormatTable) {
				fmt.Println("No tokens remembered.")
				fmt.Println()
				fmt.Println("Add one with:")
				fmt.Println("  imgbed token add <token>")
				return nil
			}

			rows := make([]tokenRow, 0, len(items))
			for _, item := range items {
				row := tokenRow{
					ID:       item.ID,
					Token:    vault.MaskToken(item.Token),
					Album:    item.AlbumName,
					Verified: "-",
					Uploads:  "-",
				}
				if item.ID == app.Vault.ActiveID() {
					row.Active = "*"
				}
				if item.LastVerifiedAt != nil {
					row.Verified = item.LastVerifiedAt.Format("2006-01-02 15:04")
				}
				if info := item.TokenInfo; info != nil {
					if info.UploadLimit > 0 {
						row.Uploads = fmt.Sprintf("%d/%d", info.UploadCount, info.UploadLimit)
					} else {
						row.Uploads = fmt.Sprintf("%d", info.UploadCount)
					}
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

func newUseCmd() *cobra.Command {
	var noVerify bool

	cmd := &cobra.Command{
		Use:   "use <id>",
		Short: "Make a remembered token the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := app.RestoreVault(ctx); err != nil {
				return err
			}

			if err := app.Vault.SetActiveByID(ctx, args[0], !noVerify); err != nil {
				return err
			}

			fmt.Printf("Active token switched to album %q.\n", app.Vault.AlbumLabel())
			return nil
		},
	}

	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip server verification (offline)")

	return cmd
}

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Forget a token locally",
		Long: `Forget a token locally.

The token stays valid on the server; use 'imgbed token delete' to revoke
it there too. Removing the active token activates the first remaining
one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			if err := app.RestoreVault(cmd.Context()); err != nil {
				return err
			}

			if err := app.Vault.Remove(args[0]); err != nil {
				return err
			}
			fmt.Println("Token forgotten.")
			return nil
		},
	}
	return cmd
}

func newRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <id> <album-name>",
		Short: "Rename a token's album label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			if err := app.RestoreVault(cmd.Context()); err != nil {
				return err
			}

			if err := app.Vault.UpdateAlbumName(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Album renamed to %q.\n", args[1])
			return nil
		},
	}
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var (
		evict   bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the active token against the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := app.RestoreVault(ctx); err != nil {
				return err
			}
			if !app.Vault.HasToken() {
				return fmt.Errorf("no active token")
			}

			info, err := app.Vault.Verify(ctx)
			if err != nil {
				if api.IsTokenInvalid(err) {
					if evict {
						id := app.Vault.ActiveID()
						if removeErr := app.Vault.Remove(id); removeErr != nil {
							return removeErr
						}
						return fmt.Errorf("token is invalid; removed from vault")
					}
					return fmt.Errorf("token is invalid (use --evict to forget it)")
				}
				return fmt.Errorf("verification inconclusive: %w", err)
			}

			fmt.Println("Token is valid.")
			fmt.Printf("Uploads:   %d", info.UploadCount)
			if info.UploadLimit > 0 {
				fmt.Printf(" / %d (%d remaining)", info.UploadLimit, info.RemainingUploads)
			}
			fmt.Println()
			if info.ExpiresAt != "" {
				fmt.Printf("Expires:   %s\n", info.ExpiresAt)
			}
			if !info.CanUpload {
				fmt.Println("Note: upload quota exhausted.")
			}
			if verbose {
				if info.Description != "" {
					fmt.Printf("Album:     %s\n", info.Description)
				}
				if info.CreatedAt != "" {
					fmt.Printf("Created:   %s\n", info.CreatedAt)
				}
				if info.LastUsed != "" {
					fmt.Printf("Last used: %s\n", info.LastUsed)
				}
				if info.TgUserID != 0 {
					fmt.Printf("Linked to: tg:%d\n", info.TgUserID)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&evict, "evict", false, "Forget the token if the server confirms it invalid")
	helpers.AddVerboseFlag(cmd, &verbose)

	return cmd
}

func newGenerateCmd() *cobra.Command {
	var (
		uploadLimit int
		expiresDays int
		description string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Mint a new token on the server and remember it",
		Long: `Mint a new token on the server.

The new token is stored in the vault and becomes active. The full token
value is printed ONCE here; afterwards only a masked form is shown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := app.RestoreVault(ctx); err != nil {
				return err
			}

			opts := api.GenerateTokenOptions{Description: description}
			if cmd.Flags().Changed("upload-limit") {
				opts.UploadLimit = &uploadLimit
			}
			if cmd.Flags().Changed("expires-days") {
				opts.ExpiresDays = &expiresDays
			}

			result, err := app.Vault.Generate(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}

			fmt.Println("Token generated and remembered.")
			fmt.Println()
			fmt.Printf("Token: %s\n", result.Token)
			if result.UploadLimit > 0 {
				fmt.Printf("Upload limit: %d\n", result.UploadLimit)
			}
			if result.ExpiresAt != "" {
				fmt.Printf("Expires: %s\n", result.ExpiresAt)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&uploadLimit, "upload-limit", 0, "Maximum uploads for this token (server default if unset)")
	cmd.Flags().IntVar(&expiresDays, "expires-days", 0, "Days until the token expires (server default if unset)")
	cmd.Flags().StringVar(&description, "description", "", "Album description for the new token")

	return cmd
}

func newDeleteCmd() *cobra.Command {
	var (
		deleteImages bool
		all          bool
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Revoke a token on the server and forget it",
		Long: `Revoke a token on the server and forget it locally.

With --all, every remembered token is revoked. With --delete-images, the
server also deletes the files uploaded under the token.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("token id required (or --all)")
			}

			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := app.RestoreVault(ctx); err != nil {
				return err
			}

			if !force {
				subject := "this token"
				if all {
					subject = fmt.Sprintf("all %d tokens", len(app.Vault.Items()))
				}
				warning := fmt.Sprintf("This revokes %s on the server. It cannot be undone.", subject)
				if deleteImages {
					warning += "\nAll images uploaded under it will be DELETED."
				}
				if !helpers.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), warning) {
					fmt.Println("Cancelled.")
					return nil
				}
			}

			if all {
				if err := app.Vault.DeleteAllFromServer(ctx, deleteImages); err != nil {
					return err
				}
				fmt.Println("All tokens revoked and forgotten.")
				return nil
			}

			if err := app.Vault.DeleteFromServer(ctx, args[0], deleteImages); err != nil {
				return err
			}
			fmt.Println("Token revoked and forgotten.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&deleteImages, "delete-images", false, "Also delete images uploaded under the token")
	cmd.Flags().BoolVar(&all, "all", false, "Revoke every remembered token")
	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

// uploadRow is the upload history output shape.
type uploadRow struct {
	FileName  string `json:"original_filename" header:"NAME"`
	Size      int64  `json:"file_size" header:"SIZE"`
	URL       string `json:"image_url" header:"URL"`
	CreatedAt string `json:"created_at" header:"UPLOADED"`
}

func newUploadsCmd() *cobra.Command {
	var (
		page   int
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "Show upload history for the active token",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := app.RestoreVault(ctx); err != nil {
				return err
			}
			if !app.Vault.HasToken() {
				return fmt.Errorf("no active token")
			}

			data, err := app.Vault.Uploads(ctx, page, limit)
			if err != nil {
				return err
			}

			if len(data.Uploads) == 0 && format == string(helpers.FormatTable) {
				fmt.Println("No uploads yet.")
				return nil
			}

			rows := make([]uploadRow, 0, len(data.Uploads))
			for _, u := range data.Uploads {
				rows = append(rows, uploadRow{
					FileName:  u.OriginalFilename,
					Size:      u.FileSize,
					URL:       u.ImageURL,
					CreatedAt: u.CreatedAt,
				})
			}

			formatter, err := helpers.NewFormatter(helpers.OutputFormat(format))
			if err != nil {
				return err
			}
			if err := formatter.Format(rows, os.Stdout); err != nil {
				return err
			}

			if format == string(helpers.FormatTable) {
				fmt.Printf("\nPage %d, %d total uploads", data.Page, data.TotalUploads)
				if data.RemainingUploads > 0 {
					fmt.Printf(", %d remaining", data.RemainingUploads)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", constants.DefaultUploadsPageSize, "Results per page")
	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, []helpers.OutputFormat{
		helpers.FormatTable,
		helpers.FormatJSON,
		helpers.FormatCSV,
	})

	return cmd
}
