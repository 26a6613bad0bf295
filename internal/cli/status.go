package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imgbed/imgbed/internal/cli/helpers"
	"github.com/imgbed/imgbed/internal/vault"
)

// newStatusCmd creates the 'imgbed status' command: a one-screen summary
// of server, token, and session state.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show client status (server, active token, sessions)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.NewApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			fmt.Printf("Server:     %s\n", app.Client.BaseURL())
			fmt.Printf("Device ID:  %s\n", app.Fingerprint.DeviceID)
			fmt.Printf("Device:     %s\n", app.Fingerprint.DeviceLabel)
			fmt.Println()

			if err := app.RestoreVault(ctx); err != nil {
				return err
			}

			if item, ok := app.Vault.ActiveItem(); ok {
				fmt.Printf("Active token:  %s\n", vault.MaskToken(item.Token))
				fmt.Printf("Album:         %s\n", app.Vault.AlbumLabel())
				if info := app.Vault.Info(); info != nil {
					fmt.Printf("Uploads:       %d used", info.UploadCount)
					if info.UploadLimit > 0 {
						fmt.Printf(" / %d", info.UploadLimit)
					}
					fmt.Println()
				}
			} else {
				fmt.Printf("Active token:  none (%d remembered)\n", len(app.Vault.Items()))
			}
			fmt.Println()

			if err := app.TgAuth.CheckSession(ctx); err == nil && app.TgAuth.IsLoggedIn() {
				user := app.TgAuth.User()
				fmt.Printf("Telegram:   logged in as %s\n", user.DisplayName())
			} else {
				fmt.Println("Telegram:   not logged in")
			}

			if app.Admin.RestoreAuth(ctx) {
				fmt.Printf("Admin:      logged in as %s\n", app.Admin.Username())
			} else {
				fmt.Println("Admin:      not logged in")
			}

			return nil
		},
	}
}
