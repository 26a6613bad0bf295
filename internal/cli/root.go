package cli

import (
	"github.com/spf13/cobra"

	"github.com/imgbed/imgbed/internal/cli/admin"
	configcmd "github.com/imgbed/imgbed/internal/cli/config"
	"github.com/imgbed/imgbed/internal/cli/gallery"
	"github.com/imgbed/imgbed/internal/cli/tg"
	"github.com/imgbed/imgbed/internal/cli/token"
	"github.com/imgbed/imgbed/internal/cli/upload"
	"github.com/imgbed/imgbed/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "imgbed",
	Short: "imgbed - client for the Telegram-backed image hosting service",
	Long: `Manage upload tokens, sessions, and uploads for an imgbed server.

Tokens are bearer credentials scoped to an album. The CLI remembers every
token you add in a local vault (~/.imgbed/vault.json) and keeps one active;
uploads and gallery access use the active token unless you say otherwise.

Telegram login links this device to your identity: synced tokens land in
the vault, and 'imgbed tg sessions' shows every logged-in device.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(token.NewTokenCmd())
	rootCmd.AddCommand(tg.NewTgCmd())
	rootCmd.AddCommand(admin.NewAdminCmd())
	rootCmd.AddCommand(upload.NewUploadCmd())
	rootCmd.AddCommand(gallery.NewGalleryCmd())
	rootCmd.AddCommand(configcmd.NewConfigCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("imgbed version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
