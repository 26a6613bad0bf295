// Package config implements the 'imgbed config' command family.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/imgbed/imgbed/internal/config"
)

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage imgbed configuration",
		Long: `Manage imgbed configuration.

Configuration Priority:
  1. IMGBED_* environment variables (highest)
  2. Config file (~/.imgbed/config.yaml)
  3. Built-in defaults

Environment Variables:
  IMGBED_CONFIG    Override config directory (default: ~/.imgbed)
  IMGBED_BASE_URL  Override server base URL`,
	}

	cmd.AddCommand(newViewCmd())
	cmd.AddCommand(newPathCmd())
	cmd.AddCommand(newSetURLCmd())

	return cmd
}

func newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader().Load()
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print config and state file locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader()
			cfg, err := loader.Load()
			if err != nil {
				return err
			}

			fmt.Printf("Config: %s\n", loader.ConfigPath())
			fmt.Printf("Vault:  %s\n", loader.VaultPath(cfg))
			fmt.Printf("State:  %s\n", loader.StatePath(cfg))
			return nil
		},
	}
}

func newSetURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-url <base-url>",
		Short: "Point the client at a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateBaseURL(args[0]); err != nil {
				return err
			}

			loader := config.NewLoader()
			cfg, err := loader.Load()
			if err != nil {
				return err
			}

			cfg.Server.BaseURL = config.NormalizeBaseURL(args[0])
			if err := loader.Save(cfg); err != nil {
				return err
			}

			fmt.Printf("Server set to %s.\n", cfg.Server.BaseURL)
			return nil
		},
	}
}
