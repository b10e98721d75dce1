package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rehash-cli/rehash/internal/config"
	"github.com/rehash-cli/rehash/internal/store"
)

var configCmd = newConfigCommand(nil)

func newConfigCommand(conf *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show rehash configuration",
		Long: `Show rehash configuration.

Configuration is stored in ~/.config/rehash/config.yaml by default. Every
setting can be overridden with a REHASH_ environment variable, for example
REHASH_VAULT_PATH or REHASH_CLIPBOARD_TTL.

Example:
  rehash config path                     # Show config file path
  rehash config show                     # Show effective configuration`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, resolveConfig(conf))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigPath(cmd)
		},
	})

	return cmd
}

// NewConfigCommand creates a config command for testing.
func NewConfigCommand(conf *config.Config) *cobra.Command {
	return newConfigCommand(conf)
}

func runConfigShow(cmd *cobra.Command, conf *config.Config) error {
	data, err := yaml.Marshal(conf)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := writeString(out, string(data)); err != nil {
		return err
	}

	backend, err := store.ResolveBackend(conf.VaultPath, conf.Storage)
	if err != nil {
		return err
	}
	return writeOutput(out, "# resolved storage backend: %s\n", backend)
}

func runConfigPath(cmd *cobra.Command) error {
	path := cfgFile
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	return writeOutput(cmd.OutOrStdout(), "%s\n", path)
}
