package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rehash-cli/rehash/internal/config"
	"github.com/rehash-cli/rehash/internal/generator"
	"github.com/rehash-cli/rehash/internal/logger"
	"github.com/rehash-cli/rehash/internal/store"
	"github.com/rehash-cli/rehash/internal/util"
	"github.com/rehash-cli/rehash/internal/vault"
)

var (
	cfgFile   string
	vaultPath string
	verbose   bool
	cfg       *config.Config
	appLog    = logger.Discard()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rehash",
	Short: "Deterministic password generator with an optional encrypted vault",
	Long: `rehash derives account passwords from one master passphrase and public
account details (url, username, generation counter). Nothing secret is stored:
the same inputs always reproduce the same password.

Account details can be kept in a vault file, optionally encrypted with
AES-256-GCM under a key derived from the same master passphrase.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if vaultPath != "" {
			cfg.VaultPath = vaultPath
		}

		level := logger.ParseLevel(cfg.LogLevel)
		if verbose {
			level = logger.ParseLevel("debug")
		}
		appLog = logger.New(cmd.ErrOrStderr(), level)
		appLog.Debug("configuration loaded", "config", cfgFile, "vault", cfg.VaultPath, "storage", cfg.Storage)

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. The returned error carries the process exit code.
func Execute() error {
	return classifyError(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/rehash/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "vault file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(vaultCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	if cfgFile != "" {
		return
	}

	path, err := config.DefaultPath()
	if err != nil {
		util.ExitWithCode(util.ExitError, "%v", err)
	}
	cfgFile = path
}

// classifyError attaches the exit code for err.
func classifyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, generator.ErrIncompleteCustomProfile),
		errors.Is(err, generator.ErrInvalidParameters),
		errors.Is(err, errInvalidInput):
		return util.WithExitCode(err, util.ExitInvalidInput)
	case errors.Is(err, vault.ErrWrongPassword):
		return util.WithExitCode(err, util.ExitWrongPassword)
	case errors.Is(err, vault.ErrUnknownFormat),
		errors.Is(err, vault.ErrInvalidEncoding),
		errors.Is(err, vault.ErrInternal):
		return util.WithExitCode(err, util.ExitIntegrityErr)
	case errors.Is(err, store.ErrVaultLocked):
		return util.WithExitCode(err, util.ExitVaultLocked)
	default:
		return err
	}
}

// resolveConfig falls back to the configuration loaded by the root command,
// then to defaults.
func resolveConfig(conf *config.Config) *config.Config {
	if conf != nil {
		return conf
	}
	if cfg != nil {
		return cfg
	}
	fmt.Fprintln(os.Stderr, "Warning: configuration not loaded, using defaults")
	return config.DefaultConfig()
}
