package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rehash-cli/rehash/internal/clipboard"
	"github.com/rehash-cli/rehash/internal/config"
	"github.com/rehash-cli/rehash/internal/generator"
)

var errClipboardUnavailable = errors.New("clipboard not available, use --print instead")

var (
	copyToClipboard      = clipboard.Copy
	clearClipboardAfter  = clipboard.ClearAfter
	clipboardIsAvailable = clipboard.IsAvailable
)

// costFlags are the -i/-m/-p Argon2 overrides, which must be given together.
type costFlags struct {
	iterations  uint32
	memorySize  uint32
	parallelism uint32
}

func (f *costFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint32VarP(&f.iterations, "iterations", "i", 0, "Overrides argon2 parameter iterations (t_cost)")
	cmd.Flags().Uint32VarP(&f.memorySize, "memory-size", "m", 0, "Overrides argon2 parameter memory size in KiB (m_cost)")
	cmd.Flags().Uint32VarP(&f.parallelism, "parallelism", "p", 0, "Overrides argon2 parameter parallelism (p_cost)")
}

// profile resolves the overrides that were set on the command line. The
// bool reports whether any override was given.
func (f *costFlags) profile(cmd *cobra.Command) (generator.Profile, bool, error) {
	var iterations, memorySize, parallelism *uint32
	if cmd.Flags().Changed("iterations") {
		iterations = &f.iterations
	}
	if cmd.Flags().Changed("memory-size") {
		memorySize = &f.memorySize
	}
	if cmd.Flags().Changed("parallelism") {
		parallelism = &f.parallelism
	}

	profile, err := generator.ResolveOverrides(iterations, memorySize, parallelism)
	if err != nil {
		return generator.Profile{}, false, fmt.Errorf("%w (-i <ITERATIONS>, -m <MEMORY_SIZE> and -p <PARALLELISM>)", err)
	}
	return profile, iterations != nil, nil
}

// deliveryFlags control where a derived password goes.
type deliveryFlags struct {
	print bool
	clear bool
	ttl   time.Duration
}

func (f *deliveryFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.print, "print", false, "Prints password to console instead of copying it to the clipboard")
	cmd.Flags().BoolVar(&f.clear, "clear", false, "Wait and clear the clipboard after the timeout")
	cmd.Flags().DurationVar(&f.ttl, "ttl", 0, "Clipboard clear timeout (0 uses the config default)")
}

type generateOptions struct {
	url        string
	username   string
	generation uint
	length     uint
	password   string
	cost       costFlags
	delivery   deliveryFlags
}

var generateCmd = newGenerateCommand(nil)

func newGenerateCommand(conf *config.Config) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Derive the password for an account",
		Long: `Derive the password for an account from the master passphrase.

The password depends only on the passphrase, url, username, generation and
length (and the argon2 cost parameters). Increment --generation to change
the password of one account without affecting any other.

Example:
  rehash generate --url www.google.com --username jondoe@gmail.com
  rehash generate --url github.com --username jondoe --generation 2 -l 20 --print
  rehash generate --url example.org --username me -i 3 -m 65536 -p 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, resolveConfig(conf))
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "The url of the service to generate the password for, required to derive the password")
	cmd.Flags().StringVar(&opts.username, "username", "", "The username for the service to generate the password for, required to derive the password")
	cmd.Flags().UintVar(&opts.generation, "generation", 1, "An arbitrary number to increment if the password needs to be changed")
	cmd.Flags().UintVarP(&opts.length, "length", "l", 32, "Sets the length of generated password")
	cmd.Flags().StringVar(&opts.password, "password", "", "Sets password to skip the interactive password prompt")
	opts.cost.register(cmd)
	opts.delivery.register(cmd)

	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

// NewGenerateCommand creates a generate command for testing.
func NewGenerateCommand(conf *config.Config) *cobra.Command {
	return newGenerateCommand(conf)
}

func runGenerate(cmd *cobra.Command, opts *generateOptions, conf *config.Config) error {
	profile, _, err := opts.cost.profile(cmd)
	if err != nil {
		return err
	}

	account := generator.Account{
		URL:        opts.url,
		Username:   opts.username,
		Generation: opts.generation,
		Length:     opts.length,
		Profile:    profile,
	}
	if !cmd.Flags().Changed("generation") {
		account.Generation = conf.DefaultGeneration
	}
	if !cmd.Flags().Changed("length") {
		account.Length = conf.DefaultLength
	}

	passphrase, err := newPassphraseSource(opts.password, false).get()
	if err != nil {
		return err
	}

	password, err := derive(passphrase, account)
	if err != nil {
		return err
	}

	return deliverPassword(cmd, password, &opts.delivery, conf)
}

// derive runs the generator and logs what was derived, never the result.
func derive(passphrase string, account generator.Account) (string, error) {
	start := time.Now()
	password, err := generator.Generate(passphrase, account)
	if err != nil {
		return "", fmt.Errorf("generating password failed: %w", err)
	}
	appLog.Debug("password derived",
		"url", account.URL,
		"generation", account.Generation,
		"length", account.Length,
		"profile", account.Profile.String(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return password, nil
}

func deliverPassword(cmd *cobra.Command, secret string, opts *deliveryFlags, conf *config.Config) error {
	out := cmd.OutOrStdout()

	if opts.print {
		return writeOutput(out, "%s\n", secret)
	}

	if !clipboardIsAvailable() {
		return errClipboardUnavailable
	}

	if err := copyToClipboard(secret); err != nil {
		return fmt.Errorf("could not write to clipboard: %w", err)
	}

	if !opts.clear {
		return writeOutput(out, "Generated password copied to clipboard\n")
	}

	ttl := resolveClipboardTTL(opts.ttl, conf)
	if err := writeOutput(out, "Generated password copied to clipboard (clears in %s)\n", ttl.Round(time.Second)); err != nil {
		return err
	}

	cleared, err := clearClipboardAfter(cmd.Context(), secret, ttl)
	if err != nil {
		return err
	}
	if cleared {
		return writeOutput(out, "Clipboard cleared\n")
	}
	return nil
}

func resolveClipboardTTL(override time.Duration, conf *config.Config) time.Duration {
	if override > 0 {
		return override
	}
	if conf != nil && conf.ClipboardTTL > 0 {
		return conf.ClipboardTTL
	}
	return 30 * time.Second
}
