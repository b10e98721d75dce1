package cli

import (
	"github.com/spf13/cobra"

	"github.com/rehash-cli/rehash/internal/config"
	"github.com/rehash-cli/rehash/internal/tui"
	"github.com/rehash-cli/rehash/internal/vault"
)

var runBrowser = tui.Run

func newVaultBrowseCommand(conf *config.Config) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "browse [query]",
		Short: "Browse the vault interactively",
		Long: `Open an interactive list of vault entries. Press enter on an entry to
copy its password to the clipboard, / to filter, i for details and q to quit.

The master passphrase is asked for once, before the browser starts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return runVaultBrowse(cmd, password, query, resolveConfig(conf))
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Sets password to skip the interactive password prompt")

	return cmd
}

func runVaultBrowse(cmd *cobra.Command, password, query string, conf *config.Config) error {
	if !clipboardIsAvailable() {
		return errClipboardUnavailable
	}

	passphrase := newPassphraseSource(password, false)
	session, err := openVault(conf, passphrase)
	if err != nil {
		return err
	}
	records := session.vault.Search(query)
	// The browser only reads, so the store is not held while it runs.
	session.close()

	secret, err := passphrase.get()
	if err != nil {
		return err
	}

	derivePassword := func(entry vault.Entry) (string, error) {
		return derive(secret, entry.Account())
	}
	return runBrowser(cmd.Context(), records, derivePassword, copyToClipboard)
}
