package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rehash-cli/rehash/internal/config"
	"github.com/rehash-cli/rehash/internal/store"
	"github.com/rehash-cli/rehash/internal/util"
	"github.com/rehash-cli/rehash/internal/vault"
)

// historian opens the configured store and checks that it keeps revisions.
func historian(conf *config.Config) (store.Store, store.Historian, error) {
	st, err := store.Open(conf.VaultPath, conf.Storage, conf.HistoryLimit)
	if err != nil {
		return nil, nil, util.WrapError(err, "failed to open vault")
	}
	h, ok := st.(store.Historian)
	if !ok {
		_ = st.Close()
		return nil, nil, fmt.Errorf("%w: the %s backend keeps no history, use a .db vault or storage: bolt",
			errInvalidInput, conf.Storage)
	}
	return st, h, nil
}

func newVaultHistoryCommand(conf *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List earlier revisions of the vault",
		Long: `List the earlier vault documents kept by the bolt backend.

Every save keeps the document it replaced, up to history_limit revisions.
Restore one with 'rehash vault restore <seq>'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVaultHistory(cmd, resolveConfig(conf))
		},
	}
}

func runVaultHistory(cmd *cobra.Command, conf *config.Config) error {
	st, h, err := historian(conf)
	if err != nil {
		return err
	}
	defer st.Close()

	revisions, err := h.History()
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(revisions) == 0 {
		return writeOutput(out, "No earlier revisions\n")
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if err := writeString(w, "SEQ\tSAVED\tFORMAT\n"); err != nil {
		return fmt.Errorf("failed to write table header: %w", err)
	}
	for _, rev := range revisions {
		if err := writeOutput(w, "%d\t%s\t%s\n", rev.Seq, rev.SavedAt.Local().Format(time.RFC3339), describeDocument(rev.Document)); err != nil {
			return fmt.Errorf("failed to write revision: %w", err)
		}
	}
	return w.Flush()
}

// describeDocument summarises a stored document without decrypting it.
func describeDocument(raw []byte) string {
	doc, err := vault.Detect(raw)
	if err != nil {
		return "unreadable"
	}
	if plain, ok := doc.(*vault.PlainDocument); ok {
		return fmt.Sprintf("plaintext, %d entries", len(plain.Vault.Entries))
	}
	return "encrypted"
}

func newVaultRestoreCommand(conf *config.Config) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "restore <seq>",
		Short: "Restore an earlier revision of the vault",
		Long: `Make an earlier revision the current vault document. The document it
replaces is kept in the history, so a restore can itself be undone.

An encrypted revision is opened before it is restored, to make sure the
passphrase still unlocks it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVaultRestore(cmd, password, args[0], resolveConfig(conf))
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Sets password to skip the interactive password prompt")

	return cmd
}

func runVaultRestore(cmd *cobra.Command, password, arg string, conf *config.Config) error {
	seq, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: revision must be a number, got %q", errInvalidInput, arg)
	}

	st, h, err := historian(conf)
	if err != nil {
		return err
	}
	defer st.Close()

	rev, err := h.Revision(seq)
	if err != nil {
		return err
	}

	doc, err := vault.Detect(rev.Document)
	if err != nil {
		return err
	}
	var secret string
	if doc.Encrypted() {
		if secret, err = newPassphraseSource(password, false).get(); err != nil {
			return err
		}
	}
	v, err := doc.Open(secret)
	if err != nil {
		return err
	}

	if err := st.Save(rev.Document); err != nil {
		return util.WrapError(err, "failed to restore revision")
	}

	appLog.Info("revision restored", "seq", seq, "entries", len(v.Entries))
	return writeOutput(cmd.OutOrStdout(), "Restored revision %d (%d entries)\n", seq, len(v.Entries))
}
