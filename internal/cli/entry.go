package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rehash-cli/rehash/internal/config"
	"github.com/rehash-cli/rehash/internal/generator"
	"github.com/rehash-cli/rehash/internal/vault"
)

type vaultAddOptions struct {
	url        string
	username   string
	generation uint
	length     uint
	name       string
	notes      string
	password   string
	cost       costFlags
}

func newVaultAddCommand(conf *config.Config) *cobra.Command {
	opts := &vaultAddOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account to the vault",
		Long: `Add an account descriptor to the vault and print its id.

Without -i/-m/-p the entry uses the vault's default argon2 profile.

Example:
  rehash vault add --url github.com --username jondoe
  rehash vault add --url bank.example --username 1234 -l 16 --name Bank --notes "digits only"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVaultAdd(cmd, opts, resolveConfig(conf))
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "The url of the service")
	cmd.Flags().StringVar(&opts.username, "username", "", "The username for the service")
	cmd.Flags().UintVar(&opts.generation, "generation", 1, "An arbitrary number to increment if the password needs to be changed")
	cmd.Flags().UintVarP(&opts.length, "length", "l", 32, "Sets the length of generated password")
	cmd.Flags().StringVar(&opts.name, "name", "", "Display name shown in listings")
	cmd.Flags().StringVar(&opts.notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&opts.password, "password", "", "Sets password to skip the interactive password prompt")
	opts.cost.register(cmd)

	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func runVaultAdd(cmd *cobra.Command, opts *vaultAddOptions, conf *config.Config) error {
	profile, custom, err := opts.cost.profile(cmd)
	if err != nil {
		return err
	}

	session, err := openVault(conf, newPassphraseSource(opts.password, false))
	if err != nil {
		return err
	}
	defer session.close()

	if !custom {
		profile = session.vault.Settings.DefaultProfile
	}

	entry := vault.Entry{
		URL:      opts.url,
		Username: opts.username,
		Options:  vault.FormatOptions{Generation: opts.generation, Length: opts.length},
		Profile:  profile,
	}
	if !cmd.Flags().Changed("generation") {
		entry.Options.Generation = conf.DefaultGeneration
	}
	if !cmd.Flags().Changed("length") {
		entry.Options.Length = conf.DefaultLength
	}
	if opts.name != "" {
		entry.DisplayName = &opts.name
	}
	if opts.notes != "" {
		entry.Notes = &opts.notes
	}

	// Reject entries that could never derive a password.
	params, err := entry.Profile.Resolve()
	if err != nil {
		return err
	}
	if err := generator.ValidateParams(params, entry.Options.Length); err != nil {
		return err
	}

	id := session.vault.Add(entry)
	if err := session.save(); err != nil {
		return err
	}

	appLog.Info("entry added", "id", id, "url", entry.URL)
	return writeOutput(cmd.OutOrStdout(), "Added entry %s\n", id)
}

type vaultListOptions struct {
	json     bool
	password string
}

func newVaultListCommand(conf *config.Config) *cobra.Command {
	opts := &vaultListOptions{}

	cmd := &cobra.Command{
		Use:   "list [query]",
		Short: "List accounts in the vault",
		Long: `List vault entries, optionally filtered by a search query.

The query matches url, username, display name and notes. Use '+' to
require several tokens (e.g. 'github+work').

Example:
  rehash vault list
  rehash vault list github
  rehash vault list --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return runVaultList(cmd, opts, query, resolveConfig(conf))
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "Output in JSON format")
	cmd.Flags().StringVar(&opts.password, "password", "", "Sets password to skip the interactive password prompt")

	return cmd
}

func runVaultList(cmd *cobra.Command, opts *vaultListOptions, query string, conf *config.Config) error {
	session, err := openVault(conf, newPassphraseSource(opts.password, false))
	if err != nil {
		return err
	}
	defer session.close()

	records := session.vault.Search(query)
	out := cmd.OutOrStdout()

	if opts.json {
		return outputRecordsJSON(out, records)
	}

	if len(records) == 0 {
		if query != "" {
			return writeOutput(out, "No entries found matching %q\n", query)
		}
		return writeOutput(out, "No entries found\nUse 'rehash vault add' to create your first entry\n")
	}

	return outputRecordsTable(out, records)
}

func outputRecordsTable(out io.Writer, records []vault.Record) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if err := writeString(w, "ID\tNAME\tUSERNAME\tGEN\tLEN\tPROFILE\n"); err != nil {
		return fmt.Errorf("failed to write table header: %w", err)
	}
	for _, r := range records {
		if err := writeOutput(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID.String()[:8], r.Entry.Label(), r.Entry.Username,
			r.Entry.Options.Generation, r.Entry.Options.Length, r.Entry.Profile); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}

	return writeOutput(out, "\nFound %d entries\n", len(records))
}

type recordJSON struct {
	ID string `json:"id"`
	vault.Entry
}

// MarshalJSON inlines the entry document next to the id.
func (r recordJSON) MarshalJSON() ([]byte, error) {
	entry, err := json.Marshal(r.Entry)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return nil, err
	}
	id, err := json.Marshal(r.ID)
	if err != nil {
		return nil, err
	}
	fields["id"] = id
	return json.Marshal(fields)
}

func outputRecordsJSON(out io.Writer, records []vault.Record) error {
	items := make([]recordJSON, 0, len(records))
	for _, r := range records {
		items = append(items, recordJSON{ID: r.ID.String(), Entry: r.Entry})
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return writeOutput(out, "%s\n", data)
}

type vaultGetOptions struct {
	password string
	delivery deliveryFlags
}

func newVaultGetCommand(conf *config.Config) *cobra.Command {
	opts := &vaultGetOptions{}

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Derive the password of a vault entry",
		Long: `Derive the password of a vault entry and copy it to the clipboard.

The id may be shortened to any unambiguous prefix.

Example:
  rehash vault get 6f1c2a8e
  rehash vault get 6f1c --print
  rehash vault get 6f1c --clear --ttl 15s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVaultGet(cmd, opts, args[0], resolveConfig(conf))
		},
	}

	cmd.Flags().StringVar(&opts.password, "password", "", "Sets password to skip the interactive password prompt")
	opts.delivery.register(cmd)

	return cmd
}

func runVaultGet(cmd *cobra.Command, opts *vaultGetOptions, arg string, conf *config.Config) error {
	passphrase := newPassphraseSource(opts.password, false)
	session, err := openVault(conf, passphrase)
	if err != nil {
		return err
	}
	defer session.close()

	id, err := resolveEntryID(session.vault, arg)
	if err != nil {
		return err
	}
	entry, err := session.vault.Get(id)
	if err != nil {
		return err
	}

	secret, err := passphrase.get()
	if err != nil {
		return err
	}

	// Delivery may wait out the clipboard timeout; other commands must not
	// be locked out meanwhile.
	session.close()

	password, err := derive(secret, entry.Account())
	if err != nil {
		return err
	}

	return deliverPassword(cmd, password, &opts.delivery, conf)
}

func newVaultRotateCommand(conf *config.Config) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "rotate <id>",
		Short: "Change the password of a vault entry",
		Long: `Increment the generation of a vault entry so that it derives a new
password. Use 'rehash vault get' afterwards to obtain it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVaultRotate(cmd, password, args[0], resolveConfig(conf))
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Sets password to skip the interactive password prompt")

	return cmd
}

func runVaultRotate(cmd *cobra.Command, password, arg string, conf *config.Config) error {
	session, err := openVault(conf, newPassphraseSource(password, false))
	if err != nil {
		return err
	}
	defer session.close()

	id, err := resolveEntryID(session.vault, arg)
	if err != nil {
		return err
	}
	entry, err := session.vault.Get(id)
	if err != nil {
		return err
	}

	entry.Options.Generation++
	if err := session.vault.Put(id, entry); err != nil {
		return err
	}
	if err := session.save(); err != nil {
		return err
	}

	appLog.Info("entry rotated", "id", id, "generation", entry.Options.Generation)
	return writeOutput(cmd.OutOrStdout(), "Entry %s now at generation %d\n", id, entry.Options.Generation)
}

type vaultRemoveOptions struct {
	yes      bool
	password string
}

func newVaultRemoveCommand(conf *config.Config) *cobra.Command {
	opts := &vaultRemoveOptions{}

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an account from the vault",
		Long: `Remove an entry from the vault.

You will be prompted for confirmation unless you use the --yes flag.

Example:
  rehash vault remove 6f1c2a8e
  rehash vault remove 6f1c --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVaultRemove(cmd, opts, args[0], resolveConfig(conf))
		},
	}

	cmd.Flags().BoolVar(&opts.yes, "yes", false, "Skip confirmation prompt")
	cmd.Flags().StringVar(&opts.password, "password", "", "Sets password to skip the interactive password prompt")

	return cmd
}

func runVaultRemove(cmd *cobra.Command, opts *vaultRemoveOptions, arg string, conf *config.Config) error {
	session, err := openVault(conf, newPassphraseSource(opts.password, false))
	if err != nil {
		return err
	}
	defer session.close()

	id, err := resolveEntryID(session.vault, arg)
	if err != nil {
		return err
	}
	entry, err := session.vault.Get(id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !opts.yes {
		confirmed, err := promptConfirm(fmt.Sprintf("Remove entry '%s' (%s)?", entry.Label(), entry.Username), false)
		if err != nil {
			return err
		}
		if !confirmed {
			return writeOutput(out, "Removal cancelled\n")
		}
	}

	if err := session.vault.Remove(id); err != nil {
		return err
	}
	if err := session.save(); err != nil {
		return err
	}

	appLog.Info("entry removed", "id", id)
	return writeOutput(out, "Removed entry %s\n", id)
}
