package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rehash-cli/rehash/internal/config"
	"github.com/rehash-cli/rehash/internal/store"
	"github.com/rehash-cli/rehash/internal/util"
	"github.com/rehash-cli/rehash/internal/vault"
)

var vaultCmd = newVaultCommand(nil)

func newVaultCommand(conf *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage the account vault",
		Long: `Manage the vault of account descriptors.

The vault stores url, username, generation and length for each account so
passwords can be re-derived by id. It never stores a password. When
encryption is enabled the vault is sealed with AES-256-GCM under a key
derived from the master passphrase.

Example:
  rehash vault init --encrypt
  rehash vault add --url github.com --username jondoe --name GitHub
  rehash vault list github
  rehash vault get 6f1c2a8e`,
	}

	cmd.AddCommand(
		newVaultInitCommand(conf),
		newVaultAddCommand(conf),
		newVaultListCommand(conf),
		newVaultGetCommand(conf),
		newVaultRotateCommand(conf),
		newVaultRemoveCommand(conf),
		newVaultEncryptCommand(conf),
		newVaultDecryptCommand(conf),
		newVaultHistoryCommand(conf),
		newVaultRestoreCommand(conf),
		newVaultBrowseCommand(conf),
	)

	return cmd
}

// NewVaultCommand creates a vault command tree for testing.
func NewVaultCommand(conf *config.Config) *cobra.Command {
	return newVaultCommand(conf)
}

// vaultSession is an opened vault together with the store it came from.
type vaultSession struct {
	store      store.Store
	passphrase *passphraseSource
	encrypted  bool
	vault      *vault.Vault
}

// openVault loads and, if needed, decrypts the vault. The passphrase is
// only requested for encrypted documents.
func openVault(conf *config.Config, passphrase *passphraseSource) (*vaultSession, error) {
	st, err := store.Open(conf.VaultPath, conf.Storage, conf.HistoryLimit)
	if err != nil {
		return nil, util.WrapError(err, "failed to open vault")
	}

	raw, err := st.Load()
	if err != nil {
		_ = st.Close()
		if errors.Is(err, store.ErrVaultNotFound) {
			return nil, fmt.Errorf("%w at %s, run 'rehash vault init' first", err, conf.VaultPath)
		}
		return nil, err
	}

	doc, err := vault.Detect(raw)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	var secret string
	if doc.Encrypted() {
		// Unlocking checks the passphrase against the envelope already.
		passphrase.confirm = false
		if secret, err = passphrase.get(); err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	v, err := doc.Open(secret)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	appLog.Debug("vault loaded",
		"path", conf.VaultPath,
		"encrypted", doc.Encrypted(),
		"entries", len(v.Entries))

	return &vaultSession{
		store:      st,
		passphrase: passphrase,
		encrypted:  doc.Encrypted(),
		vault:      v,
	}, nil
}

// save writes the vault back, sealing it when its settings ask for it.
func (s *vaultSession) save() error {
	var secret string
	if s.vault.Settings.Encrypt {
		var err error
		if secret, err = s.passphrase.get(); err != nil {
			return err
		}
	}

	data, err := vault.Marshal(s.vault, secret)
	if err != nil {
		return fmt.Errorf("failed to serialize vault: %w", err)
	}
	if err := s.store.Save(data); err != nil {
		return util.WrapError(err, "failed to save vault")
	}

	appLog.Debug("vault saved", "encrypted", s.vault.Settings.Encrypt, "entries", len(s.vault.Entries))
	return nil
}

// close releases the store. It is safe to call more than once.
func (s *vaultSession) close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		appLog.Warn("failed to close vault store", "error", err)
	}
	s.store = nil
}

// resolveEntryID accepts a full id or an unambiguous prefix of one.
func resolveEntryID(v *vault.Vault, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		if _, ok := v.Entries[id]; !ok {
			return uuid.Nil, fmt.Errorf("%w: %s", vault.ErrEntryNotFound, id)
		}
		return id, nil
	}

	prefix := strings.ToLower(strings.TrimSpace(arg))
	if prefix == "" {
		return uuid.Nil, fmt.Errorf("%w: empty entry id", errInvalidInput)
	}

	var matches []uuid.UUID
	for id := range v.Entries {
		if strings.HasPrefix(id.String(), prefix) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return uuid.Nil, fmt.Errorf("%w: %s", vault.ErrEntryNotFound, arg)
	case 1:
		return matches[0], nil
	default:
		return uuid.Nil, fmt.Errorf("%w: id prefix %q matches %d entries", errInvalidInput, arg, len(matches))
	}
}

type vaultInitOptions struct {
	encrypt  bool
	password string
	cost     costFlags
}

func newVaultInitCommand(conf *config.Config) *cobra.Command {
	opts := &vaultInitOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty vault",
		Long: `Create an empty vault at the configured path.

The -i/-m/-p flags set the default argon2 profile applied to entries added
without their own. Without them entries use recommended2024.

Example:
  rehash vault init
  rehash vault init --encrypt=false
  rehash --vault ~/vault.db vault init -i 3 -m 65536 -p 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVaultInit(cmd, opts, resolveConfig(conf))
		},
	}

	cmd.Flags().BoolVar(&opts.encrypt, "encrypt", true, "Encrypt the vault with the master passphrase")
	cmd.Flags().StringVar(&opts.password, "password", "", "Sets password to skip the interactive password prompt")
	opts.cost.register(cmd)

	return cmd
}

func runVaultInit(cmd *cobra.Command, opts *vaultInitOptions, conf *config.Config) error {
	profile, _, err := opts.cost.profile(cmd)
	if err != nil {
		return err
	}

	encrypt := opts.encrypt
	if !cmd.Flags().Changed("encrypt") {
		encrypt = conf.EncryptNewVaults
	}

	st, err := store.Open(conf.VaultPath, conf.Storage, conf.HistoryLimit)
	if err != nil {
		return util.WrapError(err, "failed to open vault")
	}
	session := &vaultSession{
		store:      st,
		passphrase: newPassphraseSource(opts.password, true),
		encrypted:  encrypt,
		vault:      vault.New(vault.Settings{DefaultProfile: profile, Encrypt: encrypt}),
	}
	defer session.close()

	exists, err := st.Exists()
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: vault already exists at %s", errInvalidInput, conf.VaultPath)
	}

	if err := session.save(); err != nil {
		return err
	}

	state := "plaintext"
	if encrypt {
		state = "encrypted"
	}
	return writeOutput(cmd.OutOrStdout(), "Created %s vault at %s\n", state, conf.VaultPath)
}

func newVaultEncryptCommand(conf *config.Config) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a plaintext vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVaultSetEncrypt(cmd, resolveConfig(conf), password, true)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Sets password to skip the interactive password prompt")

	return cmd
}

func newVaultDecryptCommand(conf *config.Config) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Store the vault as plaintext",
		Long: `Decrypt the vault and store it as plaintext JSON.

A plaintext vault contains no secrets, only account descriptors, but it
reveals which accounts exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVaultSetEncrypt(cmd, resolveConfig(conf), password, false)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Sets password to skip the interactive password prompt")

	return cmd
}

func runVaultSetEncrypt(cmd *cobra.Command, conf *config.Config, password string, encrypt bool) error {
	// A new passphrase is chosen when sealing a plaintext vault, so confirm it.
	session, err := openVault(conf, newPassphraseSource(password, encrypt))
	if err != nil {
		return err
	}
	defer session.close()

	out := cmd.OutOrStdout()
	if session.encrypted == encrypt && session.vault.Settings.Encrypt == encrypt {
		if encrypt {
			return writeOutput(out, "Vault is already encrypted\n")
		}
		return writeOutput(out, "Vault is already plaintext\n")
	}

	session.vault.Settings.Encrypt = encrypt
	if err := session.save(); err != nil {
		return err
	}

	if encrypt {
		return writeOutput(out, "Vault encrypted\n")
	}
	return writeOutput(out, "Vault decrypted\n")
}
