// Package vault holds the collection of account descriptors a user keeps,
// its JSON document form and the passphrase-keyed encrypted envelope that
// protects it at rest.
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/rehash-cli/rehash/internal/generator"
	"github.com/rehash-cli/rehash/internal/util"
)

var (
	// ErrParse is returned when a document is not a well-formed plaintext vault.
	ErrParse = errors.New("invalid vault document")
	// ErrEntryNotFound is returned when no entry has the requested id.
	ErrEntryNotFound = errors.New("entry not found")
)

// Settings are the vault-wide preferences.
type Settings struct {
	// DefaultProfile is applied to entries added without explicit cost parameters.
	DefaultProfile generator.Profile
	// Encrypt makes Marshal write the encrypted envelope instead of plaintext.
	Encrypt bool
}

// FormatOptions are the per-account output options.
type FormatOptions struct {
	Generation uint `json:"generation"`
	Length     uint `json:"length"`
}

// Entry is one account stored in the vault. DisplayName and Notes are for
// presentation only and never influence the derived password.
type Entry struct {
	URL         string
	Username    string
	Options     FormatOptions
	Profile     generator.Profile
	DisplayName *string
	Notes       *string
}

// Vault is the in-memory account collection. It is owned by its caller and
// not safe for concurrent mutation.
type Vault struct {
	Settings Settings
	Entries  map[uuid.UUID]Entry
}

// New creates an empty vault with settings.
func New(settings Settings) *Vault {
	return &Vault{
		Settings: settings,
		Entries:  make(map[uuid.UUID]Entry),
	}
}

// Account returns the derivation input described by the entry.
func (e Entry) Account() generator.Account {
	return generator.Account{
		URL:        e.URL,
		Username:   e.Username,
		Generation: e.Options.Generation,
		Length:     e.Options.Length,
		Profile:    e.Profile,
	}
}

// Label is the display name, falling back to the url.
func (e Entry) Label() string {
	if e.DisplayName != nil && *e.DisplayName != "" {
		return *e.DisplayName
	}
	return e.URL
}

// Add stores entry under a fresh random id and returns it.
func (v *Vault) Add(entry Entry) uuid.UUID {
	if v.Entries == nil {
		v.Entries = make(map[uuid.UUID]Entry)
	}
	id := uuid.New()
	for _, taken := v.Entries[id]; taken; _, taken = v.Entries[id] {
		id = uuid.New()
	}
	v.Entries[id] = entry
	return id
}

// Get returns the entry stored under id.
func (v *Vault) Get(id uuid.UUID) (Entry, error) {
	entry, ok := v.Entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return entry, nil
}

// Put replaces the entry stored under id.
func (v *Vault) Put(id uuid.UUID, entry Entry) error {
	if _, ok := v.Entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	v.Entries[id] = entry
	return nil
}

// Remove deletes the entry stored under id.
func (v *Vault) Remove(id uuid.UUID) error {
	if _, ok := v.Entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	delete(v.Entries, id)
	return nil
}

// Record pairs an entry with its id.
type Record struct {
	ID    uuid.UUID
	Entry Entry
}

// Sorted returns all entries ordered by label, then username, then id.
func (v *Vault) Sorted() []Record {
	records := make([]Record, 0, len(v.Entries))
	for id, entry := range v.Entries {
		records = append(records, Record{ID: id, Entry: entry})
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if la, lb := strings.ToLower(a.Entry.Label()), strings.ToLower(b.Entry.Label()); la != lb {
			return la < lb
		}
		if a.Entry.Username != b.Entry.Username {
			return a.Entry.Username < b.Entry.Username
		}
		return a.ID.String() < b.ID.String()
	})
	return records
}

// Parse decodes a plaintext vault document. Field names are matched
// exactly; missing or unknown fields are errors.
func Parse(data []byte) (*Vault, error) {
	var v Vault
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &v, nil
}

// MarshalPlain encodes v as a plaintext vault document.
func MarshalPlain(v *Vault) ([]byte, error) {
	return json.Marshal(v)
}

type settingsDoc struct {
	DefaultGeneratorOptions generator.Profile `json:"defaultGeneratorOptions"`
	Encrypt                 bool              `json:"encrypt"`
}

type entryDoc struct {
	URL              string            `json:"url"`
	Username         string            `json:"username"`
	Options          FormatOptions     `json:"options"`
	GeneratorOptions generator.Profile `json:"generatorOptions"`
	DisplayName      *string           `json:"displayName,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
}

type vaultDoc struct {
	Settings Settings            `json:"settings"`
	Entries  map[uuid.UUID]Entry `json:"entries"`
}

// MarshalJSON implements json.Marshaler.
func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(settingsDoc{DefaultGeneratorOptions: s.DefaultProfile, Encrypt: s.Encrypt})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Settings) UnmarshalJSON(data []byte) error {
	fields, err := util.StrictObject(data, []string{"defaultGeneratorOptions", "encrypt"}, nil)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	var out Settings
	if err := util.DecodeField(fields, "defaultGeneratorOptions", &out.DefaultProfile); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := util.DecodeField(fields, "encrypt", &out.Encrypt); err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	*s = out
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *FormatOptions) UnmarshalJSON(data []byte) error {
	fields, err := util.StrictObject(data, []string{"generation", "length"}, nil)
	if err != nil {
		return fmt.Errorf("options: %w", err)
	}

	var out FormatOptions
	if err := util.DecodeField(fields, "generation", &out.Generation); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	if err := util.DecodeField(fields, "length", &out.Length); err != nil {
		return fmt.Errorf("options: %w", err)
	}

	*o = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryDoc{
		URL:              e.URL,
		Username:         e.Username,
		Options:          e.Options,
		GeneratorOptions: e.Profile,
		DisplayName:      e.DisplayName,
		Notes:            e.Notes,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entry) UnmarshalJSON(data []byte) error {
	fields, err := util.StrictObject(data,
		[]string{"url", "username", "options", "generatorOptions"},
		[]string{"displayName", "notes"})
	if err != nil {
		return err
	}

	var out Entry
	decoders := []struct {
		name string
		dst  interface{}
	}{
		{"url", &out.URL},
		{"username", &out.Username},
		{"options", &out.Options},
		{"generatorOptions", &out.Profile},
		{"displayName", &out.DisplayName},
		{"notes", &out.Notes},
	}
	for _, d := range decoders {
		if err := util.DecodeField(fields, d.name, d.dst); err != nil {
			return err
		}
	}

	*e = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Vault) MarshalJSON() ([]byte, error) {
	entries := v.Entries
	if entries == nil {
		entries = map[uuid.UUID]Entry{}
	}
	return json.Marshal(vaultDoc{Settings: v.Settings, Entries: entries})
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Vault) UnmarshalJSON(data []byte) error {
	fields, err := util.StrictObject(data, []string{"settings", "entries"}, nil)
	if err != nil {
		return err
	}

	var out Vault
	if err := util.DecodeField(fields, "settings", &out.Settings); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := util.DecodeField(fields, "entries", &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New(`field "entries": expected an object`)
	}

	out.Entries = make(map[uuid.UUID]Entry, len(raw))
	for key, value := range raw {
		id, err := uuid.Parse(key)
		if err != nil {
			return fmt.Errorf("entry key %q: %w", key, err)
		}
		if _, dup := out.Entries[id]; dup {
			return fmt.Errorf("entry key %q: duplicate id %s", key, id)
		}
		var entry Entry
		if err := json.Unmarshal(value, &entry); err != nil {
			return fmt.Errorf("entry %s: %w", id, err)
		}
		out.Entries[id] = entry
	}

	*v = out
	return nil
}
