package vault

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rehash-cli/rehash/internal/util"
)

// ErrUnknownFormat is matched by errors.Is for documents that are neither a
// plaintext vault nor an envelope.
var ErrUnknownFormat = errors.New("unknown vault format")

// UnknownFormatError carries the reason each document shape was rejected.
type UnknownFormatError struct {
	PlaintextErr error
	EnvelopeErr  error
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("%v: not a plaintext vault (%v), not an encrypted vault (%v)",
		ErrUnknownFormat, e.PlaintextErr, e.EnvelopeErr)
}

// Is reports whether target is ErrUnknownFormat.
func (e *UnknownFormatError) Is(target error) bool {
	return target == ErrUnknownFormat
}

// Unwrap returns both parse failures.
func (e *UnknownFormatError) Unwrap() []error {
	return []error{e.PlaintextErr, e.EnvelopeErr}
}

// Document is a detected vault document: either *PlainDocument or
// *EncryptedDocument.
type Document interface {
	// Encrypted reports whether opening the document needs a passphrase.
	Encrypted() bool
	// Open returns the vault, decrypting with passphrase when needed.
	Open(passphrase string) (*Vault, error)
}

// PlainDocument is an unencrypted vault.
type PlainDocument struct {
	Vault *Vault
}

// Encrypted implements Document.
func (d *PlainDocument) Encrypted() bool { return false }

// Open implements Document. The passphrase is ignored.
func (d *PlainDocument) Open(string) (*Vault, error) { return d.Vault, nil }

// EncryptedDocument is a sealed vault envelope.
type EncryptedDocument struct {
	Envelope *Envelope
}

// Encrypted implements Document.
func (d *EncryptedDocument) Encrypted() bool { return true }

// Open implements Document.
func (d *EncryptedDocument) Open(passphrase string) (*Vault, error) {
	return Decrypt(d.Envelope, passphrase)
}

// ParseEnvelope decodes an {"iv", "store"} document. Only the shape is
// checked here; the base64 contents are validated by Decrypt.
func ParseEnvelope(data []byte) (*Envelope, error) {
	fields, err := util.StrictObject(data, []string{"iv", "store"}, nil)
	if err != nil {
		return nil, err
	}

	var env Envelope
	if err := util.DecodeField(fields, "iv", &env.IV); err != nil {
		return nil, err
	}
	if err := util.DecodeField(fields, "store", &env.Store); err != nil {
		return nil, err
	}
	return &env, nil
}

// Detect works out which kind of document raw is. The plaintext shape is
// tried first; an envelope is never read as plaintext because the two
// shapes share no required field.
func Detect(raw []byte) (Document, error) {
	v, plainErr := Parse(raw)
	if plainErr == nil {
		return &PlainDocument{Vault: v}, nil
	}

	env, envErr := ParseEnvelope(raw)
	if envErr == nil {
		return &EncryptedDocument{Envelope: env}, nil
	}

	return nil, &UnknownFormatError{PlaintextErr: plainErr, EnvelopeErr: envErr}
}

// Load reads a persisted vault. Plaintext vaults load without looking at
// passphrase; envelopes are decrypted with it.
func Load(raw []byte, passphrase string) (*Vault, error) {
	doc, err := Detect(raw)
	if err != nil {
		return nil, err
	}
	return doc.Open(passphrase)
}

// Marshal renders v in its persisted form: an envelope sealed with
// passphrase when v.Settings.Encrypt is set, plaintext otherwise.
func Marshal(v *Vault, passphrase string) ([]byte, error) {
	if !v.Settings.Encrypt {
		return json.MarshalIndent(v, "", "  ")
	}

	env, err := Encrypt(v, passphrase)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(env, "", "  ")
}
