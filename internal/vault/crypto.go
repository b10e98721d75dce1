package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"

	"github.com/rehash-cli/rehash/internal/generator"
	"github.com/rehash-cli/rehash/internal/util"
)

const (
	// Crypto constants
	KeySize   = 32 // AES-256 key size
	NonceSize = 12 // GCM nonce size
	TagSize   = 16 // GCM tag size
)

var (
	// keySalt never equals an account salt in practice: account salts are
	// printable user input, this one contains NUL bytes.
	keySalt = []byte("rehash\x00vault-key\x00v1")
	keyInfo = []byte("rehash vault AES-256-GCM key")
)

var (
	// ErrInvalidEncoding is returned when an envelope field is not valid base64
	// or decodes to a value of the wrong size.
	ErrInvalidEncoding = errors.New("invalid envelope encoding")
	// ErrWrongPassword is returned when the envelope cannot be opened. A wrong
	// passphrase and a tampered ciphertext are deliberately indistinguishable.
	ErrWrongPassword = errors.New("wrong password or corrupted vault")
	// ErrInternal is returned for envelopes that cannot even be attempted and
	// for authenticated plaintext that does not parse.
	ErrInternal = errors.New("internal vault error")
)

// Envelope is the persisted encrypted form of a vault.
type Envelope struct {
	IV    string `json:"iv"`
	Store string `json:"store"`
}

// GenerateNonce creates a cryptographically secure random nonce
func GenerateNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// DeriveKey derives the vault encryption key from passphrase. It runs
// Argon2id with the Recommended2024 profile over a fixed domain salt and
// expands the result with HKDF-SHA256, so the key is unrelated to any
// account password derived from the same passphrase.
func DeriveKey(passphrase string) ([]byte, error) {
	params, err := generator.RecommendedProfile(generator.Recommended2024).Resolve()
	if err != nil {
		return nil, err
	}

	password := []byte(passphrase)
	defer util.Zeroize(password)

	master := argon2.IDKey(password, keySalt, params.Iterations, params.MemorySizeKiB, uint8(params.Parallelism), KeySize)
	defer util.Zeroize(master)

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, keySalt, keyInfo), key); err != nil {
		return nil, fmt.Errorf("failed to expand key: %w", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals v under a key derived from passphrase. Every call uses a
// fresh random nonce.
func Encrypt(v *Vault, passphrase string) (*Envelope, error) {
	plaintext, err := MarshalPlain(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize vault: %w", err)
	}
	defer util.Zeroize(plaintext)

	key, err := DeriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	defer util.Zeroize(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	return &Envelope{
		IV:    base64.StdEncoding.EncodeToString(nonce),
		Store: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Decrypt opens env with passphrase and parses the vault inside.
func Decrypt(env *Envelope, passphrase string) (*Vault, error) {
	nonce, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: iv: %v", ErrInvalidEncoding, err)
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrInvalidEncoding, NonceSize, len(nonce))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.Store)
	if err != nil {
		return nil, fmt.Errorf("%w: store: %v", ErrInvalidEncoding, err)
	}
	if len(ciphertext) < TagSize {
		return nil, fmt.Errorf("%w: ciphertext of %d bytes cannot hold a %d byte tag", ErrInternal, len(ciphertext), TagSize)
	}

	key, err := DeriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	defer util.Zeroize(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	defer util.Zeroize(plaintext)

	v, err := Parse(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypted vault is unreadable: %v", ErrInternal, err)
	}
	return v, nil
}
