// Package generator derives account passwords from a master passphrase and
// public account metadata. Nothing is stored: the same inputs always
// reproduce the same password.
package generator

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/crypto/argon2"

	"github.com/rehash-cli/rehash/internal/util"
)

const (
	// MaxLength is the longest password Generate can produce.
	MaxLength = 64
	// MinSaltLength is the Argon2 minimum; shorter salts are padded with spaces.
	MinSaltLength = 8

	minMemoryPerLane = 8
	maxMemoryKiB     = 0x0FFFFFFF
	maxParallelism   = 255
	maxInputLength   = 0xFFFFFFFF
)

var (
	// ErrInvalidParameters is returned when the cost profile or output length
	// is rejected before any hashing happens.
	ErrInvalidParameters = errors.New("invalid argon2 parameters")
	// ErrGenerate is returned when the hash computation itself fails.
	ErrGenerate = errors.New("argon2 hash failed")
)

// Account is the public metadata a password is derived from.
type Account struct {
	URL      string
	Username string
	// Generation is bumped to rotate the password of a single account.
	Generation uint
	Length     uint
	Profile    Profile
}

// Generate derives the password for account from passphrase.
//
// The raw Argon2id output is base64 encoded (standard alphabet, padded) from
// a fixed 64-byte buffer and cut to Length characters. Changing any step
// changes every password ever generated.
func Generate(passphrase string, account Account) (string, error) {
	params, err := account.Profile.Resolve()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	if err := ValidateParams(params, account.Length); err != nil {
		return "", err
	}

	salt := Salt(account.Username, account.Generation, account.URL)

	var buffer [MaxLength]byte
	defer util.Zeroize(buffer[:])

	password := []byte(passphrase)
	defer util.Zeroize(password)

	if err := hashInto(buffer[:account.Length], password, salt, params); err != nil {
		return "", err
	}

	encoded := base64.StdEncoding.EncodeToString(buffer[:])
	return encoded[:account.Length], nil
}

// Salt builds the per-account salt: username, generation digits and url
// joined without a separator, right-padded with spaces to MinSaltLength
// bytes (not characters, which matters for multibyte input).
// The missing separator is kept so existing passwords stay reproducible.
func Salt(username string, generation uint, url string) []byte {
	salt := make([]byte, 0, len(username)+20+len(url))
	salt = append(salt, username...)
	salt = strconv.AppendUint(salt, uint64(generation), 10)
	salt = append(salt, url...)
	for len(salt) < MinSaltLength {
		salt = append(salt, ' ')
	}
	return salt
}

// ValidateParams checks params and the requested output length against what
// Argon2id accepts.
func ValidateParams(params CostProfile, length uint) error {
	if params.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be at least 1", ErrInvalidParameters)
	}
	if params.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism must be at least 1", ErrInvalidParameters)
	}
	if params.Parallelism > maxParallelism {
		return fmt.Errorf("%w: parallelism must be at most %d, got %d", ErrInvalidParameters, maxParallelism, params.Parallelism)
	}
	if uint64(params.MemorySizeKiB) < uint64(minMemoryPerLane)*uint64(params.Parallelism) {
		return fmt.Errorf("%w: memory size must be at least %d KiB per lane, got %d KiB for %d lanes",
			ErrInvalidParameters, minMemoryPerLane, params.MemorySizeKiB, params.Parallelism)
	}
	if params.MemorySizeKiB > maxMemoryKiB {
		return fmt.Errorf("%w: memory size must be at most %d KiB", ErrInvalidParameters, maxMemoryKiB)
	}
	if length < 1 || length > MaxLength {
		return fmt.Errorf("%w: output length must be between 1 and %d, got %d", ErrInvalidParameters, MaxLength, length)
	}
	return nil
}

func hashInto(out, password, salt []byte, params CostProfile) (err error) {
	if uint64(len(password)) > maxInputLength {
		return fmt.Errorf("%w: password too long", ErrGenerate)
	}
	if uint64(len(salt)) > maxInputLength {
		return fmt.Errorf("%w: salt too long", ErrGenerate)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrGenerate, r)
		}
	}()

	key := argon2.IDKey(password, salt, params.Iterations, params.MemorySizeKiB, uint8(params.Parallelism), uint32(len(out)))
	copy(out, key)
	util.Zeroize(key)
	return nil
}
