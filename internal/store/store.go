// Package store persists the raw vault document. It knows nothing about
// the document's contents: encryption and parsing happen in package vault.
package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Error variables for vault store operations
var (
	// ErrVaultNotFound is returned when no document has been saved yet
	ErrVaultNotFound = errors.New("vault not found")
	// ErrVaultLocked is returned when the vault is locked by another process
	ErrVaultLocked = errors.New("vault is locked by another process")
	// ErrRevisionNotFound is returned when a history revision does not exist
	ErrRevisionNotFound = errors.New("revision not found")
	// ErrUnknownBackend is returned for an unsupported storage backend name
	ErrUnknownBackend = errors.New("unknown storage backend")
	// ErrClosed is returned when a closed store is used
	ErrClosed = errors.New("store is closed")
)

// Backend names accepted by Open.
const (
	BackendAuto = "auto"
	BackendFile = "file"
	BackendBolt = "bolt"
)

// lockTimeout bounds how long Open waits for another process.
const lockTimeout = 10 * time.Second

// Store holds a single vault document.
type Store interface {
	// Exists reports whether a document has been saved.
	Exists() (bool, error)
	// Load returns the saved document or ErrVaultNotFound.
	Load() ([]byte, error)
	// Save replaces the document.
	Save(data []byte) error
	// Close releases locks and handles.
	Close() error
}

// Revision is a previously saved document kept by a Historian.
type Revision struct {
	Seq      uint64    `json:"seq"`
	SavedAt  time.Time `json:"saved_at"`
	Document []byte    `json:"document"`
}

// Historian is implemented by stores that keep earlier documents.
type Historian interface {
	// History returns kept revisions, oldest first.
	History() ([]Revision, error)
	// Revision returns the revision with sequence number seq.
	Revision(seq uint64) (*Revision, error)
}

// ResolveBackend maps BackendAuto to a concrete backend by file extension.
func ResolveBackend(path, backend string) (string, error) {
	switch strings.ToLower(backend) {
	case "", BackendAuto:
		switch strings.ToLower(filepath.Ext(path)) {
		case ".db", ".bolt":
			return BackendBolt, nil
		default:
			return BackendFile, nil
		}
	case BackendFile:
		return BackendFile, nil
	case BackendBolt:
		return BackendBolt, nil
	default:
		return "", fmt.Errorf("%w: %q (valid: auto, file, bolt)", ErrUnknownBackend, backend)
	}
}

// Open opens the store at path with the given backend. historyLimit is the
// number of earlier documents the bolt backend keeps.
func Open(path, backend string, historyLimit int) (Store, error) {
	resolved, err := ResolveBackend(path, backend)
	if err != nil {
		return nil, err
	}

	switch resolved {
	case BackendBolt:
		return OpenBoltStore(path, historyLimit)
	default:
		return OpenFileStore(path)
	}
}
