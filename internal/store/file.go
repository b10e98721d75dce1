package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStore keeps the document in a plain file. The file is locked for the
// lifetime of the store and replaced atomically on Save.
type FileStore struct {
	path string
	lock *FileLock
}

// OpenFileStore locks path and returns a store for it. The file itself
// need not exist yet.
func OpenFileStore(path string) (*FileStore, error) {
	lock := NewFileLock(path)
	if err := lock.Lock(lockTimeout); err != nil {
		if errors.Is(err, ErrLockTimeout) {
			return nil, ErrVaultLocked
		}
		return nil, fmt.Errorf("failed to lock vault: %w", err)
	}
	return &FileStore{path: path, lock: lock}, nil
}

// Exists implements Store.
func (fs *FileStore) Exists() (bool, error) {
	if fs.lock == nil {
		return false, ErrClosed
	}
	_, err := os.Stat(fs.path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Load implements Store.
func (fs *FileStore) Load() ([]byte, error) {
	if fs.lock == nil {
		return nil, ErrClosed
	}
	if err := EnsureFilePermissions(fs.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrVaultNotFound
		}
		return nil, fmt.Errorf("failed to verify vault permissions: %w", err)
	}

	data, err := os.ReadFile(filepath.Clean(fs.path))
	if err != nil {
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}
	return data, nil
}

// Save implements Store.
func (fs *FileStore) Save(data []byte) error {
	if fs.lock == nil {
		return ErrClosed
	}
	if err := AtomicWriteFile(fs.path, data); err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	return nil
}

// Close implements Store.
func (fs *FileStore) Close() error {
	if fs.lock == nil {
		return nil
	}
	err := fs.lock.Unlock()
	fs.lock = nil
	return err
}

// AtomicWriteFile writes data to a temp file next to path, syncs it and
// renames it over path.
func AtomicWriteFile(path string, data []byte) (err error) {
	dir := filepath.Dir(filepath.Clean(path))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp.%d.%d", filepath.Base(path), os.Getpid(), time.Now().UnixNano()))
	tempFile, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tempFile.Close()
			_ = os.Remove(tempPath)
		}
	}()

	if _, err = tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// EnsureFilePermissions ensures the file has secure permissions (0600)
func EnsureFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if info.Mode().Perm()&0o077 != 0 {
		return os.Chmod(path, 0o600)
	}
	return nil
}
