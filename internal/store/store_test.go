package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBackend(t *testing.T) {
	tests := []struct {
		path, backend, want string
	}{
		{"vault.json", BackendAuto, BackendFile},
		{"vault.db", "", BackendBolt},
		{"vault.BOLT", BackendAuto, BackendBolt},
		{"vault.db", BackendFile, BackendFile},
		{"vault.json", "Bolt", BackendBolt},
	}
	for _, tt := range tests {
		got, err := ResolveBackend(tt.path, tt.backend)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s/%s", tt.path, tt.backend)
	}

	_, err := ResolveBackend("vault.json", "s3")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vault.json")

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exists, err := s.Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Load()
	assert.ErrorIs(t, err, ErrVaultNotFound)

	require.NoError(t, s.Save([]byte(`{"iv":"a","store":"b"}`)))
	require.NoError(t, s.Save([]byte(`{"iv":"c","store":"d"}`)))

	exists, err = s.Exists()
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, `{"iv":"c","store":"d"}`, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".vault.json.tmp.*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	require.NoError(t, s.Close())
	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err), "lock file removed on close")

	_, err = s.Load()
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, s.Close())
}

func TestFileStoreTightensPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	require.NoError(t, os.Chmod(path, 0o644))

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load()
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileLockContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")

	first := NewFileLock(path)
	require.NoError(t, first.Lock(time.Second))
	assert.True(t, first.IsLocked())

	second := NewFileLock(path)
	assert.ErrorIs(t, second.Lock(200*time.Millisecond), ErrLockTimeout)
	assert.False(t, second.IsLocked())

	require.NoError(t, first.Unlock())
	assert.ErrorIs(t, first.Unlock(), ErrLockNotHeld)

	require.NoError(t, second.Lock(time.Second))
	require.NoError(t, second.Unlock())
}

func TestFileLockRemovesStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	require.NoError(t, os.WriteFile(path+".lock", []byte("1"), 0o600))
	old := time.Now().Add(-2 * staleLockAge)
	require.NoError(t, os.Chtimes(path+".lock", old, old))

	lock := NewFileLock(path)
	require.NoError(t, lock.Lock(time.Second))
	require.NoError(t, lock.Unlock())
}

func TestFileLockKeepsOldLockOfLiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")

	first := NewFileLock(path)
	require.NoError(t, first.Lock(time.Second))
	old := time.Now().Add(-2 * staleLockAge)
	require.NoError(t, os.Chtimes(path+".lock", old, old))

	second := NewFileLock(path)
	assert.ErrorIs(t, second.Lock(300*time.Millisecond), ErrLockTimeout)

	require.NoError(t, first.Unlock())
	require.NoError(t, second.Lock(time.Second))

	// Releasing the first lock must not have touched the second one.
	_, err := os.Stat(path + ".lock")
	require.NoError(t, err)
	third := NewFileLock(path)
	assert.ErrorIs(t, third.Lock(200*time.Millisecond), ErrLockTimeout)

	require.NoError(t, second.Unlock())
	_, err = os.Stat(path + ".lock")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileLockKeepsFreshUnlockedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	require.NoError(t, os.WriteFile(path+".lock", []byte("1"), 0o600))

	lock := NewFileLock(path)
	assert.ErrorIs(t, lock.Lock(200*time.Millisecond), ErrLockTimeout)
}

func TestFileStoreLockedByLiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")

	first, err := OpenFileStore(path)
	require.NoError(t, err)
	defer first.Close()
	old := time.Now().Add(-2 * staleLockAge)
	require.NoError(t, os.Chtimes(path+".lock", old, old))

	assert.False(t, NewFileLock(path).removeIfStale())
	_, err = os.Stat(path + ".lock")
	assert.NoError(t, err)
}

func TestBoltStoreHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")

	s, err := OpenBoltStore(path, 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Load()
	assert.ErrorIs(t, err, ErrVaultNotFound)

	for _, doc := range []string{"one", "two", "three", "four"} {
		require.NoError(t, s.Save([]byte(doc)))
	}

	data, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "four", string(data))

	history, err := s.History()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "two", string(history[0].Document))
	assert.Equal(t, "three", string(history[1].Document))
	assert.Less(t, history[0].Seq, history[1].Seq)
	assert.False(t, history[1].SavedAt.IsZero())

	rev, err := s.Revision(history[1].Seq)
	require.NoError(t, err)
	assert.Equal(t, "three", string(rev.Document))

	_, err = s.Revision(history[0].Seq - 1)
	assert.ErrorIs(t, err, ErrRevisionNotFound)
}

func TestBoltStoreWithoutHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")

	s, err := OpenBoltStore(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Save([]byte("one")))
	require.NoError(t, s.Save([]byte("two")))

	history, err := s.History()
	require.NoError(t, err)
	assert.Empty(t, history)
	require.NoError(t, s.Close())

	reopened, err := Open(path, BackendAuto, 5)
	require.NoError(t, err)
	defer reopened.Close()
	require.IsType(t, &BoltStore{}, reopened)

	exists, err := reopened.Exists()
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestOpenSelectsFileStore(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "vault.json"), BackendAuto, 5)
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &FileStore{}, s)

	_, isHistorian := s.(Historian)
	assert.False(t, isHistorian)
}
