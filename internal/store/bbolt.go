package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// Bucket names
var (
	VaultBucket   = []byte("vault")
	HistoryBucket = []byte("history")

	documentKey = []byte("document")
)

// BoltStore keeps the document in a bbolt database together with the last
// historyLimit documents it replaced. bbolt holds an exclusive flock on the
// database file while the store is open.
type BoltStore struct {
	db           *bbolt.DB
	historyLimit int
}

// OpenBoltStore opens (creating if needed) the bbolt database at path.
func OpenBoltStore(path string, historyLimit int) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, ErrVaultLocked
		}
		return nil, fmt.Errorf("failed to open vault database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(VaultBucket); err != nil {
			return fmt.Errorf("failed to create vault bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(HistoryBucket); err != nil {
			return fmt.Errorf("failed to create history bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if historyLimit < 0 {
		historyLimit = 0
	}

	return &BoltStore{db: db, historyLimit: historyLimit}, nil
}

// Exists implements Store.
func (bs *BoltStore) Exists() (bool, error) {
	if bs.db == nil {
		return false, ErrClosed
	}
	var exists bool
	err := bs.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(VaultBucket).Get(documentKey) != nil
		return nil
	})
	return exists, err
}

// Load implements Store.
func (bs *BoltStore) Load() ([]byte, error) {
	if bs.db == nil {
		return nil, ErrClosed
	}
	var data []byte
	err := bs.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(VaultBucket).Get(documentKey)
		if value == nil {
			return ErrVaultNotFound
		}
		// bbolt values are only valid inside the transaction
		data = append([]byte(nil), value...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save implements Store. The replaced document moves to the history bucket
// and the oldest revisions beyond the limit are dropped.
func (bs *BoltStore) Save(data []byte) error {
	if bs.db == nil {
		return ErrClosed
	}
	return bs.db.Update(func(tx *bbolt.Tx) error {
		current := tx.Bucket(VaultBucket)
		if previous := current.Get(documentKey); previous != nil && bs.historyLimit > 0 {
			if err := bs.pushRevision(tx.Bucket(HistoryBucket), previous); err != nil {
				return err
			}
		}
		if err := current.Put(documentKey, data); err != nil {
			return fmt.Errorf("failed to store vault document: %w", err)
		}
		return nil
	})
}

type revisionEnvelope struct {
	SavedAt  time.Time `json:"saved_at"`
	Document []byte    `json:"document"`
}

func (bs *BoltStore) pushRevision(history *bbolt.Bucket, document []byte) error {
	seq, err := history.NextSequence()
	if err != nil {
		return fmt.Errorf("failed to allocate revision sequence: %w", err)
	}

	payload, err := json.Marshal(revisionEnvelope{SavedAt: time.Now().UTC(), Document: document})
	if err != nil {
		return fmt.Errorf("failed to encode revision: %w", err)
	}
	if err := history.Put(seqKey(seq), payload); err != nil {
		return fmt.Errorf("failed to store revision: %w", err)
	}

	var keys [][]byte
	c := history.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	if len(keys) <= bs.historyLimit {
		return nil
	}
	stale := keys[:len(keys)-bs.historyLimit]
	for _, k := range stale {
		if err := history.Delete(k); err != nil {
			return fmt.Errorf("failed to prune revision: %w", err)
		}
	}
	return nil
}

// History implements Historian.
func (bs *BoltStore) History() ([]Revision, error) {
	if bs.db == nil {
		return nil, ErrClosed
	}
	var revisions []Revision
	err := bs.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(HistoryBucket).ForEach(func(k, v []byte) error {
			rev, err := decodeRevision(k, v)
			if err != nil {
				return err
			}
			revisions = append(revisions, *rev)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return revisions, nil
}

// Revision implements Historian.
func (bs *BoltStore) Revision(seq uint64) (*Revision, error) {
	if bs.db == nil {
		return nil, ErrClosed
	}
	var rev *Revision
	err := bs.db.View(func(tx *bbolt.Tx) error {
		key := seqKey(seq)
		value := tx.Bucket(HistoryBucket).Get(key)
		if value == nil {
			return fmt.Errorf("%w: %d", ErrRevisionNotFound, seq)
		}
		var err error
		rev, err = decodeRevision(key, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rev, nil
}

// Close implements Store.
func (bs *BoltStore) Close() error {
	if bs.db == nil {
		return nil
	}
	err := bs.db.Close()
	bs.db = nil
	return err
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

func decodeRevision(key, value []byte) (*Revision, error) {
	if len(key) != 8 {
		return nil, fmt.Errorf("corrupted revision key %x", key)
	}
	var env revisionEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, fmt.Errorf("corrupted revision %d: %w", binary.BigEndian.Uint64(key), err)
	}
	return &Revision{
		Seq:      binary.BigEndian.Uint64(key),
		SavedAt:  env.SavedAt,
		Document: env.Document,
	}, nil
}
