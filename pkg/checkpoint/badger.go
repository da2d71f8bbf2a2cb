package checkpoint

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/tliron/commonlog"
)

const (
	// checkpointKeyPrefix is the prefix for checkpoint keys in BadgerDB.
	checkpointKeyPrefix = "checkpoint:"
)

// BadgerStore is a persistent implementation of Store using BadgerDB.
type BadgerStore struct {
	db    *badger.DB
	codec *Codec
	count atomic.Uint64
	log   commonlog.Logger
}

// NewBadgerStore opens or creates a checkpoint database at path.
func NewBadgerStore(path string, codec *Codec) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger logging

	return openBadger(opts, codec)
}

// NewInMemoryBadgerStore creates a BadgerDB store that never touches disk.
func NewInMemoryBadgerStore(codec *Codec) (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return openBadger(opts, codec)
}

func openBadger(opts badger.Options, codec *Codec) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &BadgerStore{
		db:    db,
		codec: codec,
		log:   commonlog.GetLogger("intcode.checkpoint"),
	}

	// Count existing checkpoints
	names, err := s.List()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to count checkpoints: %w", err)
	}
	s.count.Store(uint64(len(names)))

	s.log.Debugf("opened checkpoint store with %d entries", len(names))
	return s, nil
}

// makeCheckpointKey creates the key for a checkpoint.
func makeCheckpointKey(name string) []byte {
	key := make([]byte, 0, len(checkpointKeyPrefix)+len(name))
	key = append(key, checkpointKeyPrefix...)
	return append(key, name...)
}

// Save stores cp.
func (s *BadgerStore) Save(cp *Checkpoint) error {
	data, err := s.codec.Encode(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	key := makeCheckpointKey(cp.Name)

	var isNew bool
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		isNew = errors.Is(err, badger.ErrKeyNotFound)
		if err != nil && !isNew {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", cp.Name, err)
	}

	if isNew {
		s.count.Add(1)
	}
	s.log.Debugf("saved checkpoint %s (%d bytes)", cp.Name, len(data))
	return nil
}

// Load retrieves a checkpoint by name.
func (s *BadgerStore) Load(name string) (*Checkpoint, error) {
	var cp *Checkpoint

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeCheckpointKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			var decodeErr error
			cp, decodeErr = s.codec.Decode(val)
			return decodeErr
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %s: %w", name, err)
	}

	return cp, nil
}

// Delete removes a checkpoint.
func (s *BadgerStore) Delete(name string) error {
	key := makeCheckpointKey(name)

	var deleted bool
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // Already deleted
		}
		if err != nil {
			return err
		}

		deleted = true
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint %s: %w", name, err)
	}

	if deleted {
		s.count.Add(^uint64(0)) // Decrement by 1
	}
	return nil
}

// List returns the stored names in key order, which is sorted.
func (s *BadgerStore) List() ([]string, error) {
	var names []string
	prefix := []byte(checkpointKeyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // Only need keys
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			names = append(names, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	return names, nil
}

// Count returns the number of stored checkpoints.
func (s *BadgerStore) Count() uint64 {
	return s.count.Load()
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Ensure BadgerStore implements Store.
var _ Store = (*BadgerStore)(nil)
