package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/nspcc-dev/mptrie/pkg/core/storage/dbconfig"
)

// BadgerDBStore is the official storage implementation for storing and
// retrieving trie data using BadgerDB.
type BadgerDBStore struct {
	db *badger.DB
}

// NewBadgerDBStore returns a new BadgerDBStore object that will
// initialize the database found at the given path.
func NewBadgerDBStore(cfg dbconfig.BadgerDBOptions) (*BadgerDBStore, error) {
	opts := badger.DefaultOptions(cfg.Dir).
		WithReadOnly(cfg.ReadOnly).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB instance: %w", err)
	}
	return &BadgerDBStore{db: db}, nil
}

// Get implements the Store interface.
func (s *BadgerDBStore) Get(key []byte) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	return val, err
}

// Put implements the Store interface.
func (s *BadgerDBStore) Put(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// PutChangeSet implements the Store interface.
func (s *BadgerDBStore) PutChangeSet(puts map[string][]byte) error {
	wb := s.db.NewWriteBatch()
	for k, v := range puts {
		var err error
		if v != nil {
			err = wb.Set([]byte(k), v)
		} else {
			err = wb.Delete([]byte(k))
		}
		if err != nil {
			wb.Cancel()
			return err
		}
	}
	return wb.Flush()
}

// Seek implements the Store interface.
func (s *BadgerDBStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	rang := seekRangeToPrefixes(rng)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = rng.Backwards
		it := txn.NewIterator(opts)
		defer it.Close()

		switch {
		case !rng.Backwards:
			it.Seek(rang.Start)
		case len(rang.Limit) == 0:
			it.Rewind()
		default:
			// Reverse Seek stops at the key not greater than Limit.
			it.Seek(rang.Limit)
			if it.Valid() && bytes.Equal(it.Item().Key(), rang.Limit) {
				it.Next()
			}
		}
		for ; it.Valid(); it.Next() {
			item := it.Item()
			k := item.Key()
			if bytes.Compare(k, rang.Start) < 0 || (len(rang.Limit) != 0 && bytes.Compare(k, rang.Limit) >= 0) {
				break
			}
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !f(k, v) {
				break
			}
		}
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// Close releases all db resources.
func (s *BadgerDBStore) Close() error {
	return s.db.Close()
}
