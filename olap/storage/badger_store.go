package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

var programPrefix = []byte("program/")

// BadgerStore implements ProgramStore using BadgerDB. Values are JSON
// entries, LZ4-compressed.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens or creates a store in dir
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return openBadger(opts)
}

// NewInMemoryBadgerStore creates a store that lives only in memory
func NewInMemoryBadgerStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts)
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func programKey(key string) []byte {
	return append(append([]byte{}, programPrefix...), key...)
}

// Get returns the entry stored under key, or ErrNotFound
func (s *BadgerStore) Get(key string) (Entry, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(programKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read program %s: %w", key, err)
	}

	raw, err := decodeValue(value)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to decode program %s: %w", key, err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, fmt.Errorf("failed to decode program %s: %w", key, err)
	}
	return entry, nil
}

// Put stores entry under entry.Key, replacing any previous value
func (s *BadgerStore) Put(entry Entry) error {
	if entry.Key == "" {
		return errors.New("program entry has no key")
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode program %s: %w", entry.Key, err)
	}
	value, err := encodeValue(raw)
	if err != nil {
		return fmt.Errorf("failed to encode program %s: %w", entry.Key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(programKey(entry.Key), value)
	})
}

// Delete removes the entry stored under key. Deleting a missing key is not
// an error.
func (s *BadgerStore) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(programKey(key))
	})
}

// Keys lists the keys of all stored programs
func (s *BadgerStore) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = programPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().Key()
			keys = append(keys, string(k[len(programPrefix):]))
		}
		return nil
	})
	return keys, err
}

// Close closes the underlying database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
