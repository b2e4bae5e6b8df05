package storage

import (
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"
)

type Config struct {
	Path string
}

// Storage is the local persistence layer. Session key grants live
// here; everything else in the system is derived from chain state and
// can be recomputed.
type Storage interface {
	Close() error

	GetKey(key []byte) ([]byte, error)
	GetByPrefix(prefix []byte) ([]*KeyValueItem, error)
	CountKeysByPrefix(prefix []byte) (int64, error)

	Set(key, value []byte) error
	Delete(key []byte) error

	Vacuum() error
	DbPath() string
}

type KeyValueItem struct {
	Key   []byte
	Value []byte
}

type BadgerStorage struct {
	config *Config
	db     *badger.DB
}

// Create storage pool at the particular path
func NewWithPath(path string) (Storage, error) {
	return New(&Config{
		Path: path,
	})
}

// Create storage pool with the given config
func New(c *Config) (Storage, error) {
	opts := badger.DefaultOptions(c.Path)
	db, err := badger.Open(
		opts.WithSyncWrites(true),
	)

	if err != nil {
		return nil, err
	}

	return &BadgerStorage{
		config: c,
		db:     db,
	}, nil
}

func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

func (s *BadgerStorage) Set(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *BadgerStorage) Delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (s *BadgerStorage) GetKey(key []byte) ([]byte, error) {
	var value []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			value = append([]byte{}, val...)
			return nil
		})
	})

	return value, err
}

// GetByPrefix return a list of key/value item whose key prefix matches
func (s *BadgerStorage) GetByPrefix(prefix []byte) ([]*KeyValueItem, error) {
	var result []*KeyValueItem

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 30
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			k := item.KeyCopy(nil)
			v, e := item.ValueCopy(nil)
			if e != nil {
				return e
			}

			result = append(result, &KeyValueItem{
				Key:   k,
				Value: v,
			})
		}
		return nil
	})

	return result, err
}

// CountKeysByPrefix return total key under a specific prefix, very
// efficient because it only operates on the lsm tree
func (s *BadgerStorage) CountKeysByPrefix(prefix []byte) (int64, error) {
	total := int64(0)

	if len(prefix) == 0 {
		return 0, fmt.Errorf("cannot count prefix with length 0")
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			total += 1
		}
		return nil
	})

	if err != nil {
		return 0, err
	}

	return total, nil
}

func (s *BadgerStorage) Vacuum() error {
	return s.db.RunValueLogGC(0.7)
}

func (s *BadgerStorage) DbPath() string {
	return s.config.Path
}

// Destroy is destructive action that shutdown a database, and wipe out its entire data directory
func Destroy(s *BadgerStorage) error {
	s.Close()
	return os.RemoveAll(s.config.Path)
}
