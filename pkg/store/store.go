package store

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"log"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/kacperjurak/govarcore/pkg/models"
)

// ErrNotFound is returned by Get for an unknown fit ID.
var ErrNotFound = errors.New("store: fit not found")

const keyPrefix = "fit/"

// ResultStore persists fit results in BadgerDB keyed by their ID
type ResultStore struct {
	DB *badger.DB
}

// Open opens or creates the store at path.
func Open(path string) (*ResultStore, error) {
	opts := badger.DefaultOptions(path).
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	return open(opts, path)
}

// OpenInMemory returns a store that lives only as long as the process.
func OpenInMemory() (*ResultStore, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil), ":memory:")
}

func open(opts badger.Options, path string) (*ResultStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	log.Printf("💾 Result store opened at %s", path)
	return &ResultStore{DB: db}, nil
}

func fitKey(id string) []byte {
	return []byte(keyPrefix + id)
}

// Put stores r under r.ID, replacing a previous value.
func (s *ResultStore) Put(r *models.FitResult) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("store: result without ID")
	}
	v, err := encode(r)
	if err != nil {
		return err
	}
	return s.DB.Update(func(txn *badger.Txn) error {
		return txn.Set(fitKey(r.ID), v)
	})
}

// Get returns the fit stored under id or ErrNotFound.
func (s *ResultStore) Get(id string) (*models.FitResult, error) {
	var r *models.FitResult
	err := s.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fitKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			r, err = decode(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// List returns the IDs of every stored fit in key order.
func (s *ResultStore) List() ([]string, error) {
	var ids []string
	err := s.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(keyPrefix):]))
		}
		return nil
	})
	return ids, err
}

func (s *ResultStore) Close() error {
	if err := s.DB.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

func encode(r *models.FitResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("fit encode error: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*models.FitResult, error) {
	var r models.FitResult
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r); err != nil {
		return nil, fmt.Errorf("fit decode error: %w", err)
	}
	return &r, nil
}
