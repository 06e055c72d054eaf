// Package badger implements index.Store on an embedded BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/marmos91/dittobox/pkg/index"
)

// maxConflictRetries bounds retries of optimistic transactions that lost a
// write conflict against a concurrent writer.
const maxConflictRetries = 10

// BadgerStore implements index.Store using BadgerDB.
//
// Thread Safety:
// BadgerDB transactions are serializable (MVCC with conflict detection), so no
// additional locking is needed. Transactions that lose a conflict are retried.
type BadgerStore struct {
	db   *badger.DB
	path string
}

// New opens (or creates) the BadgerDB index at config.Badger.Path.
func New(ctx context.Context, config *index.Config) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	config.ApplyDefaults()
	if config.Type != index.DatabaseTypeBadger {
		return nil, fmt.Errorf("unsupported database type for badger index: %s", config.Type)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	if err := os.MkdirAll(config.Badger.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory: %w", err)
	}

	opts := badger.DefaultOptions(config.Badger.Path).
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.Badger.Path, err)
	}

	return &BadgerStore{db: db, path: config.Badger.Path}, nil
}

// update runs fn in a read-write transaction, retrying on write conflicts.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) || attempt >= maxConflictRetries {
			return err
		}
	}
}

// view runs fn in a read-only transaction.
func (s *BadgerStore) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// getJSON decodes the value stored at key into v. Returns notFound if missing.
func getJSON(txn *badger.Txn, key []byte, v any, notFound error) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// setJSON encodes v and stores it at key.
func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// exists reports whether key is present.
func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// scan calls fn for every key with the given prefix, in key order.
// The value is only fetched when withValues is set.
func scan(txn *badger.Txn, prefix []byte, withValues bool, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = withValues

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		var val []byte
		if withValues {
			var err error
			if val, err = item.ValueCopy(nil); err != nil {
				return err
			}
		}
		if err := fn(key, val); err != nil {
			return err
		}
	}
	return nil
}

// deletePrefix removes every key with the given prefix.
func deletePrefix(txn *badger.Txn, prefix []byte) error {
	var keys [][]byte
	if err := scan(txn, prefix, false, func(key, _ []byte) error {
		keys = append(keys, key)
		return nil
	}); err != nil {
		return err
	}
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// ============================================
// HEALTH & LIFECYCLE
// ============================================

func (s *BadgerStore) Healthcheck(ctx context.Context) error {
	if s.db.IsClosed() {
		return fmt.Errorf("badger index at %s is closed", s.path)
	}
	return s.view(ctx, func(*badger.Txn) error { return nil })
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Compile-time interface check
var _ index.Store = (*BadgerStore)(nil)
