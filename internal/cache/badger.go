// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// badgerDeleteBatch bounds the keys removed per transaction.
const badgerDeleteBatch = 1000

// BadgerStore persists results in an embedded Badger database.
type BadgerStore struct {
	db       *badger.DB
	owned    bool
	counters counters
}

// OpenBadgerStore opens (or creates) a Badger database at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &BadgerStore{db: db, owned: true}, nil
}

// NewBadgerStore wraps a database owned by the caller.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Get returns the value for key. Badger hides entries past their TTL.
func (b *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		b.counters.misses.Add(1)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	b.counters.hits.Add(1)
	return data, nil
}

// Set stores value with a Badger TTL when ttl is positive.
func (b *BadgerStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := badger.NewEntry([]byte(key), value)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry)
	}); err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

// DeletePrefix removes every live key starting with prefix.
func (b *BadgerStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := b.keysWithPrefix([]byte(prefix))
	if err != nil {
		return 0, fmt.Errorf("badger scan: %w", err)
	}

	removed := 0
	for start := 0; start < len(keys); start += badgerDeleteBatch {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		end := start + badgerDeleteBatch
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]
		if err := b.db.Update(func(txn *badger.Txn) error {
			for _, k := range batch {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return removed, fmt.Errorf("badger delete: %w", err)
		}
		removed += len(batch)
	}
	b.counters.evictions.Add(int64(removed))
	return removed, nil
}

func (b *BadgerStore) keysWithPrefix(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

// Stats returns the counters and the number of live keys.
func (b *BadgerStore) Stats() Stats {
	keys, err := b.keysWithPrefix(nil)
	n := int64(len(keys))
	if err != nil {
		n = -1
	}
	return b.counters.snapshot(n)
}

// Backend returns "badger".
func (b *BadgerStore) Backend() string { return "badger" }

// Close closes the database when the store opened it.
func (b *BadgerStore) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}

// DefaultGCDiscardRatio is the value log discard ratio used by Maintain.
const DefaultGCDiscardRatio = 0.5

// Maintain reclaims value log space left by expired and deleted entries.
// It runs GC until Badger reports nothing left to rewrite.
func (b *BadgerStore) Maintain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := b.db.RunValueLogGC(DefaultGCDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("badger value log gc: %w", err)
		}
	}
}
