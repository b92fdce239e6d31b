// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger persists graph snapshots in an embedded BadgerDB store,
// so a service restart can serve the last built graph without a rebuild.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianGraph/services/depgraph/graph"
)

const snapshotPrefix = "snapshot/"

var (
	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("snapshot store is closed")

	// ErrSnapshotNotFound indicates no snapshot exists under the id.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// StoreOptions configures the snapshot store.
type StoreOptions struct {
	// Dir is the on-disk location. Ignored when InMemory is set.
	Dir string

	// InMemory keeps the store in memory only; nothing survives a
	// restart.
	InMemory bool

	// Logger receives store lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Store is a snapshot store backed by BadgerDB.
//
// Thread Safety:
//
//	Store is safe for concurrent use; Badger transactions provide the
//	isolation.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewStore opens the store.
func NewStore(opts StoreOptions) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		badgerOpts = badger.DefaultOptions(opts.Dir)
	}
	// Badger's own logger is too chatty for an embedded store.
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	logger.Info("snapshot store opened", "dir", opts.Dir, "in_memory", opts.InMemory)
	return &Store{db: db, logger: logger}, nil
}

// Close releases the store. Safe to call twice.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// SaveSnapshot persists one graph snapshot under the given id,
// overwriting any previous snapshot with that id.
func (s *Store) SaveSnapshot(ctx context.Context, id string, snap *graph.GraphSnapshot) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", id, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotPrefix+id), payload)
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", id, err)
	}
	s.logger.Debug("snapshot saved", "id", id, "bytes", len(payload))
	return nil
}

// LoadSnapshot retrieves one snapshot.
//
// Errors:
//
//	ErrSnapshotNotFound - No snapshot exists under the id.
//	graph.ErrSnapshotCorrupt - The stored payload does not decode.
func (s *Store) LoadSnapshot(ctx context.Context, id string) (*graph.GraphSnapshot, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snap graph.GraphSnapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &snap); err != nil {
				return fmt.Errorf("%w: %s: %v", graph.ErrSnapshotCorrupt, id, err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// DeleteSnapshot removes one snapshot. Deleting an absent id is not an
// error.
func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(snapshotPrefix + id))
	})
}

// ListSnapshots returns the stored snapshot ids, sorted.
func (s *Store) ListSnapshots(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix: []byte(snapshotPrefix),
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, strings.TrimPrefix(key, snapshotPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}
