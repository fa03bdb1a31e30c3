// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianQuill/services/quill/buffer"
	"github.com/AleutianAI/AleutianQuill/services/quill/provenance"
)

const (
	bufferPrefix = "buffer/"
	chainPrefix  = "chain/"
)

// Store persists buffers and chains.
//
// # Description
//
// Buffers are written once under buffer/<id>. Chains are written whole
// under chain/<id> on every append; since the tracker replaces chain
// values rather than mutating them, the saved snapshot is always
// internally consistent.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB transactions provide isolation.
type Store struct {
	db     *DB
	logger *slog.Logger
}

// NewStore wraps a database. A nil logger disables logging.
func NewStore(db *DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, logger: logger}
}

// SaveBuffer persists one buffer snapshot.
func (s *Store) SaveBuffer(b *buffer.ContentBuffer) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode buffer %s: %w", b.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(bufferPrefix+b.ID), raw)
	})
	if err != nil {
		return fmt.Errorf("save buffer %s: %w", b.ID, err)
	}
	return nil
}

// SaveChain persists the current snapshot of one chain.
func (s *Store) SaveChain(chain *provenance.Chain) error {
	raw, err := json.Marshal(chain)
	if err != nil {
		return fmt.Errorf("encode chain %s: %w", chain.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(chainPrefix+chain.ID), raw)
	})
	if err != nil {
		return fmt.Errorf("save chain %s: %w", chain.ID, err)
	}
	return nil
}

// Load restores all persisted buffers and chains.
//
// # Description
//
// Buffers are loaded first so the repository's dedup index is complete
// before chains arrive. Chains go through the tracker's import path,
// which re-verifies every chain's hash continuity; any verification
// failure aborts the whole load. Corrupted provenance must never be
// served as if it were intact.
//
// # Inputs
//
//   - repo: target repository. Should be empty.
//   - tracker: target tracker. Should be empty.
func (s *Store) Load(repo *buffer.Repository, tracker *provenance.Tracker) error {
	var (
		buffers []*buffer.ContentBuffer
		chains  []*provenance.Chain
	)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(val []byte) error {
				switch {
				case len(key) > len(bufferPrefix) && key[:len(bufferPrefix)] == bufferPrefix:
					var b buffer.ContentBuffer
					if err := json.Unmarshal(val, &b); err != nil {
						return fmt.Errorf("decode %s: %w", key, err)
					}
					buffers = append(buffers, &b)
				case len(key) > len(chainPrefix) && key[:len(chainPrefix)] == chainPrefix:
					var c provenance.Chain
					if err := json.Unmarshal(val, &c); err != nil {
						return fmt.Errorf("decode %s: %w", key, err)
					}
					chains = append(chains, &c)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, b := range buffers {
		if err := repo.Put(b); err != nil {
			return fmt.Errorf("restore buffer %s: %w", b.ID, err)
		}
	}
	if err := tracker.Import(chains); err != nil {
		return fmt.Errorf("restore chains: %w", err)
	}

	s.logger.Info("storage loaded", "buffers", len(buffers), "chains", len(chains))
	return nil
}
