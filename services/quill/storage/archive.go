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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianQuill/services/quill/buffer"
)

// archiveRecord is the stored form of an archived document.
type archiveRecord struct {
	Text      string            `json:"text"`
	Origin    buffer.Origin     `json:"origin"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Archive serves load-archive and export-to-archive against the local
// database under an id namespace, so separate archives (source material
// vs. authored works) can share one database.
type Archive struct {
	db     *DB
	prefix string
}

// NewArchive opens an archive namespace, e.g. "archive" or "works".
func NewArchive(db *DB, namespace string) *Archive {
	return &Archive{db: db, prefix: namespace + "/"}
}

// LoadContent fetches archived text and its origin by source id.
//
// Returns buffer.ErrNotFound (wrapped) for an unknown id.
func (a *Archive) LoadContent(ctx context.Context, sourceID string) (string, buffer.Origin, error) {
	var rec archiveRecord
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(a.prefix + sourceID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", buffer.Origin{}, fmt.Errorf("%w: archived source %s", buffer.ErrNotFound, sourceID)
	}
	if err != nil {
		return "", buffer.Origin{}, fmt.Errorf("load archived source %s: %w", sourceID, err)
	}
	return rec.Text, rec.Origin, nil
}

// ExportContent writes text into the archive and returns the new source id.
func (a *Archive) ExportContent(ctx context.Context, text string, metadata map[string]string) (string, error) {
	sourceID := uuid.NewString()
	rec := archiveRecord{
		Text:      text,
		Origin:    buffer.Origin{Kind: buffer.SourceArchive, SourceID: sourceID},
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode archive record: %w", err)
	}
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(a.prefix+sourceID), raw)
	})
	if err != nil {
		return "", fmt.Errorf("export to archive: %w", err)
	}
	return sourceID, nil
}

// Put stores text under a caller-chosen source id. Used for seeding.
func (a *Archive) Put(sourceID, text string, origin buffer.Origin) error {
	rec := archiveRecord{
		Text:      text,
		Origin:    origin,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode archive record: %w", err)
	}
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(a.prefix+sourceID), raw)
	})
	if err != nil {
		return fmt.Errorf("store archived source %s: %w", sourceID, err)
	}
	return nil
}
