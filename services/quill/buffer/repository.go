// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package buffer

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository holds immutable ContentBuffer values keyed by id.
//
// # Description
//
// Insertion is write-once per id: any "change" to a buffer must be modeled
// as a new buffer plus a recorded operation, never an in-place edit. A
// content-hash index supports deduplication lookups.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Returned buffers are defensive
// copies; callers may read them freely.
type Repository struct {
	mu      sync.RWMutex
	buffers map[string]*ContentBuffer
	byHash  map[string][]string // contentHash -> buffer ids, insertion order
}

// NewRepository creates an empty buffer repository.
func NewRepository() *Repository {
	return &Repository{
		buffers: make(map[string]*ContentBuffer),
		byHash:  make(map[string][]string),
	}
}

// Create builds and stores a new transient buffer from raw content.
//
// # Inputs
//
//   - text: The buffer content. May be empty.
//   - format: Markup family; must be one of the closed set.
//   - origin: Provenance of the content. Copied as-is, never mutated.
//
// # Outputs
//
//   - *ContentBuffer: The stored buffer (state=transient, fresh id).
//   - error: ErrInvalidFormat for unknown formats.
func (r *Repository) Create(text string, format Format, origin Origin) (*ContentBuffer, error) {
	format, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b := &ContentBuffer{
		ID:          uuid.NewString(),
		ContentHash: Hash(text, format),
		Text:        text,
		WordCount:   WordCount(text),
		Format:      format,
		State:       StateTransient,
		Origin:      origin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.Put(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns the buffer with the given id.
//
// Returns ErrNotFound if the id is unknown.
func (r *Repository) Get(id string) (*ContentBuffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return b.clone(), nil
}

// Put inserts a buffer. Write-once: an existing id is rejected.
//
// # Outputs
//
//   - error: ErrAlreadyExists if the id is taken; ErrInvalidFormat for a
//     format outside the closed set.
func (r *Repository) Put(b *ContentBuffer) error {
	if b == nil || b.ID == "" {
		return fmt.Errorf("put: buffer and id are required")
	}
	if _, err := ParseFormat(string(b.Format)); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.buffers[b.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, b.ID)
	}
	stored := b.clone()
	r.buffers[b.ID] = stored
	r.byHash[stored.ContentHash] = append(r.byHash[stored.ContentHash], stored.ID)
	return nil
}

// FindByHash returns all buffer ids sharing a content hash, oldest first.
//
// Used for deduplication: identical snapshots are interchangeable for
// storage even though each keeps its own id for lineage.
func (r *Repository) FindByHash(contentHash string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byHash[contentHash]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// FirstByHash returns the oldest buffer with the given content hash.
//
// Returns ErrNotFound when no buffer has that hash.
func (r *Repository) FirstByHash(contentHash string) (*ContentBuffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byHash[contentHash]
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: hash %s", ErrNotFound, contentHash)
	}
	return r.buffers[ids[0]].clone(), nil
}

// Len returns the number of stored buffers.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buffers)
}

// All returns a copy of every stored buffer. Intended for persistence.
func (r *Repository) All() []*ContentBuffer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ContentBuffer, 0, len(r.buffers))
	for _, b := range r.buffers {
		out = append(out, b.clone())
	}
	return out
}
