// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package provenance

import (
	"fmt"
	"time"
)

// Branch describes the named lineage a chain represents.
type Branch struct {
	// Name is the branch name ("main" for root chains by default).
	Name string `json:"name"`

	// Description is an optional human-readable purpose.
	Description string `json:"description,omitempty"`

	// IsMain marks the root lineage of a buffer.
	IsMain bool `json:"is_main"`
}

// Chain is the append-only lineage of one named line of buffers.
//
// # Description
//
// Invariants:
//   - len(Operations) == TransformationCount
//   - CurrentBufferID is the buffer produced by the last operation, or
//     equals RootBufferID while Operations is empty
//   - a chain has at most one parent (the branch graph is a tree)
//   - a child's RootBufferID equals its parent's CurrentBufferID at the
//     moment the branch was created
//
// Chains are persistent values: the Tracker never mutates a stored chain,
// it replaces it with an extended copy. Holders of an older value never
// observe a partial update.
type Chain struct {
	// ID uniquely identifies the chain.
	ID string `json:"id"`

	// RootBufferID is the first buffer in this chain.
	RootBufferID string `json:"root_buffer_id"`

	// CurrentBufferID is the most recently produced buffer.
	CurrentBufferID string `json:"current_buffer_id"`

	// Operations is the ordered, append-only operation log.
	Operations []Operation `json:"operations"`

	// Branch is the branch descriptor.
	Branch Branch `json:"branch"`

	// ParentChainID is the chain this one was forked from, if any.
	ParentChainID string `json:"parent_chain_id,omitempty"`

	// ChildChainIDs lists chains forked from this one.
	ChildChainIDs []string `json:"child_chain_ids,omitempty"`

	// TransformationCount mirrors len(Operations).
	TransformationCount int `json:"transformation_count"`

	// CreatedAt is when the chain was opened.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the chain value was last replaced.
	UpdatedAt time.Time `json:"updated_at"`
}

// clone returns a deep copy of the chain.
func (c *Chain) clone() *Chain {
	cp := *c
	cp.Operations = make([]Operation, len(c.Operations))
	for i, op := range c.Operations {
		cp.Operations[i] = op.clone()
	}
	cp.ChildChainIDs = append([]string(nil), c.ChildChainIDs...)
	return &cp
}

// LastOperation returns the most recent operation, if any.
func (c *Chain) LastOperation() (Operation, bool) {
	if len(c.Operations) == 0 {
		return Operation{}, false
	}
	return c.Operations[len(c.Operations)-1].clone(), true
}

// HeadHash returns the content hash at the chain head: the after-hash of
// the last operation, or the given root hash when no operation exists.
func (c *Chain) HeadHash(rootHash string) string {
	if op, ok := c.LastOperation(); ok {
		return op.AfterHash
	}
	return rootHash
}

// Verify checks structural and hash-chain invariants.
//
// # Description
//
// Validates that the operation count matches TransformationCount, that
// every operation type is in the closed set, and that each operation's
// before-hash equals its predecessor's after-hash. Called on load from
// persistence; a failure means corruption or tampering and must fail loud.
//
// # Outputs
//
//   - error: nil when consistent, otherwise wraps ErrIntegrity or
//     ErrInvalidOperation naming the offending position.
func (c *Chain) Verify() error {
	if len(c.Operations) != c.TransformationCount {
		return fmt.Errorf("%w: chain %s has %d operations but transformation_count %d",
			ErrIntegrity, c.ID, len(c.Operations), c.TransformationCount)
	}
	for i, op := range c.Operations {
		if !op.Type.Valid() {
			return fmt.Errorf("%w: chain %s operation %d has unknown type %q",
				ErrInvalidOperation, c.ID, i, op.Type)
		}
		if i > 0 && op.BeforeHash != c.Operations[i-1].AfterHash {
			return fmt.Errorf("%w: chain %s broken at operation %d (%s): before %s != prior after %s",
				ErrIntegrity, c.ID, i, op.ID, op.BeforeHash, c.Operations[i-1].AfterHash)
		}
	}
	return nil
}
