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
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracker owns the arena of provenance chains.
//
// # Description
//
// Chains are stored as persistent snapshots: every mutation (recorded
// operation, branch registration) replaces the stored value with an
// extended deep copy, so a chain value handed to a caller is never
// mutated afterwards. Parent/child relationships are indices into the
// arena, validated on insert, so the branch graph is a tree by
// construction and TraceToRoot always terminates.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	chains map[string]*Chain
	logger *slog.Logger
}

// NewTracker creates an empty tracker.
//
// A nil logger disables tracker logging.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracker{
		chains: make(map[string]*Chain),
		logger: logger,
	}
}

// CreateChain opens a root chain for a buffer lineage.
//
// # Inputs
//
//   - rootBufferID: The first buffer of the lineage. Required.
//   - branchName: Branch name; empty defaults to "main".
//
// # Outputs
//
//   - *Chain: The new chain (operations empty, current == root).
//   - error: Non-nil if rootBufferID is empty.
func (t *Tracker) CreateChain(rootBufferID, branchName string) (*Chain, error) {
	if rootBufferID == "" {
		return nil, fmt.Errorf("%w: root buffer id is required", ErrInvalidOperation)
	}
	if branchName == "" {
		branchName = "main"
	}

	now := time.Now().UTC()
	c := &Chain{
		ID:              uuid.NewString(),
		RootBufferID:    rootBufferID,
		CurrentBufferID: rootBufferID,
		Operations:      []Operation{},
		Branch:          Branch{Name: branchName, IsMain: true},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	t.mu.Lock()
	t.chains[c.ID] = c
	t.mu.Unlock()

	t.logger.Debug("chain created", "chain_id", c.ID, "branch", branchName,
		"root_buffer_id", rootBufferID)
	return c.clone(), nil
}

// CreateBranch forks a child chain from a parent chain.
//
// # Description
//
// The child's RootBufferID is the parent's CurrentBufferID at this
// instant; later parent operations do not move the fork point. The child
// id is registered in the parent's ChildChainIDs by replacing the parent
// value (copy-on-write), so readers holding the old parent never observe
// a partial update. Branch names must be unique among one parent's
// children.
//
// # Outputs
//
//   - *Chain: The child chain.
//   - error: ErrChainNotFound for an unknown parent, ErrBranchExists for
//     a duplicate name.
func (t *Tracker) CreateBranch(parentChainID, branchName, description string) (*Chain, error) {
	if branchName == "" {
		return nil, fmt.Errorf("%w: branch name is required", ErrInvalidOperation)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	parent, ok := t.chains[parentChainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, parentChainID)
	}
	if parent.Branch.Name == branchName {
		return nil, fmt.Errorf("%w: %q", ErrBranchExists, branchName)
	}
	for _, childID := range parent.ChildChainIDs {
		if child, ok := t.chains[childID]; ok && child.Branch.Name == branchName {
			return nil, fmt.Errorf("%w: %q", ErrBranchExists, branchName)
		}
	}

	now := time.Now().UTC()
	child := &Chain{
		ID:              uuid.NewString(),
		RootBufferID:    parent.CurrentBufferID,
		CurrentBufferID: parent.CurrentBufferID,
		Operations:      []Operation{},
		Branch:          Branch{Name: branchName, Description: description},
		ParentChainID:   parent.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	updated := parent.clone()
	updated.ChildChainIDs = append(updated.ChildChainIDs, child.ID)
	updated.UpdatedAt = now

	t.chains[parent.ID] = updated
	t.chains[child.ID] = child

	t.logger.Debug("branch created", "chain_id", child.ID, "branch", branchName,
		"parent_chain_id", parent.ID, "fork_buffer_id", child.RootBufferID)
	return child.clone(), nil
}

// RecordOperation appends an operation to a chain.
//
// # Description
//
// Returns a new chain value with the operation appended,
// CurrentBufferID set to newBufferID, and TransformationCount
// incremented. The prior stored value is replaced, never edited, so
// concurrent readers holding an older chain value stay consistent.
//
// The operation's before-hash must equal the chain's current head hash
// (the last operation's after-hash) when the chain already has
// operations; a mismatch is rejected as an integrity violation rather
// than recorded.
//
// # Inputs
//
//   - chainID: Target chain. Must exist.
//   - op: The operation record. Type must be in the closed set. A zero
//     ID or Timestamp is filled in.
//   - newBufferID: The buffer the operation produced. Required.
//
// # Outputs
//
//   - *Chain: The extended chain value.
//   - error: ErrChainNotFound, ErrInvalidOperation, or ErrIntegrity.
func (t *Tracker) RecordOperation(chainID string, op Operation, newBufferID string) (*Chain, error) {
	if !op.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidOperation, op.Type)
	}
	if newBufferID == "" {
		return nil, fmt.Errorf("%w: new buffer id is required", ErrInvalidOperation)
	}
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = time.Now().UTC()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	if last, ok := current.LastOperation(); ok && op.BeforeHash != last.AfterHash {
		return nil, fmt.Errorf("%w: chain %s: operation before-hash %s does not extend head %s",
			ErrIntegrity, chainID, op.BeforeHash, last.AfterHash)
	}

	updated := current.clone()
	updated.Operations = append(updated.Operations, op.clone())
	updated.CurrentBufferID = newBufferID
	updated.TransformationCount = len(updated.Operations)
	updated.UpdatedAt = time.Now().UTC()

	t.chains[chainID] = updated

	t.logger.Debug("operation recorded", "chain_id", chainID, "op_id", op.ID,
		"op_type", op.Type, "buffer_id", newBufferID,
		"transformation_count", updated.TransformationCount)
	return updated.clone(), nil
}

// Get returns the current snapshot of a chain.
//
// Returns ErrChainNotFound for an unknown id.
func (t *Tracker) Get(chainID string) (*Chain, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	return c.clone(), nil
}

// TraceToRoot follows parent pointers to the original root buffer id.
//
// Terminates because the parent relation is a tree by construction.
func (t *Tracker) TraceToRoot(chainID string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.chains[chainID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	for c.ParentChainID != "" {
		parent, ok := t.chains[c.ParentChainID]
		if !ok {
			return "", fmt.Errorf("%w: parent %s of chain %s", ErrChainNotFound,
				c.ParentChainID, c.ID)
		}
		c = parent
	}
	return c.RootBufferID, nil
}

// FullHistory returns a chain's operations preceded by its ancestry's.
//
// # Description
//
// Concatenates the parent chain's full history (recursively) with this
// chain's own operations, in chronological order: branch history always
// includes everything that happened before the fork.
func (t *Tracker) FullHistory(chainID string) ([]Operation, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fullHistoryLocked(chainID)
}

func (t *Tracker) fullHistoryLocked(chainID string) ([]Operation, error) {
	c, ok := t.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}

	var inherited []Operation
	if c.ParentChainID != "" {
		parentHistory, err := t.fullHistoryLocked(c.ParentChainID)
		if err != nil {
			return nil, err
		}
		inherited = parentHistory
	}

	out := make([]Operation, 0, len(inherited)+len(c.Operations))
	out = append(out, inherited...)
	for _, op := range c.Operations {
		out = append(out, op.clone())
	}
	return out, nil
}

// ResolveBranch finds a chain by branch name within a lineage tree.
//
// # Description
//
// Walks from the given chain up to the tree root, then searches the whole
// tree for a chain whose branch name matches. Used by switch and merge,
// which address branches by name rather than chain id.
func (t *Tracker) ResolveBranch(chainID, branchName string) (*Chain, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	for c.ParentChainID != "" {
		parent, ok := t.chains[c.ParentChainID]
		if !ok {
			return nil, fmt.Errorf("%w: parent %s of chain %s", ErrChainNotFound,
				c.ParentChainID, c.ID)
		}
		c = parent
	}

	// Breadth-first over the tree from the root.
	queue := []*Chain{c}
	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]
		if head.Branch.Name == branchName {
			return head.clone(), nil
		}
		for _, childID := range head.ChildChainIDs {
			if child, ok := t.chains[childID]; ok {
				queue = append(queue, child)
			}
		}
	}
	return nil, fmt.Errorf("%w: branch %q", ErrChainNotFound, branchName)
}

// Branches lists the branch names reachable in a chain's lineage tree.
func (t *Tracker) Branches(chainID string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	for c.ParentChainID != "" {
		parent, ok := t.chains[c.ParentChainID]
		if !ok {
			break
		}
		c = parent
	}

	var names []string
	queue := []*Chain{c}
	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]
		names = append(names, head.Branch.Name)
		for _, childID := range head.ChildChainIDs {
			if child, ok := t.chains[childID]; ok {
				queue = append(queue, child)
			}
		}
	}
	return names, nil
}

// Export returns a snapshot of every chain for persistence handoff.
func (t *Tracker) Export() []*Chain {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Chain, 0, len(t.chains))
	for _, c := range t.chains {
		out = append(out, c.clone())
	}
	return out
}

// Import loads chains from persistence, verifying each before accepting.
//
// # Description
//
// Every chain must pass Verify (hash-chain continuity) and parent
// references must resolve within the imported set or the existing arena.
// On any failure nothing is imported: corruption fails loud rather than
// being repaired silently.
func (t *Tracker) Import(chains []*Chain) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	staged := make(map[string]*Chain, len(chains))
	for _, c := range chains {
		if c == nil || c.ID == "" {
			return fmt.Errorf("%w: chain without id", ErrInvalidOperation)
		}
		if err := c.Verify(); err != nil {
			return err
		}
		staged[c.ID] = c.clone()
	}
	for _, c := range staged {
		if c.ParentChainID == "" {
			continue
		}
		if _, ok := staged[c.ParentChainID]; ok {
			continue
		}
		if _, ok := t.chains[c.ParentChainID]; !ok {
			return fmt.Errorf("%w: parent %s of imported chain %s",
				ErrChainNotFound, c.ParentChainID, c.ID)
		}
	}

	for id, c := range staged {
		t.chains[id] = c
	}
	t.logger.Info("chains imported", "count", len(staged))
	return nil
}

// Reset discards all chains. Intended for test isolation.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chains = make(map[string]*Chain)
}

// Len returns the number of chains in the arena.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.chains)
}
