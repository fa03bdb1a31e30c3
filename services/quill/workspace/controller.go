// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workspace implements named working buffers over provenance chains.
//
// A working buffer is a mutable pointer into an immutable world: it names a
// chain, the committed head buffer on that chain, and any pending text not
// yet committed. All pointer mutation goes through an atomic compare-and-swap
// on an immutable state value. A successful swap on a committing operation
// grants the winner the exclusive right to append the corresponding record
// to the (append-only) chain, so the pointer and the chain can never diverge:
// the loser gets ErrConcurrentUpdate and nothing is recorded on its behalf.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianQuill/services/quill/buffer"
	"github.com/AleutianAI/AleutianQuill/services/quill/diff"
	"github.com/AleutianAI/AleutianQuill/services/quill/provenance"
	"github.com/AleutianAI/AleutianQuill/services/quill/transform"
)

// pointerState is one immutable observation of a working buffer.
//
// Mutation replaces the whole value via CompareAndSwap; fields are never
// written after publication.
type pointerState struct {
	// ChainID is the chain of the currently checked-out branch.
	ChainID string

	// BufferID is the committed head buffer on that chain.
	BufferID string

	// Branch is the checked-out branch name.
	Branch string

	// Pending is the full working text, committed or not.
	Pending string

	// Dirty reports whether Pending differs from the committed head.
	Dirty bool

	// UpdatedAt is when this state was published.
	UpdatedAt time.Time
}

// WorkingBuffer is a named, session-scoped pointer into the version graph.
type WorkingBuffer struct {
	id        string
	session   string
	name      string
	createdAt time.Time
	st        atomic.Pointer[pointerState]
}

// Info is a read-only summary of a working buffer.
type Info struct {
	ID        string    `json:"id"`
	Session   string    `json:"session"`
	Name      string    `json:"name"`
	Branch    string    `json:"branch"`
	ChainID   string    `json:"chainId"`
	BufferID  string    `json:"bufferId"`
	Dirty     bool      `json:"dirty"`
	WordCount int       `json:"wordCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Detail is Info plus the working text and the branch set.
type Detail struct {
	Info
	Content  string   `json:"content"`
	Branches []string `json:"branches"`
}

// Version identifies a recorded point in a buffer's history.
type Version struct {
	ID        string               `json:"id"`
	Type      provenance.OpType    `json:"type"`
	Message   string               `json:"message"`
	Performer provenance.Performer `json:"performer"`
	Timestamp time.Time            `json:"timestamp"`
}

// CommitReceipt reports a successful commit.
type CommitReceipt struct {
	Version     Version `json:"version"`
	ChainID     string  `json:"chainId"`
	BufferID    string  `json:"bufferId"`
	ContentHash string  `json:"contentHash"`
}

// BranchInfo reports a newly created branch.
type BranchInfo struct {
	Name         string    `json:"name"`
	ChainID      string    `json:"chainId"`
	ForkBufferID string    `json:"forkBufferId"`
	Parent       string    `json:"parent"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MergeReceipt reports the outcome of a merge.
//
// Recorded is false when the source branch carried no changes relative to
// the fork point; nothing is appended to the chain in that case and Delta
// is zero.
type MergeReceipt struct {
	Version     Version    `json:"version"`
	Delta       diff.Delta `json:"delta"`
	FastForward bool       `json:"fastForward"`
	Recorded    bool       `json:"recorded"`
}

// Controller owns every working buffer and mediates all pointer movement.
//
// # Thread Safety
//
// Safe for concurrent use. The registry map is guarded by a mutex; each
// buffer's state moves only through CAS, and committing operations perform
// the swap before appending to the chain.
type Controller struct {
	mu      sync.RWMutex
	buffers map[string]*WorkingBuffer

	repo       *buffer.Repository
	tracker    *provenance.Tracker
	dispatcher *transform.Dispatcher
	logger     *slog.Logger
}

// NewController wires a Controller. A nil logger disables logging.
func NewController(repo *buffer.Repository, tracker *provenance.Tracker, dispatcher *transform.Dispatcher, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		buffers:    make(map[string]*WorkingBuffer),
		repo:       repo,
		tracker:    tracker,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func bufferKey(session, name string) string {
	return session + "/" + name
}

// Create opens a new named working buffer on a fresh "main" chain.
//
// # Description
//
// With initial content, the buffer is bootstrapped through a create-manual
// operation so the lineage starts with a recorded genesis. Without content,
// an empty root buffer opens the chain and the first commit becomes the
// first recorded operation.
//
// # Outputs
//
//   - *Detail: the new buffer, clean, on branch "main".
//   - error: ErrBufferExists when the session already uses the name.
func (c *Controller) Create(ctx context.Context, session, name, content, formatName string, performer provenance.Performer) (*Detail, error) {
	key := bufferKey(session, name)

	c.mu.RLock()
	_, exists := c.buffers[key]
	c.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrBufferExists, session, name)
	}

	format, err := buffer.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}

	var (
		chainID string
		head    *buffer.ContentBuffer
	)
	if content == "" {
		head = buffer.New("", format, buffer.Origin{
			Kind:   buffer.SourceManual,
			Author: performer.ID,
			Role:   string(performer.Kind),
		}, buffer.StateTransient)
		chain, err := c.tracker.CreateChain(head.ID, "main")
		if err != nil {
			return nil, err
		}
		head.ChainID = chain.ID
		if err := c.repo.Put(head); err != nil {
			return nil, err
		}
		chainID = chain.ID
	} else {
		res, chain, err := c.dispatcher.Bootstrap(ctx, transform.Request{
			Type:        provenance.OpCreateManual,
			Performer:   performer,
			Description: "create working buffer " + name,
			Parameters:  map[string]any{"text": content, "format": string(format)},
		}, "main")
		if err != nil {
			return nil, err
		}
		chainID = chain.ID
		head = res.Buffer
	}

	now := time.Now().UTC()
	wb := &WorkingBuffer{
		id:        uuid.NewString(),
		session:   session,
		name:      name,
		createdAt: now,
	}
	wb.st.Store(&pointerState{
		ChainID:   chainID,
		BufferID:  head.ID,
		Branch:    "main",
		Pending:   head.Text,
		UpdatedAt: now,
	})

	c.mu.Lock()
	if _, raced := c.buffers[key]; raced {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s/%s", ErrBufferExists, session, name)
	}
	c.buffers[key] = wb
	c.mu.Unlock()

	c.logger.Info("working buffer created", "session", session, "name", name,
		"chain_id", chainID, "word_count", head.WordCount)
	return c.detail(wb, wb.st.Load()), nil
}

// List returns summaries of a session's working buffers, sorted by name.
func (c *Controller) List(session string) []Info {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Info, 0)
	for _, wb := range c.buffers {
		if wb.session == session {
			out = append(out, c.info(wb, wb.st.Load()))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the full state of one working buffer.
func (c *Controller) Get(session, name string) (*Detail, error) {
	wb, err := c.lookup(session, name)
	if err != nil {
		return nil, err
	}
	return c.detail(wb, wb.st.Load()), nil
}

// SetContent replaces the working text.
//
// The buffer becomes dirty unless the new text equals the committed head,
// in which case it is clean again. Retries the pointer swap internally:
// a set never fails on contention.
func (c *Controller) SetContent(session, name, content string) (*Info, error) {
	wb, err := c.lookup(session, name)
	if err != nil {
		return nil, err
	}
	for {
		cur := wb.st.Load()
		committed, err := c.repo.Get(cur.BufferID)
		if err != nil {
			return nil, err
		}
		next := *cur
		next.Pending = content
		next.Dirty = content != committed.Text
		next.UpdatedAt = time.Now().UTC()
		if wb.st.CompareAndSwap(cur, &next) {
			info := c.info(wb, &next)
			return &info, nil
		}
	}
}

// Append adds lines to the end of the working text.
func (c *Controller) Append(session, name string, lines []string) (*Info, error) {
	wb, err := c.lookup(session, name)
	if err != nil {
		return nil, err
	}
	addition := strings.Join(lines, "\n")
	for {
		cur := wb.st.Load()
		committed, err := c.repo.Get(cur.BufferID)
		if err != nil {
			return nil, err
		}
		text := cur.Pending
		if text != "" && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		text += addition
		next := *cur
		next.Pending = text
		next.Dirty = text != committed.Text
		next.UpdatedAt = time.Now().UTC()
		if wb.st.CompareAndSwap(cur, &next) {
			info := c.info(wb, &next)
			return &info, nil
		}
	}
}

// Commit records the pending text as a new committed version.
//
// # Description
//
// Produces a commit-to-work operation whose before-hash is the current
// chain head. The pointer swap happens before the chain append: winning
// the swap is what authorizes this caller to extend the chain, so a lost
// race returns ErrConcurrentUpdate with the chain untouched. Should the
// append itself fail, the old pointer is re-established, so a failed
// commit leaves both the pointer and the chain as they were.
//
// # Outputs
//
//   - *CommitReceipt: the recorded version and new head buffer.
//   - error: ErrNothingToCommit when the buffer is clean,
//     ErrConcurrentUpdate when the pointer moved underneath the caller.
func (c *Controller) Commit(ctx context.Context, session, name, message string, performer provenance.Performer) (*CommitReceipt, error) {
	wb, err := c.lookup(session, name)
	if err != nil {
		return nil, err
	}
	cur := wb.st.Load()
	if !cur.Dirty {
		return nil, fmt.Errorf("%w: %s/%s", ErrNothingToCommit, session, name)
	}

	res, err := c.dispatcher.Execute(ctx, cur.ChainID, transform.Request{
		Type:        provenance.OpCommitToWork,
		Performer:   performer,
		Description: message,
		Parameters:  map[string]any{"text": cur.Pending},
	})
	if err != nil {
		return nil, err
	}

	next := *cur
	next.BufferID = res.Buffer.ID
	next.Dirty = false
	next.UpdatedAt = time.Now().UTC()
	if !wb.st.CompareAndSwap(cur, &next) {
		return nil, fmt.Errorf("%w: %s/%s", ErrConcurrentUpdate, session, name)
	}

	chain, err := c.dispatcher.Record(res)
	if err != nil {
		// The chain was not extended; give the slot back so the failed
		// commit leaves no trace. The swap only restores if the pointer
		// is still ours.
		wb.st.CompareAndSwap(&next, cur)
		return nil, err
	}
	op, _ := chain.LastOperation()

	c.logger.Info("commit", "session", session, "name", name,
		"chain_id", chain.ID, "version_id", op.ID, "message", message)
	return &CommitReceipt{
		Version:     versionOf(op),
		ChainID:     chain.ID,
		BufferID:    res.Buffer.ID,
		ContentHash: res.Buffer.ContentHash,
	}, nil
}

// History returns recorded operations newest-first, across the branch's
// full ancestry, trimmed to limit (0 means all).
func (c *Controller) History(session, name string, limit int) ([]provenance.Operation, error) {
	wb, err := c.lookup(session, name)
	if err != nil {
		return nil, err
	}
	cur := wb.st.Load()
	ops, err := c.tracker.FullHistory(cur.ChainID)
	if err != nil {
		return nil, err
	}
	// reverse in place: newest first
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}
	if limit > 0 && len(ops) > limit {
		ops = ops[:limit]
	}
	return ops, nil
}

// Branch forks a new branch at the committed head.
//
// Pending text is untouched: it stays on the current branch. The new
// branch is not checked out.
func (c *Controller) Branch(session, name, branchName, description string) (*BranchInfo, error) {
	wb, err := c.lookup(session, name)
	if err != nil {
		return nil, err
	}
	cur := wb.st.Load()
	child, err := c.tracker.CreateBranch(cur.ChainID, branchName, description)
	if err != nil {
		return nil, err
	}
	c.logger.Info("branch created", "session", session, "name", name,
		"branch", branchName, "chain_id", child.ID)
	return &BranchInfo{
		Name:         branchName,
		ChainID:      child.ID,
		ForkBufferID: child.RootBufferID,
		Parent:       cur.Branch,
		CreatedAt:    child.CreatedAt,
	}, nil
}

// Switch checks out another branch of the same buffer.
//
// Fails with ErrUncommittedChanges when the working text has not been
// committed; switching must never silently discard work.
func (c *Controller) Switch(session, name, branchName string) (*Detail, error) {
	wb, err := c.lookup(session, name)
	if err != nil {
		return nil, err
	}
	cur := wb.st.Load()
	if cur.Dirty {
		return nil, fmt.Errorf("%w: commit or discard before switching to %q", ErrUncommittedChanges, branchName)
	}
	target, err := c.tracker.ResolveBranch(cur.ChainID, branchName)
	if err != nil {
		return nil, err
	}
	head, err := c.repo.Get(target.CurrentBufferID)
	if err != nil {
		return nil, err
	}

	next := *cur
	next.ChainID = target.ID
	next.BufferID = head.ID
	next.Branch = branchName
	next.Pending = head.Text
	next.Dirty = false
	next.UpdatedAt = time.Now().UTC()
	if !wb.st.CompareAndSwap(cur, &next) {
		return nil, fmt.Errorf("%w: %s/%s", ErrConcurrentUpdate, session, name)
	}

	c.logger.Info("branch switched", "session", session, "name", name,
		"branch", branchName, "chain_id", target.ID)
	return c.detail(wb, &next), nil
}

// Rollback moves the working buffer back over the last N operations.
//
// # Description
//
// Rollback is navigation, not erasure. The target content is resolved by
// content hash from the operation N steps back (or the chain's root buffer
// when N reaches past the first operation), the pointer is repointed, and
// a navigation record is appended so the hash chain stays continuous:
// its before-hash is the old head, its after-hash the restored content.
//
// # Outputs
//
//   - *Version: the restored point, carrying the original commit message.
//   - error: ErrVersionNotFound when N walks past the start of the chain.
func (c *Controller) Rollback(ctx context.Context, session, name string, steps int, performer provenance.Performer) (*Version, error) {
	if steps < 1 {
		steps = 1
	}
	wb, err := c.lookup(session, name)
	if err != nil {
		return nil, err
	}
	cur := wb.st.Load()
	chain, err := c.tracker.Get(cur.ChainID)
	if err != nil {
		return nil, err
	}
	root, err := c.repo.Get(chain.RootBufferID)
	if err != nil {
		return nil, err
	}

	idx := len(chain.Operations) - 1 - steps
	if idx < -1 {
		return nil, fmt.Errorf("%w: %d step(s) back from %d operation(s)",
			ErrVersionNotFound, steps, len(chain.Operations))
	}

	var (
		target  *buffer.ContentBuffer
		version Version
	)
	if idx == -1 {
		target = root
		version = Version{
			ID:        root.ID,
			Message:   "initial content",
			Timestamp: root.CreatedAt,
		}
	} else {
		op := chain.Operations[idx]
		target, err = c.repo.FirstByHash(op.AfterHash)
		if err != nil {
			return nil, err
		}
		version = versionOf(op)
	}

	if performer.Kind == "" {
		performer.Kind = provenance.PerformerSystem
	}
	navOp := provenance.Operation{
		Type:      provenance.OpCustom,
		Performer: performer,
		Parameters: map[string]any{
			"action":            "rollback",
			"steps":             steps,
			"target_version_id": version.ID,
		},
		BeforeHash:  chain.HeadHash(root.ContentHash),
		AfterHash:   target.ContentHash,
		Description: fmt.Sprintf("rollback %d operation(s)", steps),
	}

	next := *cur
	next.BufferID = target.ID
	next.Pending = target.Text
	next.Dirty = false
	next.UpdatedAt = time.Now().UTC()
	if !wb.st.CompareAndSwap(cur, &next) {
		return nil, fmt.Errorf("%w: %s/%s", ErrConcurrentUpdate, session, name)
	}

	if _, err := c.tracker.RecordOperation(cur.ChainID, navOp, target.ID); err != nil {
		wb.st.CompareAndSwap(&next, cur)
		return nil, err
	}

	c.logger.Info("rollback", "session", session, "name", name,
		"steps", steps, "version_id", version.ID)
	return &version, nil
}

// Merge folds a source branch into the checked-out branch.
//
// # Description
//
// The merge base is the source branch's fork buffer. When the current
// branch has not moved since the fork the merge fast-forwards to the
// source head; otherwise a three-way line merge runs and overlapping
// change spans fail with diff.ErrConflict, recording nothing. A source
// with no changes since the fork is a no-op with a zero delta, also
// recording nothing, so an empty merge is idempotent.
func (c *Controller) Merge(ctx context.Context, session, name, sourceBranch string, performer provenance.Performer) (*MergeReceipt, error) {
	wb, err := c.lookup(session, name)
	if err != nil {
		return nil, err
	}
	cur := wb.st.Load()
	if cur.Dirty {
		return nil, fmt.Errorf("%w: commit before merging %q", ErrUncommittedChanges, sourceBranch)
	}
	if sourceBranch == cur.Branch {
		return nil, fmt.Errorf("%w: %q", ErrMergeSelf, sourceBranch)
	}
	source, err := c.tracker.ResolveBranch(cur.ChainID, sourceBranch)
	if err != nil {
		return nil, err
	}
	if source.ID == cur.ChainID {
		return nil, fmt.Errorf("%w: %q", ErrMergeSelf, sourceBranch)
	}
	if source.TransformationCount == 0 {
		return &MergeReceipt{}, nil
	}

	base, err := c.repo.Get(source.RootBufferID)
	if err != nil {
		return nil, err
	}
	ours, err := c.repo.Get(cur.BufferID)
	if err != nil {
		return nil, err
	}
	theirs, err := c.repo.Get(source.CurrentBufferID)
	if err != nil {
		return nil, err
	}

	var (
		merged      string
		fastForward bool
	)
	if ours.ContentHash == base.ContentHash {
		merged = theirs.Text
		fastForward = true
	} else {
		merged, err = diff.Merge3(base.Text, ours.Text, theirs.Text)
		if err != nil {
			return nil, err
		}
	}

	delta := diff.Compute(ours.Text, merged)
	if delta.Empty() {
		return &MergeReceipt{}, nil
	}

	mb := buffer.New(merged, ours.Format, ours.Origin, buffer.StateCommitted)
	mb.ChainID = cur.ChainID
	if err := c.repo.Put(mb); err != nil {
		return nil, err
	}

	op := provenance.Operation{
		Type:      provenance.OpMerge,
		Performer: performer,
		Parameters: map[string]any{
			"source_branch":    sourceBranch,
			"source_chain_id":  source.ID,
			"source_buffer_id": source.CurrentBufferID,
			"fast_forward":     fastForward,
		},
		BeforeHash:  ours.ContentHash,
		AfterHash:   mb.ContentHash,
		DeltaHash:   delta.Hash(),
		Description: "merge branch " + sourceBranch,
	}

	next := *cur
	next.BufferID = mb.ID
	next.Pending = merged
	next.Dirty = false
	next.UpdatedAt = time.Now().UTC()
	if !wb.st.CompareAndSwap(cur, &next) {
		return nil, fmt.Errorf("%w: %s/%s", ErrConcurrentUpdate, session, name)
	}

	chain, err := c.tracker.RecordOperation(cur.ChainID, op, mb.ID)
	if err != nil {
		wb.st.CompareAndSwap(&next, cur)
		return nil, err
	}
	recorded, _ := chain.LastOperation()

	c.logger.Info("merge", "session", session, "name", name,
		"source_branch", sourceBranch, "fast_forward", fastForward,
		"added", delta.Added, "removed", delta.Removed, "changed", delta.Changed)
	return &MergeReceipt{
		Version:     versionOf(recorded),
		Delta:       delta,
		FastForward: fastForward,
		Recorded:    true,
	}, nil
}

// VersionContent resolves the text a version id points at.
//
// The empty id and "current" resolve to the working text, including
// uncommitted changes. A chain's root buffer id resolves to the initial
// content. Any other id must match a recorded operation in the branch's
// full history.
func (c *Controller) VersionContent(session, name, versionID string) (string, error) {
	wb, err := c.lookup(session, name)
	if err != nil {
		return "", err
	}
	cur := wb.st.Load()
	if versionID == "" || versionID == "current" {
		return cur.Pending, nil
	}

	chain, err := c.tracker.Get(cur.ChainID)
	if err != nil {
		return "", err
	}
	if versionID == chain.RootBufferID {
		root, err := c.repo.Get(chain.RootBufferID)
		if err != nil {
			return "", err
		}
		return root.Text, nil
	}

	ops, err := c.tracker.FullHistory(cur.ChainID)
	if err != nil {
		return "", err
	}
	for _, op := range ops {
		if op.ID == versionID {
			b, err := c.repo.FirstByHash(op.AfterHash)
			if err != nil {
				return "", err
			}
			return b.Text, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrVersionNotFound, versionID)
}

// Transform runs a dispatcher operation against the working buffer's chain
// and repoints the buffer at the result.
//
// The buffer must be clean: a transform extends the committed head, and
// running one over uncommitted text would silently drop it.
func (c *Controller) Transform(ctx context.Context, session, name string, req transform.Request) (*transform.Result, *Version, error) {
	wb, err := c.lookup(session, name)
	if err != nil {
		return nil, nil, err
	}
	cur := wb.st.Load()
	if cur.Dirty {
		return nil, nil, fmt.Errorf("%w: commit before transforming", ErrUncommittedChanges)
	}

	res, err := c.dispatcher.Execute(ctx, cur.ChainID, req)
	if err != nil {
		return nil, nil, err
	}

	next := *cur
	next.BufferID = res.Buffer.ID
	next.Pending = res.Buffer.Text
	next.Dirty = false
	next.UpdatedAt = time.Now().UTC()
	if !wb.st.CompareAndSwap(cur, &next) {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrConcurrentUpdate, session, name)
	}

	chain, err := c.dispatcher.Record(res)
	if err != nil {
		wb.st.CompareAndSwap(&next, cur)
		return nil, nil, err
	}
	op, _ := chain.LastOperation()
	v := versionOf(op)
	return res, &v, nil
}

func (c *Controller) lookup(session, name string) (*WorkingBuffer, error) {
	c.mu.RLock()
	wb, ok := c.buffers[bufferKey(session, name)]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrBufferNotFound, session, name)
	}
	return wb, nil
}

func (c *Controller) info(wb *WorkingBuffer, st *pointerState) Info {
	return Info{
		ID:        wb.id,
		Session:   wb.session,
		Name:      wb.name,
		Branch:    st.Branch,
		ChainID:   st.ChainID,
		BufferID:  st.BufferID,
		Dirty:     st.Dirty,
		WordCount: buffer.WordCount(st.Pending),
		CreatedAt: wb.createdAt,
		UpdatedAt: st.UpdatedAt,
	}
}

func (c *Controller) detail(wb *WorkingBuffer, st *pointerState) *Detail {
	branches, err := c.tracker.Branches(st.ChainID)
	if err != nil {
		branches = []string{st.Branch}
	}
	return &Detail{
		Info:     c.info(wb, st),
		Content:  st.Pending,
		Branches: branches,
	}
}

func versionOf(op provenance.Operation) Version {
	return Version{
		ID:        op.ID,
		Type:      op.Type,
		Message:   op.Description,
		Performer: op.Performer,
		Timestamp: op.Timestamp,
	}
}
