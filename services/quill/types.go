// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package quill

import (
	"time"

	"github.com/AleutianAI/AleutianQuill/services/quill/provenance"
	"github.com/AleutianAI/AleutianQuill/services/quill/workspace"
)

// PerformerPayload identifies who is performing an operation.
type PerformerPayload struct {
	// Kind is "user", "agent", or "system". Default: "user".
	Kind string `json:"kind"`

	// ID identifies the actor (user id, agent name).
	ID string `json:"id"`

	// Model is the optional model reference for agent performers.
	Model string `json:"model,omitempty"`

	// PromptRef is an optional reference to the prompt used.
	PromptRef string `json:"prompt_ref,omitempty"`
}

func (p PerformerPayload) toPerformer() provenance.Performer {
	kind := provenance.PerformerKind(p.Kind)
	if kind == "" {
		kind = provenance.PerformerUser
	}
	return provenance.Performer{
		Kind:      kind,
		ID:        p.ID,
		Model:     p.Model,
		PromptRef: p.PromptRef,
	}
}

// CreateBufferRequest is the body for POST /v1/quill/sessions/:session/buffers.
type CreateBufferRequest struct {
	// Name is the working-buffer name within the session. Required.
	Name string `json:"name" binding:"required"`

	// Content is the optional initial text.
	Content string `json:"content"`

	// Format is the content format: plain, markdown, markup, or code.
	// Default: plain.
	Format string `json:"format"`

	// Performer identifies the creator.
	Performer PerformerPayload `json:"performer"`
}

// SetContentRequest is the body for PUT .../buffers/:name/content.
type SetContentRequest struct {
	// Content is the full replacement text. May be empty to clear.
	Content string `json:"content"`
}

// AppendRequest is the body for POST .../buffers/:name/append.
type AppendRequest struct {
	// Lines are appended to the working text, one per line. Required.
	Lines []string `json:"lines" binding:"required"`
}

// CommitRequest is the body for POST .../buffers/:name/commit.
type CommitRequest struct {
	// Message is the commit message. Required.
	Message string `json:"message" binding:"required"`

	// Performer identifies the committer.
	Performer PerformerPayload `json:"performer"`
}

// BranchRequest is the body for POST .../buffers/:name/branches.
type BranchRequest struct {
	// Name is the new branch name. Required.
	Name string `json:"name" binding:"required"`

	// Description is an optional branch description.
	Description string `json:"description"`
}

// SwitchRequest is the body for POST .../buffers/:name/switch.
type SwitchRequest struct {
	// Branch is the branch to check out. Required.
	Branch string `json:"branch" binding:"required"`
}

// RollbackRequest is the body for POST .../buffers/:name/rollback.
type RollbackRequest struct {
	// Steps is how many operations to walk back. Default: 1.
	Steps int `json:"steps"`

	// Performer identifies who requested the rollback.
	Performer PerformerPayload `json:"performer"`
}

// MergeRequest is the body for POST .../buffers/:name/merge.
type MergeRequest struct {
	// Source is the branch to merge into the checked-out branch. Required.
	Source string `json:"source" binding:"required"`

	// Performer identifies who requested the merge.
	Performer PerformerPayload `json:"performer"`
}

// TransformRequest is the body for POST .../buffers/:name/transform.
type TransformRequest struct {
	// Type is the operation type, e.g. "rewrite_persona", "analyze_quality",
	// "detect_ai", "embed", "split", "export_to_archive". Required.
	Type string `json:"type" binding:"required"`

	// Description is an optional human-readable summary.
	Description string `json:"description"`

	// Parameters are operation-specific inputs (persona, delimiter, ...).
	Parameters map[string]any `json:"parameters"`

	// Performer identifies who requested the transform.
	Performer PerformerPayload `json:"performer"`

	// TimeoutSeconds overrides the collaborator timeout. Optional.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// ListBuffersResponse is the response for GET .../buffers.
type ListBuffersResponse struct {
	// Buffers are the session's working buffers, sorted by name.
	Buffers []workspace.Info `json:"buffers"`

	// Count is len(Buffers).
	Count int `json:"count"`
}

// OperationEntry is one history record in API form.
type OperationEntry struct {
	// ID is the version id of the operation.
	ID string `json:"id"`

	// Type is the operation kind.
	Type string `json:"type"`

	// Description is the commit message or operation summary.
	Description string `json:"description,omitempty"`

	// Performer is who performed the operation.
	Performer provenance.Performer `json:"performer"`

	// Timestamp is when the operation was recorded.
	Timestamp time.Time `json:"timestamp"`

	// BeforeHash and AfterHash are the linked content hashes.
	BeforeHash string `json:"before_hash"`
	AfterHash  string `json:"after_hash"`

	// DurationMs is the optional operation duration.
	DurationMs int64 `json:"duration_ms,omitempty"`

	// CostUSD is the optional collaborator cost.
	CostUSD float64 `json:"cost_usd,omitempty"`
}

// HistoryResponse is the response for GET .../buffers/:name/history.
type HistoryResponse struct {
	// Operations are history entries, newest first.
	Operations []OperationEntry `json:"operations"`

	// Count is len(Operations).
	Count int `json:"count"`
}

// DiffResponse is the response for GET .../buffers/:name/diff.
type DiffResponse struct {
	// From and To are the compared version ids ("current" for the
	// working text).
	From string `json:"from"`
	To   string `json:"to"`

	// Added, Removed, and Changed are line counts.
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Changed int `json:"changed"`
}

// BufferPayload is a buffer snapshot in API form.
type BufferPayload struct {
	ID          string `json:"id"`
	ContentHash string `json:"content_hash"`
	WordCount   int    `json:"word_count"`
	Format      string `json:"format"`
	State       string `json:"state"`
	Text        string `json:"text,omitempty"`
}

// TransformResponse is the response for POST .../buffers/:name/transform.
type TransformResponse struct {
	// Version is the recorded operation.
	Version workspace.Version `json:"version"`

	// Buffer is the new head buffer.
	Buffer BufferPayload `json:"buffer"`

	// SegmentIDs lists all result buffer ids for split operations.
	SegmentIDs []string `json:"segment_ids,omitempty"`
}

// HealthResponse is the response for GET /v1/quill/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
