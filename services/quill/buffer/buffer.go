// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package buffer provides the immutable content-buffer model for Quill.
//
// A ContentBuffer is a snapshot of authored text. Buffers are never edited
// in place: every transformation produces a new buffer with a new id, and
// identical (text, format) pairs share a content hash so storage can
// deduplicate them. The Repository enforces write-once insertion, which is
// what lets buffers be shared across concurrent readers without locks.
package buffer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Format identifies the markup family of a buffer's text.
type Format string

const (
	// FormatPlain is unstructured prose.
	FormatPlain Format = "plain"

	// FormatMarkdown is CommonMark-style text.
	FormatMarkdown Format = "markdown"

	// FormatMarkup is HTML or similar tag-based markup.
	FormatMarkup Format = "markup"

	// FormatCode is source code or other verbatim text.
	FormatCode Format = "code"
)

// ParseFormat validates and returns a Format.
//
// An empty string defaults to FormatPlain. Unknown values return
// ErrInvalidFormat.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPlain, FormatMarkdown, FormatMarkup, FormatCode:
		return Format(s), nil
	case "":
		return FormatPlain, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

// State is the lifecycle state of a buffer.
//
// Buffers move forward only: transient -> staged -> committed -> archived.
type State string

const (
	// StateTransient is a freshly created, not yet committed buffer.
	StateTransient State = "transient"

	// StateStaged is a buffer attached to a pending working change.
	StateStaged State = "staged"

	// StateCommitted is a buffer sealed by a recorded operation.
	StateCommitted State = "committed"

	// StateArchived is a buffer exported out of the active lineage.
	StateArchived State = "archived"
)

// stateRank orders lifecycle states for forward-only transitions.
var stateRank = map[State]int{
	StateTransient: 0,
	StateStaged:    1,
	StateCommitted: 2,
	StateArchived:  3,
}

// CanTransition reports whether a buffer may move from one state to another.
//
// Transitions only move forward through the lifecycle; same-state is allowed.
func CanTransition(from, to State) bool {
	a, okA := stateRank[from]
	b, okB := stateRank[to]
	return okA && okB && b >= a
}

// SourceKind identifies where a buffer's initial content came from.
type SourceKind string

const (
	// SourceArchive is content loaded from the archive store.
	SourceArchive SourceKind = "archive"

	// SourceAuthoredWork is content loaded from an authored-work store.
	SourceAuthoredWork SourceKind = "authored_work"

	// SourceManual is content entered directly by a caller.
	SourceManual SourceKind = "manual"

	// SourceGenerated is content produced by a pipeline or model.
	SourceGenerated SourceKind = "generated"
)

// Origin records the provenance of a buffer's initial content.
//
// An Origin is created once, at root-buffer creation, and copied by
// reference into descendant buffers. It is never mutated.
type Origin struct {
	// Kind is the source category. Required.
	Kind SourceKind `json:"kind"`

	// SourceID is an optional reference to the source node (archive entry,
	// book chapter, etc.).
	SourceID string `json:"source_id,omitempty"`

	// ThreadID is an optional conversation/thread context.
	ThreadID string `json:"thread_id,omitempty"`

	// BookID is an optional authored-work context.
	BookID string `json:"book_id,omitempty"`

	// Author is the optional original author of the content.
	Author string `json:"author,omitempty"`

	// Role is the optional role of the author (e.g. "user", "assistant").
	Role string `json:"role,omitempty"`
}

// QualityMetrics carries the output of a quality analysis pass.
//
// The statistical methods behind these numbers belong to the external
// quality service; the engine only attaches the result to a buffer.
type QualityMetrics struct {
	// OverallScore is the composite quality score in [0, 100].
	OverallScore float64 `json:"overall_score"`

	// ReadabilityScore is a readability estimate in [0, 100].
	ReadabilityScore float64 `json:"readability_score,omitempty"`

	// AILikelihood is the AI-detection probability in [0, 1].
	// Only set by detect-ai operations.
	AILikelihood float64 `json:"ai_likelihood,omitempty"`

	// Issues lists human-readable quality findings.
	Issues []string `json:"issues,omitempty"`

	// AnalyzedAt is when the analysis ran.
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// ContentBuffer is an immutable snapshot of text.
//
// # Description
//
// Once created, Text, ContentHash, Format, and Origin never change.
// Quality, Embedding, and State are set on derived buffers (a new id), not
// mutated in place. Two buffers with identical (text, format) share a
// ContentHash, but every transformation still produces a new buffer id so
// lineage stays per-transformation rather than per-content.
//
// # Thread Safety
//
// Values are effectively immutable after Repository insertion; safe to
// share across goroutines without locks.
type ContentBuffer struct {
	// ID uniquely identifies this snapshot.
	ID string `json:"id"`

	// ContentHash is the deterministic digest of (text, format).
	ContentHash string `json:"content_hash"`

	// Text is the buffer content.
	Text string `json:"text"`

	// WordCount is the whitespace-delimited word count of Text.
	WordCount int `json:"word_count"`

	// Format is the markup family of Text.
	Format Format `json:"format"`

	// State is the lifecycle state.
	State State `json:"state"`

	// Origin is where the root content came from. Shared, never mutated.
	Origin Origin `json:"origin"`

	// ChainID references the provenance chain this buffer belongs to.
	// Empty until the chain is opened.
	ChainID string `json:"chain_id,omitempty"`

	// Quality holds optional analysis results.
	Quality *QualityMetrics `json:"quality,omitempty"`

	// Embedding holds the optional embedding vector.
	Embedding []float32 `json:"embedding,omitempty"`

	// CreatedAt is when this snapshot was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when metadata (state/chain linkage) last changed on a
	// derived copy. Text-bearing fields never change.
	UpdatedAt time.Time `json:"updated_at"`
}

// WordCount counts whitespace-delimited words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// New constructs (but does not store) a buffer snapshot.
//
// The content hash is computed from (text, format); callers set ChainID
// and optional annotations before handing the value to Repository.Put.
func New(text string, format Format, origin Origin, state State) *ContentBuffer {
	now := time.Now().UTC()
	return &ContentBuffer{
		ID:          uuid.NewString(),
		ContentHash: Hash(text, format),
		Text:        text,
		WordCount:   WordCount(text),
		Format:      format,
		State:       state,
		Origin:      origin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// clone returns a shallow copy with its own embedding slice.
func (b *ContentBuffer) clone() *ContentBuffer {
	cp := *b
	if b.Embedding != nil {
		cp.Embedding = make([]float32, len(b.Embedding))
		copy(cp.Embedding, b.Embedding)
	}
	if b.Quality != nil {
		q := *b.Quality
		cp.Quality = &q
	}
	return &cp
}
