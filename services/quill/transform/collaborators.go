// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transform routes operation requests to external collaborators
// and turns their results into buffers plus provenance operations.
//
// The engine never retries collaborator failures itself; retry policy
// belongs to the collaborator implementations. Every collaborator call is
// bounded by the request timeout, and a failed or cancelled call leaves
// chains and buffers exactly as they were.
package transform

import (
	"context"

	"github.com/AleutianAI/AleutianQuill/services/quill/buffer"
)

// RewriteResult carries the output of a rewrite/humanize collaborator.
type RewriteResult struct {
	// Text is the rewritten content.
	Text string

	// ChangesApplied describes the edits the collaborator made.
	ChangesApplied []string

	// Model optionally names the model that produced the rewrite.
	Model string

	// CostUSD is the optional cost of the call.
	CostUSD float64
}

// AIDetectionResult carries the output of an AI-detection collaborator.
type AIDetectionResult struct {
	// Likelihood is the AI-authorship probability in [0, 1].
	Likelihood float64 `json:"likelihood"`

	// Verdict is the service's categorical call ("human", "mixed", "ai").
	Verdict string `json:"verdict,omitempty"`

	// Signals lists the features that drove the verdict.
	Signals []string `json:"signals,omitempty"`
}

// RewriteService rewrites text under caller-supplied parameters.
//
// Implementations are expected to be slow (language-model calls) and must
// honor context cancellation.
type RewriteService interface {
	// Rewrite transforms text. Parameters are operation-specific (persona,
	// intensity, instructions).
	Rewrite(ctx context.Context, text string, params map[string]any) (*RewriteResult, error)
}

// QualityService scores text quality and detects machine authorship.
type QualityService interface {
	// Analyze returns quality metrics for the text.
	Analyze(ctx context.Context, text string) (*buffer.QualityMetrics, error)

	// DetectAI returns an AI-authorship estimate for the text.
	DetectAI(ctx context.Context, text string) (*AIDetectionResult, error)
}

// EmbeddingService produces embedding vectors.
type EmbeddingService interface {
	// Embed returns the embedding vector for the text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ArchiveStore is the narrow contract to archive/authored-work stores.
type ArchiveStore interface {
	// LoadContent fetches source text and its origin by source id.
	LoadContent(ctx context.Context, sourceID string) (string, buffer.Origin, error)

	// ExportContent writes text out and returns the assigned source id.
	ExportContent(ctx context.Context, text string, metadata map[string]string) (string, error)
}
