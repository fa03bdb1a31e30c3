// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package provenance implements the append-only lineage model for Quill.
//
// A Chain records every operation applied to one named lineage of content
// buffers. Chains form a tree via branch creation; operations within a
// chain are hash-linked (each operation's after-hash equals the next
// operation's before-hash), which makes tampering detectable independent
// of the identifier scheme.
package provenance

import (
	"time"
)

// OpType is the closed enumeration of recordable operations.
type OpType string

const (
	// OpLoadArchive loads initial content from the archive store.
	OpLoadArchive OpType = "load_archive"

	// OpLoadAuthoredWork loads initial content from an authored-work store.
	OpLoadAuthoredWork OpType = "load_authored_work"

	// OpCreateManual creates initial content from direct caller input.
	OpCreateManual OpType = "create_manual"

	// OpRewritePersona rewrites text in a target persona/style.
	OpRewritePersona OpType = "rewrite_persona"

	// OpRewriteHumanize rewrites text to read as human-authored.
	OpRewriteHumanize OpType = "rewrite_humanize"

	// OpMerge combines text from several buffers into one.
	OpMerge OpType = "merge"

	// OpSplit divides one buffer into multiple segments.
	OpSplit OpType = "split"

	// OpAnalyzeQuality attaches quality metrics. Non-destructive.
	OpAnalyzeQuality OpType = "analyze_quality"

	// OpDetectAI attaches an AI-detection result. Non-destructive.
	OpDetectAI OpType = "detect_ai"

	// OpEmbed attaches an embedding vector. Non-destructive.
	OpEmbed OpType = "embed"

	// OpCommitToWork seals pending working-buffer changes.
	OpCommitToWork OpType = "commit_to_work"

	// OpExportToArchive writes the buffer back to the archive store.
	OpExportToArchive OpType = "export_to_archive"

	// OpCustom is an escape hatch for caller-defined operations, including
	// recorded rollback navigation.
	OpCustom OpType = "custom"
)

// knownOps is the membership set for Valid.
var knownOps = map[OpType]struct{}{
	OpLoadArchive: {}, OpLoadAuthoredWork: {}, OpCreateManual: {},
	OpRewritePersona: {}, OpRewriteHumanize: {}, OpMerge: {}, OpSplit: {},
	OpAnalyzeQuality: {}, OpDetectAI: {}, OpEmbed: {},
	OpCommitToWork: {}, OpExportToArchive: {}, OpCustom: {},
}

// Valid reports whether t is a member of the closed enumeration.
func (t OpType) Valid() bool {
	_, ok := knownOps[t]
	return ok
}

// NonDestructive reports whether t annotates rather than rewrites.
//
// Non-destructive operations keep afterHash == beforeHash: the produced
// buffer differs from its predecessor only in attached metadata or
// lifecycle state (export-to-archive produces an archived copy of the
// same content). The dispatcher enforces this after every execution.
func (t OpType) NonDestructive() bool {
	switch t {
	case OpAnalyzeQuality, OpDetectAI, OpEmbed, OpExportToArchive:
		return true
	default:
		return false
	}
}

// PerformerKind identifies what kind of actor performed an operation.
type PerformerKind string

const (
	// PerformerUser is a human caller.
	PerformerUser PerformerKind = "user"

	// PerformerAgent is a language-model or pipeline agent.
	PerformerAgent PerformerKind = "agent"

	// PerformerSystem is the engine itself (e.g. recorded navigation).
	PerformerSystem PerformerKind = "system"
)

// Performer describes who or what performed an operation.
type Performer struct {
	// Kind is the actor category.
	Kind PerformerKind `json:"kind"`

	// ID identifies the actor (user id, agent name, service name).
	ID string `json:"id,omitempty"`

	// Model is the optional model reference for agent performers.
	Model string `json:"model,omitempty"`

	// PromptRef is an optional reference to the prompt used.
	PromptRef string `json:"prompt_ref,omitempty"`
}

// QualityImpact summarizes how an operation changed content quality.
type QualityImpact struct {
	// ScoreDelta is the change in overall score (after minus before).
	ScoreDelta float64 `json:"score_delta"`

	// MetricsAffected names the metrics the operation moved.
	MetricsAffected []string `json:"metrics_affected,omitempty"`

	// IssuesFixed counts quality issues resolved by the operation.
	IssuesFixed int `json:"issues_fixed,omitempty"`

	// IssuesIntroduced counts new issues the operation created.
	IssuesIntroduced int `json:"issues_introduced,omitempty"`
}

// Operation is one immutable transformation record.
//
// BeforeHash/AfterHash link operations into a verifiable chain: the
// after-hash of operation n is the content hash of the buffer it produced
// and must equal the before-hash of operation n+1 in the same chain.
type Operation struct {
	// ID uniquely identifies the operation; doubles as the version id
	// surfaced through history and diff queries.
	ID string `json:"id"`

	// Type is the operation kind.
	Type OpType `json:"type"`

	// Timestamp is when the operation was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Performer is who/what performed the operation.
	Performer Performer `json:"performer"`

	// Parameters are free-form, type-specific inputs (source ids, persona,
	// segment hashes, rollback steps, ...).
	Parameters map[string]any `json:"parameters,omitempty"`

	// BeforeHash is the content hash the operation started from.
	BeforeHash string `json:"before_hash"`

	// AfterHash is the content hash of the produced buffer.
	AfterHash string `json:"after_hash"`

	// DeltaHash is an optional digest of the computed delta.
	DeltaHash string `json:"delta_hash,omitempty"`

	// Impact is the optional quality-impact record.
	Impact *QualityImpact `json:"impact,omitempty"`

	// Description is a human-readable summary (the commit message for
	// commit operations).
	Description string `json:"description,omitempty"`

	// DurationMs is the optional wall-clock duration of the operation.
	DurationMs int64 `json:"duration_ms,omitempty"`

	// CostUSD is the optional collaborator cost of the operation.
	CostUSD float64 `json:"cost_usd,omitempty"`
}

// clone returns a deep copy of the operation.
func (o Operation) clone() Operation {
	cp := o
	if o.Parameters != nil {
		cp.Parameters = make(map[string]any, len(o.Parameters))
		for k, v := range o.Parameters {
			cp.Parameters[k] = v
		}
	}
	if o.Impact != nil {
		impact := *o.Impact
		impact.MetricsAffected = append([]string(nil), o.Impact.MetricsAffected...)
		cp.Impact = &impact
	}
	return cp
}
