// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/AleutianQuill/services/quill/buffer"
	"github.com/AleutianAI/AleutianQuill/services/quill/diff"
	"github.com/AleutianAI/AleutianQuill/services/quill/provenance"
	"github.com/AleutianAI/AleutianQuill/services/quill/telemetry"
)

// DefaultTimeout bounds collaborator calls when a request sets none.
const DefaultTimeout = 60 * time.Second

// Request describes one transform to perform on a chain.
type Request struct {
	// Type is the operation kind. Must be in the closed enumeration.
	Type provenance.OpType

	// Performer is who/what asked for the transform.
	Performer provenance.Performer

	// Description is a human-readable summary; for commit operations this
	// is the commit message.
	Description string

	// Parameters are type-specific inputs. See the dispatch cases for the
	// keys each operation requires.
	Parameters map[string]any

	// Timeout bounds the collaborator call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Result is a computed transform that has not yet been recorded.
//
// Execute produces a Result; Record appends its operation to the chain.
// Splitting the two lets callers apply their optimistic pointer update
// between computation and recording.
type Result struct {
	// ChainID is the chain the operation extends.
	ChainID string

	// Buffer is the new head buffer the operation produced.
	Buffer *buffer.ContentBuffer

	// Segments holds all result buffers for split operations, head first.
	Segments []*buffer.ContentBuffer

	// Operation is the record to append. Its ID is assigned at Record.
	Operation provenance.Operation
}

// Config wires a Dispatcher.
type Config struct {
	// Repo stores produced buffers. Required.
	Repo *buffer.Repository

	// Tracker owns the chains operations are recorded on. Required.
	Tracker *provenance.Tracker

	// Rewriter serves rewrite-persona and rewrite-humanize. Optional.
	Rewriter RewriteService

	// Quality serves analyze-quality and detect-ai. Optional.
	Quality QualityService

	// Embedder serves embed. Optional.
	Embedder EmbeddingService

	// Archive serves load-archive and export-to-archive. Optional.
	Archive ArchiveStore

	// Works serves load-authored-work. Optional.
	Works ArchiveStore

	// Metrics receives collaborator call counts and latency. Optional.
	Metrics *telemetry.Metrics

	// Logger is the structured logger. Nil disables logging.
	Logger *slog.Logger

	// Timeout is the default collaborator timeout. Zero means
	// DefaultTimeout.
	Timeout time.Duration
}

// Dispatcher maps operation requests onto collaborator calls plus
// provenance records.
//
// # Description
//
// Dispatch is an exhaustive switch over the closed operation enumeration.
// Each branch calls exactly one external collaborator, computes the new
// content hash, creates the new buffer, and constructs the operation with
// before/after hashes. A transform that fails never records anything.
//
// # Thread Safety
//
// Safe for concurrent use; all state lives in the repository and tracker.
type Dispatcher struct {
	repo     *buffer.Repository
	tracker  *provenance.Tracker
	rewriter RewriteService
	quality  QualityService
	embedder EmbeddingService
	archive  ArchiveStore
	works    ArchiveStore
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	timeout  time.Duration
}

// NewDispatcher creates a dispatcher from the given wiring.
//
// Returns an error if the repository or tracker is missing; collaborators
// are optional and requests needing an absent one fail with
// ErrNotConfigured.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Repo == nil || cfg.Tracker == nil {
		return nil, fmt.Errorf("dispatcher requires a repository and a tracker")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Dispatcher{
		repo:     cfg.Repo,
		tracker:  cfg.Tracker,
		rewriter: cfg.Rewriter,
		quality:  cfg.Quality,
		embedder: cfg.Embedder,
		archive:  cfg.Archive,
		works:    cfg.Works,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		timeout:  cfg.Timeout,
	}, nil
}

// observeCollaborator records one collaborator call on the metrics,
// labeled with the collaborator name and ok/error status.
func (d *Dispatcher) observeCollaborator(ctx context.Context, service string, start time.Time, err error) {
	if d.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("status", status),
	)
	d.metrics.CollaboratorCallsTotal.Add(ctx, 1, attrs)
	d.metrics.CollaboratorLatency.Record(ctx, time.Since(start).Seconds(), attrs)
}

// Bootstrap opens a new lineage from an initial-content operation.
//
// # Description
//
// Handles the three chain-opening operation types: load-archive,
// load-authored-work, and create-manual. Creates buffer zero, opens a
// root chain for it, and records the load/create operation as the chain's
// first entry (its before-hash is empty, marking genesis).
//
// # Inputs
//
//   - ctx: Cancellation/timeout context for the store call.
//   - req: The request. For loads, Parameters["source_id"] is required;
//     for create-manual, Parameters["text"] holds the initial content and
//     Parameters["format"] the optional format.
//   - branchName: Root branch name; empty defaults to "main".
//
// # Outputs
//
//   - *Result: The buffer and recorded operation.
//   - *provenance.Chain: The opened chain.
//   - error: ErrUnknownOperation for non-bootstrap types, collaborator
//     and validation errors otherwise.
func (d *Dispatcher) Bootstrap(ctx context.Context, req Request, branchName string) (*Result, *provenance.Chain, error) {
	start := time.Now()

	var (
		text   string
		origin buffer.Origin
		format buffer.Format = buffer.FormatPlain
		params               = map[string]any{}
	)

	switch req.Type {
	case provenance.OpLoadArchive, provenance.OpLoadAuthoredWork:
		store, service := d.archive, "archive"
		if req.Type == provenance.OpLoadAuthoredWork {
			store, service = d.works, "works"
		}
		if store == nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotConfigured, req.Type)
		}
		sourceID, err := stringParam(req.Parameters, "source_id")
		if err != nil {
			return nil, nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, d.requestTimeout(req))
		defer cancel()
		callStart := time.Now()
		text, origin, err = store.LoadContent(callCtx, sourceID)
		d.observeCollaborator(ctx, service, callStart, err)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: load %s: %v", ErrCollaborator, sourceID, err)
		}
		params["source_id"] = sourceID

	case provenance.OpCreateManual:
		text = optStringParam(req.Parameters, "text", "")
		f, err := buffer.ParseFormat(optStringParam(req.Parameters, "format", ""))
		if err != nil {
			return nil, nil, err
		}
		format = f
		origin = buffer.Origin{
			Kind:   buffer.SourceManual,
			Author: req.Performer.ID,
			Role:   string(req.Performer.Kind),
		}

	default:
		return nil, nil, fmt.Errorf("%w: %q does not open a chain", ErrUnknownOperation, req.Type)
	}

	b := buffer.New(text, format, origin, buffer.StateTransient)
	chain, err := d.tracker.CreateChain(b.ID, branchName)
	if err != nil {
		return nil, nil, err
	}
	b.ChainID = chain.ID
	if err := d.repo.Put(b); err != nil {
		return nil, nil, err
	}

	res := &Result{
		ChainID: chain.ID,
		Buffer:  b,
		Operation: provenance.Operation{
			Type:        req.Type,
			Performer:   req.Performer,
			Parameters:  params,
			AfterHash:   b.ContentHash,
			Description: req.Description,
			DurationMs:  time.Since(start).Milliseconds(),
		},
	}
	chain, err = d.Record(res)
	if err != nil {
		return nil, nil, err
	}

	d.logger.Info("lineage opened", "chain_id", chain.ID, "op_type", req.Type,
		"buffer_id", b.ID, "word_count", b.WordCount)
	return res, chain, nil
}

// Execute computes a transform against a chain's current head.
//
// # Description
//
// Calls the collaborator the operation type requires, stores the produced
// buffer, and returns the operation to record. Nothing is appended to the
// chain: callers perform their pointer update and then call Record.
// Collaborator failure or timeout returns an error wrapping
// ErrCollaborator with the chain untouched.
func (d *Dispatcher) Execute(ctx context.Context, chainID string, req Request) (*Result, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, req.Type)
	}

	chain, err := d.tracker.Get(chainID)
	if err != nil {
		return nil, err
	}
	before, err := d.repo.Get(chain.CurrentBufferID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	op := provenance.Operation{
		Type:        req.Type,
		Performer:   req.Performer,
		Description: req.Description,
		BeforeHash:  before.ContentHash,
		Parameters:  map[string]any{},
	}
	res := &Result{ChainID: chainID}

	switch req.Type {
	case provenance.OpLoadArchive, provenance.OpLoadAuthoredWork, provenance.OpCreateManual:
		return nil, fmt.Errorf("%w: %q opens a new chain", ErrRootOperation, req.Type)

	case provenance.OpRewritePersona, provenance.OpRewriteHumanize:
		if d.rewriter == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotConfigured, req.Type)
		}
		callParams := map[string]any{"mode": "humanize"}
		if req.Type == provenance.OpRewritePersona {
			persona, err := stringParam(req.Parameters, "persona")
			if err != nil {
				return nil, err
			}
			callParams["mode"] = "persona"
			callParams["persona"] = persona
			op.Parameters["persona"] = persona
		}
		for k, v := range req.Parameters {
			callParams[k] = v
		}

		callCtx, cancel := context.WithTimeout(ctx, d.requestTimeout(req))
		callStart := time.Now()
		rewritten, err := d.rewriter.Rewrite(callCtx, before.Text, callParams)
		cancel()
		d.observeCollaborator(ctx, "rewriter", callStart, err)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCollaborator, req.Type, err)
		}

		b := buffer.New(rewritten.Text, before.Format, before.Origin, buffer.StateCommitted)
		b.ChainID = chainID
		if err := d.repo.Put(b); err != nil {
			return nil, err
		}
		op.Parameters["changes_applied"] = rewritten.ChangesApplied
		op.AfterHash = b.ContentHash
		op.DeltaHash = diff.Compute(before.Text, rewritten.Text).Hash()
		op.CostUSD = rewritten.CostUSD
		if rewritten.Model != "" && op.Performer.Model == "" {
			op.Performer.Model = rewritten.Model
		}
		res.Buffer = b

	case provenance.OpMerge:
		sources, err := stringSliceParam(req.Parameters, "sources")
		if err != nil {
			return nil, err
		}
		texts := []string{before.Text}
		sourceBuffers := []string{}
		for _, srcChainID := range sources {
			srcChain, err := d.tracker.Get(srcChainID)
			if err != nil {
				return nil, err
			}
			srcBuf, err := d.repo.Get(srcChain.CurrentBufferID)
			if err != nil {
				return nil, err
			}
			texts = append(texts, srcBuf.Text)
			sourceBuffers = append(sourceBuffers, srcBuf.ID)
		}
		combined := strings.Join(texts, "\n\n")

		b := buffer.New(combined, before.Format, before.Origin, buffer.StateCommitted)
		b.ChainID = chainID
		if err := d.repo.Put(b); err != nil {
			return nil, err
		}
		op.Parameters["sources"] = sources
		op.Parameters["source_buffer_ids"] = sourceBuffers
		op.AfterHash = b.ContentHash
		op.DeltaHash = diff.Compute(before.Text, combined).Hash()
		res.Buffer = b

	case provenance.OpSplit:
		delimiter := optStringParam(req.Parameters, "delimiter", "\n\n")
		parts := strings.Split(before.Text, delimiter)
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: split needs at least two segments (delimiter %q)",
				provenance.ErrInvalidOperation, delimiter)
		}

		hashes := make([]string, 0, len(parts))
		ids := make([]string, 0, len(parts))
		for _, part := range parts {
			seg := buffer.New(part, before.Format, before.Origin, buffer.StateCommitted)
			seg.ChainID = chainID
			if err := d.repo.Put(seg); err != nil {
				return nil, err
			}
			res.Segments = append(res.Segments, seg)
			hashes = append(hashes, seg.ContentHash)
			ids = append(ids, seg.ID)
		}
		// The chain advances to a single representative head: the first
		// segment. The rest stay discoverable via the operation record.
		res.Buffer = res.Segments[0]
		op.Parameters["delimiter"] = delimiter
		op.Parameters["result_hashes"] = hashes
		op.Parameters["result_buffer_ids"] = ids
		op.AfterHash = res.Buffer.ContentHash
		op.DeltaHash = diff.Compute(before.Text, res.Buffer.Text).Hash()

	case provenance.OpAnalyzeQuality:
		if d.quality == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotConfigured, req.Type)
		}
		callCtx, cancel := context.WithTimeout(ctx, d.requestTimeout(req))
		callStart := time.Now()
		metrics, err := d.quality.Analyze(callCtx, before.Text)
		cancel()
		d.observeCollaborator(ctx, "quality", callStart, err)
		if err != nil {
			return nil, fmt.Errorf("%w: analyze: %v", ErrCollaborator, err)
		}

		b := buffer.New(before.Text, before.Format, before.Origin, buffer.StateCommitted)
		b.ChainID = chainID
		b.Quality = metrics
		b.Embedding = before.Embedding
		if err := d.repo.Put(b); err != nil {
			return nil, err
		}
		op.AfterHash = b.ContentHash // == BeforeHash: annotation, not rewrite
		op.Impact = qualityImpact(before.Quality, metrics)
		res.Buffer = b

	case provenance.OpDetectAI:
		if d.quality == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotConfigured, req.Type)
		}
		callCtx, cancel := context.WithTimeout(ctx, d.requestTimeout(req))
		callStart := time.Now()
		detection, err := d.quality.DetectAI(callCtx, before.Text)
		cancel()
		d.observeCollaborator(ctx, "quality", callStart, err)
		if err != nil {
			return nil, fmt.Errorf("%w: detect-ai: %v", ErrCollaborator, err)
		}

		b := buffer.New(before.Text, before.Format, before.Origin, buffer.StateCommitted)
		b.ChainID = chainID
		quality := buffer.QualityMetrics{AnalyzedAt: time.Now().UTC()}
		if before.Quality != nil {
			quality = *before.Quality
		}
		quality.AILikelihood = detection.Likelihood
		b.Quality = &quality
		b.Embedding = before.Embedding
		if err := d.repo.Put(b); err != nil {
			return nil, err
		}
		op.Parameters["verdict"] = detection.Verdict
		op.Parameters["signals"] = detection.Signals
		op.AfterHash = b.ContentHash
		res.Buffer = b

	case provenance.OpEmbed:
		if d.embedder == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotConfigured, req.Type)
		}
		callCtx, cancel := context.WithTimeout(ctx, d.requestTimeout(req))
		callStart := time.Now()
		vector, err := d.embedder.Embed(callCtx, before.Text)
		cancel()
		d.observeCollaborator(ctx, "embedder", callStart, err)
		if err != nil {
			return nil, fmt.Errorf("%w: embed: %v", ErrCollaborator, err)
		}

		b := buffer.New(before.Text, before.Format, before.Origin, buffer.StateCommitted)
		b.ChainID = chainID
		b.Quality = before.Quality
		b.Embedding = vector
		if err := d.repo.Put(b); err != nil {
			return nil, err
		}
		op.Parameters["dimensions"] = len(vector)
		op.AfterHash = b.ContentHash
		res.Buffer = b

	case provenance.OpCommitToWork:
		// Empty text is a valid commit: it seals a cleared buffer.
		text, err := textParam(req.Parameters, "text")
		if err != nil {
			return nil, err
		}
		b := buffer.New(text, before.Format, before.Origin, buffer.StateCommitted)
		b.ChainID = chainID
		if err := d.repo.Put(b); err != nil {
			return nil, err
		}
		op.AfterHash = b.ContentHash
		op.DeltaHash = diff.Compute(before.Text, text).Hash()
		res.Buffer = b

	case provenance.OpExportToArchive:
		if d.archive == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotConfigured, req.Type)
		}
		callCtx, cancel := context.WithTimeout(ctx, d.requestTimeout(req))
		callStart := time.Now()
		sourceID, err := d.archive.ExportContent(callCtx, before.Text, map[string]string{
			"chain_id":  chainID,
			"buffer_id": before.ID,
		})
		cancel()
		d.observeCollaborator(ctx, "archive", callStart, err)
		if err != nil {
			return nil, fmt.Errorf("%w: export: %v", ErrCollaborator, err)
		}

		b := buffer.New(before.Text, before.Format, before.Origin, buffer.StateArchived)
		b.ChainID = chainID
		b.Quality = before.Quality
		b.Embedding = before.Embedding
		if err := d.repo.Put(b); err != nil {
			return nil, err
		}
		op.Parameters["source_id"] = sourceID
		op.AfterHash = b.ContentHash
		res.Buffer = b

	case provenance.OpCustom:
		text := optStringParam(req.Parameters, "text", before.Text)
		b := buffer.New(text, before.Format, before.Origin, buffer.StateCommitted)
		b.ChainID = chainID
		if text == before.Text {
			b.Quality = before.Quality
			b.Embedding = before.Embedding
		}
		if err := d.repo.Put(b); err != nil {
			return nil, err
		}
		for k, v := range req.Parameters {
			op.Parameters[k] = v
		}
		op.AfterHash = b.ContentHash
		if text != before.Text {
			op.DeltaHash = diff.Compute(before.Text, text).Hash()
		}
		res.Buffer = b

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, req.Type)
	}

	if req.Type.NonDestructive() && op.AfterHash != op.BeforeHash {
		return nil, fmt.Errorf("%w: %s changed content (%s -> %s)",
			provenance.ErrIntegrity, req.Type, op.BeforeHash, op.AfterHash)
	}

	op.DurationMs = time.Since(start).Milliseconds()
	res.Operation = op

	d.logger.Debug("transform executed", "chain_id", chainID, "op_type", req.Type,
		"buffer_id", res.Buffer.ID, "duration_ms", op.DurationMs)
	return res, nil
}

// Record appends a computed result's operation to its chain.
func (d *Dispatcher) Record(res *Result) (*provenance.Chain, error) {
	return d.tracker.RecordOperation(res.ChainID, res.Operation, res.Buffer.ID)
}

// Dispatch executes a transform and records it in one call.
//
// The single entry point for callers that do not manage a working-buffer
// pointer of their own.
func (d *Dispatcher) Dispatch(ctx context.Context, chainID string, req Request) (*Result, *provenance.Chain, error) {
	res, err := d.Execute(ctx, chainID, req)
	if err != nil {
		return nil, nil, err
	}
	chain, err := d.Record(res)
	if err != nil {
		return nil, nil, err
	}
	return res, chain, nil
}

// requestTimeout returns the effective collaborator timeout for a request.
func (d *Dispatcher) requestTimeout(req Request) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	return d.timeout
}

// qualityImpact derives the impact record between two analyses.
func qualityImpact(before, after *buffer.QualityMetrics) *provenance.QualityImpact {
	if after == nil {
		return nil
	}
	impact := &provenance.QualityImpact{}
	if before != nil {
		impact.ScoreDelta = after.OverallScore - before.OverallScore
		beforeIssues := make(map[string]struct{}, len(before.Issues))
		for _, issue := range before.Issues {
			beforeIssues[issue] = struct{}{}
		}
		afterIssues := make(map[string]struct{}, len(after.Issues))
		for _, issue := range after.Issues {
			afterIssues[issue] = struct{}{}
			if _, ok := beforeIssues[issue]; !ok {
				impact.IssuesIntroduced++
			}
		}
		for _, issue := range before.Issues {
			if _, ok := afterIssues[issue]; !ok {
				impact.IssuesFixed++
			}
		}
	} else {
		impact.ScoreDelta = after.OverallScore
	}
	if after.ReadabilityScore != 0 {
		impact.MetricsAffected = append(impact.MetricsAffected, "readability")
	}
	impact.MetricsAffected = append(impact.MetricsAffected, "overall")
	return impact
}

// Parameter helpers.

func stringParam(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingParameter, key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string", ErrMissingParameter, key)
	}
	return s, nil
}

// textParam is stringParam minus the non-empty requirement: the key must
// be present and a string, but "" is a legal value.
func textParam(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingParameter, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrMissingParameter, key)
	}
	return s, nil
}

func optStringParam(m map[string]any, key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func stringSliceParam(m map[string]any, key string) ([]string, error) {
	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingParameter, key)
	}
	switch vv := v.(type) {
	case []string:
		if len(vv) == 0 {
			return nil, fmt.Errorf("%w: %s must be non-empty", ErrMissingParameter, key)
		}
		return vv, nil
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must contain strings", ErrMissingParameter, key)
			}
			out = append(out, s)
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: %s must be non-empty", ErrMissingParameter, key)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a string list", ErrMissingParameter, key)
	}
}
