// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics contains pre-defined metrics for the Quill service.
//
// All metrics use the "quill_" prefix.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- HTTP Metrics ---

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records HTTP request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// HTTPActiveRequests tracks currently active HTTP requests.
	HTTPActiveRequests metric.Int64UpDownCounter

	// --- Operation Metrics ---

	// OperationsTotal counts recorded operations by type and status.
	OperationsTotal metric.Int64Counter

	// OperationDuration records end-to-end operation duration in seconds.
	OperationDuration metric.Float64Histogram

	// --- Collaborator Metrics ---

	// CollaboratorCallsTotal counts external collaborator calls by
	// service and status.
	CollaboratorCallsTotal metric.Int64Counter

	// CollaboratorLatency records collaborator call latency in seconds.
	CollaboratorLatency metric.Float64Histogram

	// --- Version Control Metrics ---

	// MergeConflictsTotal counts merges rejected for overlapping changes.
	MergeConflictsTotal metric.Int64Counter

	// IntegrityFailuresTotal counts hash-chain verification failures.
	IntegrityFailuresTotal metric.Int64Counter

	// CommitRacesTotal counts commits lost to a concurrent pointer update.
	CommitRacesTotal metric.Int64Counter
}

// NewMetrics registers all Quill metrics with the provided meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"quill_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"quill_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"quill_http_active_requests",
		metric.WithDescription("Currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_active_requests: %w", err)
	}

	m.OperationsTotal, err = meter.Int64Counter(
		"quill_operations_total",
		metric.WithDescription("Total recorded operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create operations_total: %w", err)
	}

	m.OperationDuration, err = meter.Float64Histogram(
		"quill_operation_duration_seconds",
		metric.WithDescription("Operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60),
	)
	if err != nil {
		return nil, fmt.Errorf("create operation_duration: %w", err)
	}

	m.CollaboratorCallsTotal, err = meter.Int64Counter(
		"quill_collaborator_calls_total",
		metric.WithDescription("Total external collaborator calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create collaborator_calls_total: %w", err)
	}

	m.CollaboratorLatency, err = meter.Float64Histogram(
		"quill_collaborator_latency_seconds",
		metric.WithDescription("Collaborator call latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 60),
	)
	if err != nil {
		return nil, fmt.Errorf("create collaborator_latency: %w", err)
	}

	m.MergeConflictsTotal, err = meter.Int64Counter(
		"quill_merge_conflicts_total",
		metric.WithDescription("Merges rejected for overlapping changes"),
		metric.WithUnit("{merge}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create merge_conflicts_total: %w", err)
	}

	m.IntegrityFailuresTotal, err = meter.Int64Counter(
		"quill_integrity_failures_total",
		metric.WithDescription("Hash-chain verification failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create integrity_failures_total: %w", err)
	}

	m.CommitRacesTotal, err = meter.Int64Counter(
		"quill_commit_races_total",
		metric.WithDescription("Commits lost to a concurrent pointer update"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create commit_races_total: %w", err)
	}

	return m, nil
}
