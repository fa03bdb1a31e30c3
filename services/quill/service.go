// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package quill exposes the content-buffer version-control engine over HTTP.
//
// The Service facade validates caller input, drives the workspace
// controller, and handles cross-cutting concerns the core packages stay
// out of: persistence of produced buffers and chains, and operation
// metrics. Handlers translate the error taxonomy into HTTP statuses.
package quill

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/AleutianQuill/pkg/validation"
	"github.com/AleutianAI/AleutianQuill/services/quill/buffer"
	"github.com/AleutianAI/AleutianQuill/services/quill/diff"
	"github.com/AleutianAI/AleutianQuill/services/quill/provenance"
	"github.com/AleutianAI/AleutianQuill/services/quill/storage"
	"github.com/AleutianAI/AleutianQuill/services/quill/telemetry"
	"github.com/AleutianAI/AleutianQuill/services/quill/transform"
	"github.com/AleutianAI/AleutianQuill/services/quill/workspace"
)

// ServiceVersion is the Quill service version.
const ServiceVersion = "0.1.0"

// Config wires a Service.
type Config struct {
	// Repo is the shared buffer repository. Required.
	Repo *buffer.Repository

	// Tracker is the shared provenance tracker. Required.
	Tracker *provenance.Tracker

	// Dispatcher executes transform operations. Required.
	Dispatcher *transform.Dispatcher

	// Store persists buffers and chains. Optional; nil disables
	// persistence (in-memory mode).
	Store *storage.Store

	// Metrics records operation metrics. Optional.
	Metrics *telemetry.Metrics

	// Logger is the structured logger. Nil disables logging.
	Logger *slog.Logger
}

// Service is the Quill engine facade used by the HTTP handlers.
type Service struct {
	repo       *buffer.Repository
	tracker    *provenance.Tracker
	controller *workspace.Controller
	store      *storage.Store
	metrics    *telemetry.Metrics
	logger     *slog.Logger
}

// NewService creates the service and its workspace controller.
func NewService(cfg Config) (*Service, error) {
	if cfg.Repo == nil || cfg.Tracker == nil || cfg.Dispatcher == nil {
		return nil, errors.New("repo, tracker, and dispatcher are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:       cfg.Repo,
		tracker:    cfg.Tracker,
		controller: workspace.NewController(cfg.Repo, cfg.Tracker, cfg.Dispatcher, logger),
		store:      cfg.Store,
		metrics:    cfg.Metrics,
		logger:     logger,
	}, nil
}

// Controller exposes the workspace controller for tests and seeding.
func (s *Service) Controller() *workspace.Controller {
	return s.controller
}

// CreateBuffer opens a named working buffer in a session.
func (s *Service) CreateBuffer(ctx context.Context, session string, req CreateBufferRequest) (*workspace.Detail, error) {
	if err := validation.ValidateNames(session, req.Name); err != nil {
		return nil, err
	}
	start := time.Now()
	detail, err := s.controller.Create(ctx, session, req.Name, req.Content, req.Format, req.Performer.toPerformer())
	s.recordOp(ctx, "create", start, err)
	if err != nil {
		return nil, err
	}
	s.persistChain(detail.ChainID)
	s.persistBuffer(detail.BufferID)
	return detail, nil
}

// ListBuffers lists a session's working buffers.
func (s *Service) ListBuffers(session string) ([]workspace.Info, error) {
	if err := validation.ValidateName(session); err != nil {
		return nil, err
	}
	return s.controller.List(session), nil
}

// GetBuffer returns the full state of one working buffer.
func (s *Service) GetBuffer(session, name string) (*workspace.Detail, error) {
	if err := validation.ValidateNames(session, name); err != nil {
		return nil, err
	}
	return s.controller.Get(session, name)
}

// SetContent replaces the working text.
func (s *Service) SetContent(session, name, content string) (*workspace.Info, error) {
	if err := validation.ValidateNames(session, name); err != nil {
		return nil, err
	}
	return s.controller.SetContent(session, name, content)
}

// Append adds lines to the working text.
func (s *Service) Append(session, name string, lines []string) (*workspace.Info, error) {
	if err := validation.ValidateNames(session, name); err != nil {
		return nil, err
	}
	return s.controller.Append(session, name, lines)
}

// Commit records the pending text as a new committed version.
func (s *Service) Commit(ctx context.Context, session, name string, req CommitRequest) (*workspace.CommitReceipt, error) {
	if err := validation.ValidateNames(session, name); err != nil {
		return nil, err
	}
	start := time.Now()
	receipt, err := s.controller.Commit(ctx, session, name, req.Message, req.Performer.toPerformer())
	s.recordOp(ctx, string(provenance.OpCommitToWork), start, err)
	if err != nil {
		if errors.Is(err, workspace.ErrConcurrentUpdate) && s.metrics != nil {
			s.metrics.CommitRacesTotal.Add(ctx, 1)
		}
		return nil, err
	}
	s.persistBuffer(receipt.BufferID)
	s.persistChain(receipt.ChainID)
	return receipt, nil
}

// History returns recorded operations, newest first.
func (s *Service) History(session, name string, limit int) ([]provenance.Operation, error) {
	if err := validation.ValidateNames(session, name); err != nil {
		return nil, err
	}
	return s.controller.History(session, name, limit)
}

// CreateBranch forks a branch at the committed head.
func (s *Service) CreateBranch(session, name string, req BranchRequest) (*workspace.BranchInfo, error) {
	if err := validation.ValidateNames(session, name, req.Name); err != nil {
		return nil, err
	}
	detail, err := s.controller.Get(session, name)
	if err != nil {
		return nil, err
	}
	info, err := s.controller.Branch(session, name, req.Name, req.Description)
	if err != nil {
		return nil, err
	}
	// The fork updated the parent's child list; persist both snapshots.
	s.persistChain(detail.ChainID)
	s.persistChain(info.ChainID)
	return info, nil
}

// SwitchBranch checks out another branch.
func (s *Service) SwitchBranch(session, name, branch string) (*workspace.Detail, error) {
	if err := validation.ValidateNames(session, name, branch); err != nil {
		return nil, err
	}
	return s.controller.Switch(session, name, branch)
}

// Rollback moves the working buffer back over the last N operations.
func (s *Service) Rollback(ctx context.Context, session, name string, req RollbackRequest) (*workspace.Version, error) {
	if err := validation.ValidateNames(session, name); err != nil {
		return nil, err
	}
	start := time.Now()
	version, err := s.controller.Rollback(ctx, session, name, req.Steps, req.Performer.toPerformer())
	s.recordOp(ctx, "rollback", start, err)
	if err != nil {
		return nil, err
	}
	if detail, derr := s.controller.Get(session, name); derr == nil {
		s.persistChain(detail.ChainID)
	}
	return version, nil
}

// Diff compares two versions of a working buffer.
//
// Empty version ids default to "current", the working text. The result
// counts lines added, removed, and changed going from "from" to "to".
func (s *Service) Diff(session, name, from, to string) (*DiffResponse, error) {
	if err := validation.ValidateNames(session, name); err != nil {
		return nil, err
	}
	if from == "" {
		from = "current"
	}
	if to == "" {
		to = "current"
	}
	older, err := s.controller.VersionContent(session, name, from)
	if err != nil {
		return nil, err
	}
	newer, err := s.controller.VersionContent(session, name, to)
	if err != nil {
		return nil, err
	}
	delta := diff.Compute(older, newer)
	return &DiffResponse{
		From:    from,
		To:      to,
		Added:   delta.Added,
		Removed: delta.Removed,
		Changed: delta.Changed,
	}, nil
}

// Merge folds a source branch into the checked-out branch.
func (s *Service) Merge(ctx context.Context, session, name string, req MergeRequest) (*workspace.MergeReceipt, error) {
	if err := validation.ValidateNames(session, name, req.Source); err != nil {
		return nil, err
	}
	start := time.Now()
	receipt, err := s.controller.Merge(ctx, session, name, req.Source, req.Performer.toPerformer())
	s.recordOp(ctx, string(provenance.OpMerge), start, err)
	if err != nil {
		if errors.Is(err, diff.ErrConflict) && s.metrics != nil {
			s.metrics.MergeConflictsTotal.Add(ctx, 1)
		}
		return nil, err
	}
	if receipt.Recorded {
		if detail, derr := s.controller.Get(session, name); derr == nil {
			s.persistBuffer(detail.BufferID)
			s.persistChain(detail.ChainID)
		}
	}
	return receipt, nil
}

// Transform runs a dispatcher operation against the working buffer.
func (s *Service) Transform(ctx context.Context, session, name string, req TransformRequest) (*TransformResponse, error) {
	if err := validation.ValidateNames(session, name); err != nil {
		return nil, err
	}
	treq := transform.Request{
		Type:        provenance.OpType(req.Type),
		Performer:   req.Performer.toPerformer(),
		Description: req.Description,
		Parameters:  req.Parameters,
		Timeout:     time.Duration(req.TimeoutSeconds) * time.Second,
	}
	start := time.Now()
	res, version, err := s.controller.Transform(ctx, session, name, treq)
	s.recordOp(ctx, req.Type, start, err)
	if err != nil {
		return nil, err
	}

	segmentIDs := make([]string, 0, len(res.Segments))
	for _, seg := range res.Segments {
		s.persistBuffer(seg.ID)
		segmentIDs = append(segmentIDs, seg.ID)
	}
	s.persistBuffer(res.Buffer.ID)
	s.persistChain(res.ChainID)

	return &TransformResponse{
		Version: *version,
		Buffer: BufferPayload{
			ID:          res.Buffer.ID,
			ContentHash: res.Buffer.ContentHash,
			WordCount:   res.Buffer.WordCount,
			Format:      string(res.Buffer.Format),
			State:       string(res.Buffer.State),
			Text:        res.Buffer.Text,
		},
		SegmentIDs: segmentIDs,
	}, nil
}

// persistBuffer writes a buffer through the store when one is configured.
// Persistence failures are logged, not returned: the in-memory state is
// authoritative and the write can be retried by a later save.
func (s *Service) persistBuffer(id string) {
	if s.store == nil {
		return
	}
	b, err := s.repo.Get(id)
	if err != nil {
		s.logger.Error("persist buffer: lookup failed", "buffer_id", id, "error", err)
		return
	}
	if err := s.store.SaveBuffer(b); err != nil {
		s.logger.Error("persist buffer failed", "buffer_id", id, "error", err)
	}
}

func (s *Service) persistChain(id string) {
	if s.store == nil {
		return
	}
	chain, err := s.tracker.Get(id)
	if err != nil {
		s.logger.Error("persist chain: lookup failed", "chain_id", id, "error", err)
		return
	}
	if err := s.store.SaveChain(chain); err != nil {
		s.logger.Error("persist chain failed", "chain_id", id, "error", err)
	}
}

func (s *Service) recordOp(ctx context.Context, opType string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, provenance.ErrIntegrity) {
			s.metrics.IntegrityFailuresTotal.Add(ctx, 1)
		}
	}
	attrs := metric.WithAttributes(
		attribute.String("type", opType),
		attribute.String("status", status),
	)
	s.metrics.OperationsTotal.Add(ctx, 1, attrs)
	s.metrics.OperationDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}
