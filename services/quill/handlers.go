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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianQuill/pkg/validation"
	"github.com/AleutianAI/AleutianQuill/services/quill/buffer"
	"github.com/AleutianAI/AleutianQuill/services/quill/diff"
	"github.com/AleutianAI/AleutianQuill/services/quill/provenance"
	"github.com/AleutianAI/AleutianQuill/services/quill/transform"
	"github.com/AleutianAI/AleutianQuill/services/quill/workspace"
)

// Handlers contains the HTTP handlers for Quill.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleCreateBuffer handles POST /v1/quill/sessions/:session/buffers.
//
// Response:
//
//	201 Created: workspace.Detail
//	400 Bad Request: Validation error
//	409 Conflict: Buffer name already in use
func (h *Handlers) HandleCreateBuffer(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCreateBuffer")

	var req CreateBufferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	detail, err := h.svc.CreateBuffer(c.Request.Context(), c.Param("session"), req)
	if err != nil {
		respondError(c, logger, err, "create buffer")
		return
	}

	logger.Info("Buffer created", "session", detail.Session, "name", detail.Name,
		"chain_id", detail.ChainID)
	c.JSON(http.StatusCreated, detail)
}

// HandleListBuffers handles GET /v1/quill/sessions/:session/buffers.
func (h *Handlers) HandleListBuffers(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListBuffers")

	buffers, err := h.svc.ListBuffers(c.Param("session"))
	if err != nil {
		respondError(c, logger, err, "list buffers")
		return
	}

	c.JSON(http.StatusOK, ListBuffersResponse{Buffers: buffers, Count: len(buffers)})
}

// HandleGetBuffer handles GET /v1/quill/sessions/:session/buffers/:name.
func (h *Handlers) HandleGetBuffer(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetBuffer")

	detail, err := h.svc.GetBuffer(c.Param("session"), c.Param("name"))
	if err != nil {
		respondError(c, logger, err, "get buffer")
		return
	}

	c.JSON(http.StatusOK, detail)
}

// HandleSetContent handles PUT /v1/quill/sessions/:session/buffers/:name/content.
func (h *Handlers) HandleSetContent(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSetContent")

	var req SetContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	info, err := h.svc.SetContent(c.Param("session"), c.Param("name"), req.Content)
	if err != nil {
		respondError(c, logger, err, "set content")
		return
	}

	c.JSON(http.StatusOK, info)
}

// HandleAppend handles POST /v1/quill/sessions/:session/buffers/:name/append.
func (h *Handlers) HandleAppend(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAppend")

	var req AppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	info, err := h.svc.Append(c.Param("session"), c.Param("name"), req.Lines)
	if err != nil {
		respondError(c, logger, err, "append")
		return
	}

	c.JSON(http.StatusOK, info)
}

// HandleCommit handles POST /v1/quill/sessions/:session/buffers/:name/commit.
//
// Response:
//
//	200 OK: workspace.CommitReceipt
//	409 Conflict: Nothing to commit, or a concurrent update won
func (h *Handlers) HandleCommit(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCommit")

	var req CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	receipt, err := h.svc.Commit(c.Request.Context(), c.Param("session"), c.Param("name"), req)
	if err != nil {
		respondError(c, logger, err, "commit")
		return
	}

	logger.Info("Commit recorded", "version_id", receipt.Version.ID,
		"message", receipt.Version.Message)
	c.JSON(http.StatusOK, receipt)
}

// HandleHistory handles GET /v1/quill/sessions/:session/buffers/:name/history.
//
// Query Parameters:
//
//	limit: maximum number of entries, newest first (optional, default all)
func (h *Handlers) HandleHistory(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleHistory")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "limit must be a non-negative integer",
				Code:  "INVALID_REQUEST",
			})
			return
		}
		limit = parsed
	}

	ops, err := h.svc.History(c.Param("session"), c.Param("name"), limit)
	if err != nil {
		respondError(c, logger, err, "history")
		return
	}

	entries := make([]OperationEntry, 0, len(ops))
	for _, op := range ops {
		entries = append(entries, OperationEntry{
			ID:          op.ID,
			Type:        string(op.Type),
			Description: op.Description,
			Performer:   op.Performer,
			Timestamp:   op.Timestamp,
			BeforeHash:  op.BeforeHash,
			AfterHash:   op.AfterHash,
			DurationMs:  op.DurationMs,
			CostUSD:     op.CostUSD,
		})
	}

	c.JSON(http.StatusOK, HistoryResponse{Operations: entries, Count: len(entries)})
}

// HandleCreateBranch handles POST /v1/quill/sessions/:session/buffers/:name/branches.
func (h *Handlers) HandleCreateBranch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCreateBranch")

	var req BranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	info, err := h.svc.CreateBranch(c.Param("session"), c.Param("name"), req)
	if err != nil {
		respondError(c, logger, err, "create branch")
		return
	}

	logger.Info("Branch created", "branch", info.Name, "chain_id", info.ChainID)
	c.JSON(http.StatusCreated, info)
}

// HandleSwitchBranch handles POST /v1/quill/sessions/:session/buffers/:name/switch.
func (h *Handlers) HandleSwitchBranch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSwitchBranch")

	var req SwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	detail, err := h.svc.SwitchBranch(c.Param("session"), c.Param("name"), req.Branch)
	if err != nil {
		respondError(c, logger, err, "switch branch")
		return
	}

	c.JSON(http.StatusOK, detail)
}

// HandleRollback handles POST /v1/quill/sessions/:session/buffers/:name/rollback.
func (h *Handlers) HandleRollback(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRollback")

	var req RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	version, err := h.svc.Rollback(c.Request.Context(), c.Param("session"), c.Param("name"), req)
	if err != nil {
		respondError(c, logger, err, "rollback")
		return
	}

	logger.Info("Rollback applied", "version_id", version.ID, "steps", req.Steps)
	c.JSON(http.StatusOK, version)
}

// HandleDiff handles GET /v1/quill/sessions/:session/buffers/:name/diff.
//
// Query Parameters:
//
//	from: version id to compare from (optional, default "current")
//	to: version id to compare to (optional, default "current")
func (h *Handlers) HandleDiff(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDiff")

	resp, err := h.svc.Diff(c.Param("session"), c.Param("name"), c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, logger, err, "diff")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleMerge handles POST /v1/quill/sessions/:session/buffers/:name/merge.
//
// Response:
//
//	200 OK: workspace.MergeReceipt
//	409 Conflict: Overlapping changes, uncommitted work, or lost race
func (h *Handlers) HandleMerge(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleMerge")

	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	receipt, err := h.svc.Merge(c.Request.Context(), c.Param("session"), c.Param("name"), req)
	if err != nil {
		respondError(c, logger, err, "merge")
		return
	}

	logger.Info("Merge completed", "source", req.Source,
		"recorded", receipt.Recorded, "fast_forward", receipt.FastForward)
	c.JSON(http.StatusOK, receipt)
}

// HandleTransform handles POST /v1/quill/sessions/:session/buffers/:name/transform.
//
// Response:
//
//	200 OK: TransformResponse
//	400 Bad Request: Unknown operation type or missing parameter
//	502 Bad Gateway: Collaborator call failed
func (h *Handlers) HandleTransform(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleTransform")

	var req TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	resp, err := h.svc.Transform(c.Request.Context(), c.Param("session"), c.Param("name"), req)
	if err != nil {
		respondError(c, logger, err, "transform")
		return
	}

	logger.Info("Transform applied", "type", req.Type, "version_id", resp.Version.ID)
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/quill/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "quill",
		Version: ServiceVersion,
	})
}

// respondError maps the error taxonomy onto HTTP statuses.
//
// Not-found errors map to 404, state conflicts (including merge conflicts
// and lost CAS races) to 409, validation failures to 400, collaborator
// failures to 502, and integrity violations to 500: corruption is a
// server-side failure no client input can cause.
func respondError(c *gin.Context, logger *slog.Logger, err error, action string) {
	statusCode := http.StatusInternalServerError
	errCode := "INTERNAL_ERROR"

	switch {
	case errors.Is(err, workspace.ErrBufferNotFound),
		errors.Is(err, workspace.ErrVersionNotFound),
		errors.Is(err, buffer.ErrNotFound),
		errors.Is(err, provenance.ErrChainNotFound):
		statusCode = http.StatusNotFound
		errCode = "NOT_FOUND"

	case errors.Is(err, workspace.ErrBufferExists),
		errors.Is(err, provenance.ErrBranchExists):
		statusCode = http.StatusConflict
		errCode = "ALREADY_EXISTS"

	case errors.Is(err, workspace.ErrNothingToCommit):
		statusCode = http.StatusConflict
		errCode = "NOTHING_TO_COMMIT"

	case errors.Is(err, workspace.ErrUncommittedChanges):
		statusCode = http.StatusConflict
		errCode = "UNCOMMITTED_CHANGES"

	case errors.Is(err, workspace.ErrConcurrentUpdate):
		statusCode = http.StatusConflict
		errCode = "CONCURRENT_UPDATE"

	case errors.Is(err, diff.ErrConflict):
		statusCode = http.StatusConflict
		errCode = "MERGE_CONFLICT"

	case errors.Is(err, validation.ErrInvalidName),
		errors.Is(err, buffer.ErrInvalidFormat),
		errors.Is(err, workspace.ErrMergeSelf),
		errors.Is(err, transform.ErrUnknownOperation),
		errors.Is(err, transform.ErrMissingParameter),
		errors.Is(err, transform.ErrRootOperation),
		errors.Is(err, provenance.ErrInvalidOperation):
		statusCode = http.StatusBadRequest
		errCode = "VALIDATION_FAILED"

	case errors.Is(err, transform.ErrCollaborator):
		statusCode = http.StatusBadGateway
		errCode = "COLLABORATOR_FAILED"

	case errors.Is(err, transform.ErrNotConfigured):
		statusCode = http.StatusServiceUnavailable
		errCode = "COLLABORATOR_UNAVAILABLE"

	case errors.Is(err, provenance.ErrIntegrity):
		statusCode = http.StatusInternalServerError
		errCode = "INTEGRITY_VIOLATION"
	}

	if statusCode >= http.StatusInternalServerError {
		logger.Error("Request failed", "action", action, "error", err)
	} else {
		logger.Warn("Request rejected", "action", action, "error", err)
	}
	c.JSON(statusCode, ErrorResponse{
		Error: err.Error(),
		Code:  errCode,
	})
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
