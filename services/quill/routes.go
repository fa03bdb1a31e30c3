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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all Quill routes with the router.
//
// Description:
//
//	Registers all /v1/quill/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Buffer Endpoints:
//
//	GET  /v1/quill/sessions/:session/buffers - List working buffers
//	POST /v1/quill/sessions/:session/buffers - Create a working buffer
//	GET  /v1/quill/sessions/:session/buffers/:name - Get buffer state
//	PUT  /v1/quill/sessions/:session/buffers/:name/content - Replace working text
//	POST /v1/quill/sessions/:session/buffers/:name/append - Append lines
//
// Version Control Endpoints:
//
//	POST /v1/quill/sessions/:session/buffers/:name/commit - Commit pending text
//	GET  /v1/quill/sessions/:session/buffers/:name/history - Operation history
//	POST /v1/quill/sessions/:session/buffers/:name/branches - Create a branch
//	POST /v1/quill/sessions/:session/buffers/:name/switch - Check out a branch
//	POST /v1/quill/sessions/:session/buffers/:name/rollback - Roll back operations
//	GET  /v1/quill/sessions/:session/buffers/:name/diff - Compare versions
//	POST /v1/quill/sessions/:session/buffers/:name/merge - Merge a branch
//
// Transform Endpoints:
//
//	POST /v1/quill/sessions/:session/buffers/:name/transform - Run an operation
//
// Health Endpoints:
//
//	GET /v1/quill/health - Service health check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	quill := rg.Group("/quill")

	buffers := quill.Group("/sessions/:session/buffers")
	{
		buffers.GET("", handlers.HandleListBuffers)
		buffers.POST("", handlers.HandleCreateBuffer)
		buffers.GET("/:name", handlers.HandleGetBuffer)
		buffers.PUT("/:name/content", handlers.HandleSetContent)
		buffers.POST("/:name/append", handlers.HandleAppend)
		buffers.POST("/:name/commit", handlers.HandleCommit)
		buffers.GET("/:name/history", handlers.HandleHistory)
		buffers.POST("/:name/branches", handlers.HandleCreateBranch)
		buffers.POST("/:name/switch", handlers.HandleSwitchBranch)
		buffers.POST("/:name/rollback", handlers.HandleRollback)
		buffers.GET("/:name/diff", handlers.HandleDiff)
		buffers.POST("/:name/merge", handlers.HandleMerge)
		buffers.POST("/:name/transform", handlers.HandleTransform)
	}

	quill.GET("/health", handlers.HandleHealth)
}
