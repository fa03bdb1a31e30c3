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

import "errors"

// Sentinel errors for the transform package.
var (
	// ErrUnknownOperation indicates a request type outside the closed set.
	ErrUnknownOperation = errors.New("unknown operation type")

	// ErrMissingParameter indicates a required transform parameter is absent.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrCollaborator indicates an external collaborator call failed or
	// timed out. The chain is left unchanged; no partial operation is
	// ever recorded.
	ErrCollaborator = errors.New("collaborator call failed")

	// ErrNotConfigured indicates the collaborator needed by the requested
	// operation was not wired at startup.
	ErrNotConfigured = errors.New("collaborator not configured")

	// ErrRootOperation indicates a chain-opening operation (load/create)
	// was dispatched against an existing chain.
	ErrRootOperation = errors.New("operation opens a new chain")
)
