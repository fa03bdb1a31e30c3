// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package provenance

import "errors"

// Sentinel errors for the provenance package.
var (
	// ErrChainNotFound indicates the requested chain id is unknown.
	ErrChainNotFound = errors.New("provenance chain not found")

	// ErrInvalidOperation indicates an operation outside the closed
	// enumeration or one missing required fields.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrBranchExists indicates a branch name collision under one parent.
	ErrBranchExists = errors.New("branch already exists")

	// ErrIntegrity indicates the hash-chain continuity invariant failed.
	// Signals corruption or tampering; never repaired silently.
	ErrIntegrity = errors.New("hash-chain integrity violation")
)
