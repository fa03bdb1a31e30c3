// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package buffer

import "errors"

// Sentinel errors for the buffer package.
var (
	// ErrNotFound indicates the requested buffer id is unknown.
	ErrNotFound = errors.New("buffer not found")

	// ErrAlreadyExists indicates an insert collided with an existing id.
	// Buffers are write-once; updates must be new buffers.
	ErrAlreadyExists = errors.New("buffer already exists")

	// ErrInvalidFormat indicates a format outside the closed set.
	ErrInvalidFormat = errors.New("invalid buffer format")

	// ErrInvalidState indicates a backward lifecycle transition.
	ErrInvalidState = errors.New("invalid lifecycle transition")
)
