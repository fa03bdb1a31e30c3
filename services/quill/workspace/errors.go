// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workspace

import "errors"

var (
	// ErrBufferNotFound indicates no working buffer exists under the
	// requested session and name.
	ErrBufferNotFound = errors.New("working buffer not found")

	// ErrBufferExists indicates the session already has a working buffer
	// with that name.
	ErrBufferExists = errors.New("working buffer already exists")

	// ErrVersionNotFound indicates a rollback or diff referenced a point
	// before the start of the lineage, or an unknown version id.
	ErrVersionNotFound = errors.New("version not found")

	// ErrNothingToCommit indicates a commit was requested on a clean
	// working buffer.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrUncommittedChanges indicates a switch or merge was requested
	// while the working buffer holds uncommitted changes.
	ErrUncommittedChanges = errors.New("working buffer has uncommitted changes")

	// ErrConcurrentUpdate indicates the working-buffer pointer moved
	// between read and update. The caller lost the race and should
	// re-read and retry.
	ErrConcurrentUpdate = errors.New("working buffer was modified concurrently")

	// ErrMergeSelf indicates a merge named the branch the working buffer
	// is already on.
	ErrMergeSelf = errors.New("cannot merge a branch into itself")
)
