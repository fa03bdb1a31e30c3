// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diff computes structural deltas between two buffer contents.
//
// Comparison is line-based. Counts are deterministic and, for pure
// append/removal cases, independent of argument ordering conventions:
// appending N lines always reports added == N, removed == 0.
package diff

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ErrConflict indicates two change sets touch overlapping line spans.
var ErrConflict = errors.New("merge conflict: overlapping changes")

// Delta summarizes what changed between two versions.
type Delta struct {
	// Added is the number of lines present only in the newer version.
	Added int `json:"added"`

	// Removed is the number of lines present only in the older version.
	Removed int `json:"removed"`

	// Changed is the number of lines modified in place.
	Changed int `json:"changed"`
}

// Empty reports whether the delta represents no change.
func (d Delta) Empty() bool {
	return d.Added == 0 && d.Removed == 0 && d.Changed == 0
}

// Hash returns a deterministic digest of the delta for operation records.
func (d Delta) Hash() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("a%d r%d c%d", d.Added, d.Removed, d.Changed)))
	return hex.EncodeToString(sum[:])
}

// splitLines splits text into separator-retaining lines so that joining
// the slice reconstructs the text exactly.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// compareLines splits text for delta counting. Separators are stripped
// so that gaining or losing a trailing newline does not turn a pure
// append into a changed line.
func compareLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// Compute returns the line delta from an older to a newer text.
//
// # Description
//
// Uses difflib's sequence matcher. Replace spans count min(len) lines as
// changed and the surplus as added or removed, so a one-line edit is one
// changed line, not one added plus one removed. Appending N lines always
// reports added == N, removed == 0.
//
// # Inputs
//
//   - older: The earlier version's text.
//   - newer: The later version's text.
//
// # Outputs
//
//   - Delta: Added/removed/changed line counts.
func Compute(older, newer string) Delta {
	m := difflib.NewMatcher(compareLines(older), compareLines(newer))

	var d Delta
	for _, op := range m.GetOpCodes() {
		oldLen := op.I2 - op.I1
		newLen := op.J2 - op.J1
		switch op.Tag {
		case 'i':
			d.Added += newLen
		case 'd':
			d.Removed += oldLen
		case 'r':
			common := min(oldLen, newLen)
			d.Changed += common
			d.Added += newLen - common
			d.Removed += oldLen - common
		}
	}
	return d
}

// edit is one contiguous change to the base text, in base line coordinates.
type edit struct {
	start, end  int // half-open base line span the edit replaces
	replacement []string
}

// editsAgainst extracts the edits that turn base into derived.
func editsAgainst(base, derived []string) []edit {
	m := difflib.NewMatcher(base, derived)

	var edits []edit
	for _, op := range m.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		edits = append(edits, edit{
			start:       op.I1,
			end:         op.I2,
			replacement: derived[op.J1:op.J2],
		})
	}
	return edits
}

// overlaps reports whether two base-coordinate spans intersect. Pure
// insertions (zero-width spans) at the same point also conflict: their
// relative order is undefined.
func overlaps(a, b edit) bool {
	if a.start == a.end && b.start == b.end {
		return a.start == b.start
	}
	return a.start < b.end && b.start < a.end
}

// Merge3 performs a three-way line merge of two texts derived from base.
//
// # Description
//
// Computes the edits base->ours and base->theirs. If any pair of edits
// touches overlapping base spans the merge fails with ErrConflict and no
// partial result. Otherwise both edit sets are applied to base in line
// order.
//
// # Inputs
//
//   - base: The fork-point content both sides derived from.
//   - ours: The target side's current content.
//   - theirs: The source side's current content.
//
// # Outputs
//
//   - string: The merged content.
//   - error: ErrConflict when changes overlap.
func Merge3(base, ours, theirs string) (string, error) {
	if ours == theirs || theirs == base {
		return ours, nil
	}
	if ours == base {
		return theirs, nil
	}

	baseLines := splitLines(base)
	ourEdits := editsAgainst(baseLines, splitLines(ours))
	theirEdits := editsAgainst(baseLines, splitLines(theirs))

	for _, a := range ourEdits {
		for _, b := range theirEdits {
			if overlaps(a, b) {
				return "", fmt.Errorf("%w: base lines %d-%d", ErrConflict, a.start, a.end)
			}
		}
	}

	// Apply both edit sets back-to-front so earlier spans keep their
	// coordinates. Wider spans go first at equal starts so an insertion at
	// a replaced span's boundary lands before the replacement.
	merged := append([]string(nil), baseLines...)
	all := append(append([]edit(nil), ourEdits...), theirEdits...)
	sort.Slice(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start > all[j].start
		}
		return all[i].end > all[j].end
	})
	for _, e := range all {
		tail := append([]string(nil), merged[e.end:]...)
		merged = append(merged[:e.start], append(e.replacement, tail...)...)
	}
	return strings.Join(merged, ""), nil
}
