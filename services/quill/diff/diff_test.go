// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diff

import (
	"errors"
	"testing"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		older string
		newer string
		want  Delta
	}{
		{
			name:  "identical",
			older: "line one\nline two",
			newer: "line one\nline two",
			want:  Delta{},
		},
		{
			name:  "both empty",
			older: "",
			newer: "",
			want:  Delta{},
		},
		{
			name:  "append one line",
			older: "first line",
			newer: "first line\nsecond line",
			want:  Delta{Added: 1},
		},
		{
			name:  "append two lines",
			older: "first line",
			newer: "first line\nsecond\nthird",
			want:  Delta{Added: 2},
		},
		{
			name:  "remove a line",
			older: "first\nsecond\nthird",
			newer: "first\nthird",
			want:  Delta{Removed: 1},
		},
		{
			name:  "change in place",
			older: "first\nsecond\nthird",
			newer: "first\nrevised\nthird",
			want:  Delta{Changed: 1},
		},
		{
			name:  "replace one with two",
			older: "first\nsecond",
			newer: "first\nrevised\nextra",
			want:  Delta{Added: 1, Changed: 1},
		},
		{
			name:  "from empty",
			older: "",
			newer: "a\nb\nc",
			want:  Delta{Added: 3},
		},
		{
			name:  "to empty",
			older: "a\nb",
			newer: "",
			want:  Delta{Removed: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.older, tt.newer); got != tt.want {
				t.Errorf("Compute() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDelta_Empty(t *testing.T) {
	if !(Delta{}).Empty() {
		t.Error("zero delta must be empty")
	}
	if (Delta{Changed: 1}).Empty() {
		t.Error("non-zero delta must not be empty")
	}
}

func TestDelta_Hash(t *testing.T) {
	a := Delta{Added: 2, Removed: 1}.Hash()
	b := Delta{Added: 2, Removed: 1}.Hash()
	c := Delta{Added: 1, Removed: 2}.Hash()
	if a != b {
		t.Error("Hash() not deterministic")
	}
	if a == c {
		t.Error("distinct deltas must hash differently")
	}
	if len(a) != 64 {
		t.Errorf("Hash() length = %d, want 64", len(a))
	}
}

func TestMerge3_TrivialCases(t *testing.T) {
	base := "a\nb\nc"

	tests := []struct {
		name   string
		ours   string
		theirs string
		want   string
	}{
		{"neither changed", base, base, base},
		{"only ours changed", "a\nB\nc", base, "a\nB\nc"},
		{"only theirs changed", base, "a\nB\nc", "a\nB\nc"},
		{"both made same change", "a\nB\nc", "a\nB\nc", "a\nB\nc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge3(base, tt.ours, tt.theirs)
			if err != nil {
				t.Fatalf("Merge3() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Merge3() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMerge3_DisjointChanges(t *testing.T) {
	base := "one\ntwo\nthree\nfour\nfive\n"
	ours := "ONE\ntwo\nthree\nfour\nfive\n"    // edits line 1
	theirs := "one\ntwo\nthree\nfour\nFIVE\n" // edits line 5

	got, err := Merge3(base, ours, theirs)
	if err != nil {
		t.Fatalf("Merge3() unexpected error: %v", err)
	}
	want := "ONE\ntwo\nthree\nfour\nFIVE\n"
	if got != want {
		t.Errorf("Merge3() = %q, want %q", got, want)
	}
}

func TestMerge3_AppendPlusEdit(t *testing.T) {
	base := "alpha\nbeta\n"
	ours := "alpha\nbeta\ngamma\n" // appends
	theirs := "ALPHA\nbeta\n"      // edits line 1

	got, err := Merge3(base, ours, theirs)
	if err != nil {
		t.Fatalf("Merge3() unexpected error: %v", err)
	}
	want := "ALPHA\nbeta\ngamma\n"
	if got != want {
		t.Errorf("Merge3() = %q, want %q", got, want)
	}
}

func TestMerge3_Conflicts(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		ours   string
		theirs string
	}{
		{
			name:   "same line edited differently",
			base:   "a\nb\nc\n",
			ours:   "a\nOURS\nc\n",
			theirs: "a\nTHEIRS\nc\n",
		},
		{
			name:   "insertions at same point",
			base:   "a\nb\n",
			ours:   "a\nX\nb\n",
			theirs: "a\nY\nb\n",
		},
		{
			name:   "delete vs edit",
			base:   "a\nb\nc\n",
			ours:   "a\nc\n",
			theirs: "a\nB\nc\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Merge3(tt.base, tt.ours, tt.theirs); !errors.Is(err, ErrConflict) {
				t.Errorf("Merge3() error = %v, want ErrConflict", err)
			}
		})
	}
}

func TestMerge3_RoundTripsSeparators(t *testing.T) {
	// No trailing newline on the last line must survive the merge.
	base := "head\nmiddle\ntail"
	ours := "HEAD\nmiddle\ntail"
	theirs := "head\nmiddle\nTAIL"

	got, err := Merge3(base, ours, theirs)
	if err != nil {
		t.Fatalf("Merge3() unexpected error: %v", err)
	}
	if got != "HEAD\nmiddle\nTAIL" {
		t.Errorf("Merge3() = %q, want %q", got, "HEAD\nmiddle\nTAIL")
	}
}
