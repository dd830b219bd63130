// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codebuilder

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// Diagnostics accumulates the non-fatal ("soft verifier warning")
// counters of spec.md §7: stack underflow, stack mismatch at a merge,
// dead-code operations, and assignment-incompatible field stores.
// These are counted and reported, never fatal.
type Diagnostics struct {
	StackUnderflows int
	StackMismatches int
	DeadCodeOps     int
	TypeMismatches  int
}

// Summary renders the diagnostic counts for end-of-compilation
// reporting.
func (d Diagnostics) Summary() string {
	return fmt.Sprintf("underflows=%d mismatches=%d dead-code=%d type-mismatches=%d",
		d.StackUnderflows, d.StackMismatches, d.DeadCodeOps, d.TypeMismatches)
}

// Empty reports whether no diagnostics were recorded.
func (d Diagnostics) Empty() bool {
	return d.StackUnderflows == 0 && d.StackMismatches == 0 && d.DeadCodeOps == 0 && d.TypeMismatches == 0
}

// LabelDump is one row of DumpLabels' output: name, PC, placed/target
// flags, and the locals count recorded by each in-edge (spec.md §4.4
// "Diagnostics").
type LabelDump struct {
	Name           string
	PC             int
	Placed         bool
	JumpTarget     bool
	LoopHeader     bool
	SourceLocals   []int
}

// DumpLabels returns a snapshot of every label's bookkeeping state as
// LabelDump values (not the hot emission path); DumpLabelsString
// formats the same snapshot with go-spew.
func (b *Builder) DumpLabels() []LabelDump {
	out := make([]LabelDump, len(b.labels))
	for i, l := range b.labels {
		sourceLocals := make([]int, len(l.Sources))
		for j, s := range l.Sources {
			sourceLocals[j] = len(s.Frame.Locals)
		}
		out[i] = LabelDump{
			Name: l.Name, PC: l.PC, Placed: l.Placed,
			JumpTarget: l.JumpTarget, LoopHeader: l.LoopHeader,
			SourceLocals: sourceLocals,
		}
	}
	return out
}

// DumpLabelsString renders DumpLabels with go-spew, for verbose
// diagnostic output.
func (b *Builder) DumpLabelsString() string {
	return spew.Sdump(b.DumpLabels())
}

// FrameIssue names a label whose in-edges disagree on locals count.
type FrameIssue struct {
	Label        string
	LocalsCounts []int
}

// DiagnoseFrameIssues flags every label whose jump sources recorded
// differing locals counts, a sign the structured-control-flow walk
// produced inconsistent scoping (spec.md §4.4's "frame-issues
// detector").
func (b *Builder) DiagnoseFrameIssues() []FrameIssue {
	var issues []FrameIssue
	for _, l := range b.labels {
		if len(l.Sources) < 2 {
			continue
		}
		counts := make([]int, len(l.Sources))
		for i, s := range l.Sources {
			counts[i] = len(s.Frame.Locals)
		}
		first := counts[0]
		mismatched := false
		for _, c := range counts[1:] {
			if c != first {
				mismatched = true
				break
			}
		}
		if mismatched {
			issues = append(issues, FrameIssue{Label: l.Name, LocalsCounts: counts})
		}
	}
	return issues
}
