// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codebuilder

import (
	"fmt"

	"jvmgen/verify"
)

// noPC is the sentinel "not yet resolved" PC (spec.md §3 "Label").
const noPC = -1

// JumpSource is a diagnostic record of a jump site, used only to
// produce readable errors when frame merges disagree (spec.md §3).
type JumpSource struct {
	PC      int
	Frame   *verify.Frame
	Context string // "goto", "break", "continue", "if", "loop", "unknown"
}

// Label is a named deferred PC with an attached frame and a list of
// in-edges (spec.md §3, §GLOSSARY). Labels are allocated individually
// (as *Label) rather than stored inline in a growable slice, so that
// pointer identity survives slice growth — matching spec.md §9's
// "Cyclic frame sharing" note, adapted to Go: the garbage collector
// makes an arena-of-indices unnecessary, so a plain pointer suffices.
type Label struct {
	ID int

	PC      int
	Placed  bool
	Name    string

	LoopHeader   bool
	JumpTarget   bool
	JumpOnly     bool
	FrameSaved   bool
	FrameRecorded bool

	Frame *verify.Frame

	Sources []JumpSource
}

// PendingJump is a branch instruction whose offset was written as a
// placeholder and must be patched once Label is placed (spec.md §3).
type PendingJump struct {
	PC       int // the opcode byte's PC
	Label    *Label
	Wide     bool // true if this was already emitted as goto_w (u4 operand)
}

// CreateLabel allocates a label and records it for later inspection
// (dumps, diagnostics).
func (b *Builder) CreateLabel(name string) *Label {
	l := &Label{ID: len(b.labels), PC: noPC, Name: name}
	b.labels = append(b.labels, l)
	return l
}

// Labels returns every label created on this Builder, for diagnostics.
func (b *Builder) Labels() []*Label { return b.labels }

// PlaceLabel implements spec.md §4.4's 6-case place_label rule.
func (b *Builder) PlaceLabel(l *Label) {
	l.PC = b.CurrentPC()
	l.Placed = true

	switch {
	case !b.alive && l.FrameSaved:
		// Case 2: dead, has a saved frame -> restore it and become alive.
		b.frame.RestoreSafe(l.Frame)
		b.alive = true
		if l.JumpTarget {
			b.RecordBranchTarget(l.PC, l.Frame, false)
			l.FrameRecorded = true
		}
	case b.alive && l.FrameSaved:
		// Case 3: alive, has a saved frame -> merge current into it.
		l.Frame.Merge(b.frame)
		if l.FrameRecorded {
			b.updateBranchTarget(l.PC, l.Frame)
		}
	case b.alive && !l.FrameSaved:
		// Case 4: alive, no saved frame yet -> copy current frame to label.
		l.Frame = b.frame.Clone()
		l.FrameSaved = true
	case !b.alive && !l.FrameSaved:
		// Case 5: dead, no saved frame (goto into dead code) -> use
		// current frame as-is, save it, become alive.
		l.Frame = b.frame.Clone()
		l.FrameSaved = true
		b.RecordBranchTarget(l.PC, l.Frame, false)
		l.FrameRecorded = true
		b.alive = true
	}

	// Case 6: record a branch target if not already recorded and L is
	// a jump target (covers the case == alive&&frameSaved path, where
	// case 3 already updates an existing record but a first-time
	// target still needs recording).
	if l.JumpTarget && !l.FrameRecorded {
		b.RecordBranchTarget(l.PC, l.Frame, false)
		l.FrameRecorded = true
	}
}

func (b *Builder) updateBranchTarget(pc int, frame *verify.Frame) {
	for i := range b.branchTargets {
		if b.branchTargets[i].PC == pc {
			b.branchTargets[i].Frame = frame.Clone()
			return
		}
	}
}

// saveOrMergeInto copies the current frame into l on first visit, or
// merges on subsequent visits (spec.md §4.4 "Frame saving to labels").
// When l is already placed (a backward branch), the merge updates l's
// existing saved frame and re-records the branch target so the
// minimum locals count across all in-edges is preserved.
func (b *Builder) saveOrMergeInto(l *Label, ctx string) {
	l.Sources = append(l.Sources, JumpSource{PC: b.CurrentPC(), Frame: b.frame.Clone(), Context: ctx})
	if !l.FrameSaved {
		l.Frame = b.frame.Clone()
		l.FrameSaved = true
		return
	}
	l.Frame.Merge(b.frame)
	if l.Placed {
		b.RecordBranchTarget(l.PC, l.Frame, false)
		l.FrameRecorded = true
	}
}

// Jump emits an unconditional `goto` to target. Skipped (a no-op) in
// dead code; saves/merges the current frame into target, emits a
// placeholder offset if target isn't placed yet (queuing a pending
// patch) or the real offset otherwise, and marks the builder dead
// (spec.md §4.4 "jump").
func (b *Builder) Jump(target *Label) {
	if !b.alive {
		return
	}
	b.saveOrMergeInto(target, "goto")
	pc, wide := b.Em.Goto(b.CurrentPC(), target.PC)
	if !wide {
		b.pendingJumps = append(b.pendingJumps, PendingJump{PC: pc, Label: target})
	}
	b.alive = false
}

// JumpIf emits a conditional branch to target using opc (one of the
// If*/IntCmp*/ACmp* concrete opcodes), remaining alive afterward. The
// target frame is saved/merged after the caller has already popped the
// branch's operands (spec.md §4.4 "jump_if_*").
func (b *Builder) JumpIf(opc byte, target *Label, ctx string) {
	if !b.alive {
		return
	}
	b.saveOrMergeInto(target, ctx)
	pc := b.Em.CondBranch(opc)
	b.pendingJumps = append(b.pendingJumps, PendingJump{PC: pc, Label: target})
}

// ResolvePendingJumps patches every queued pending jump once the
// method is complete (spec.md §4.4 "Jump resolution"). Returns an
// error listing the first unresolved/out-of-range jump, if any.
func (b *Builder) ResolvePendingJumps() error {
	for _, pj := range b.pendingJumps {
		if !pj.Label.Placed {
			return &unresolvedJumpError{pc: pj.PC, label: pj.Label.Name}
		}
		offset := int32(pj.Label.PC - pj.PC)
		if err := b.Em.PatchBranch(pj.PC, offset); err != nil {
			return err
		}
	}
	return nil
}

type unresolvedJumpError struct {
	pc    int
	label string
}

func (e *unresolvedJumpError) Error() string {
	return fmt.Sprintf("codebuilder: unresolved jump at pc %d to label %q", e.pc, e.label)
}
