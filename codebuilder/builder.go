// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package codebuilder implements the verified abstract interpreter
// that layers on top of the opcode emitter: it tracks the operand
// stack and local-variable types at each program point, resolves
// forward/backward branches, lays out structured control flow, merges
// frames at join points, tracks reachability, records branch-target
// frames, and finally emits a minimally-encoded StackMapTable
// (spec.md §4.4).
package codebuilder

import (
	"jvmgen/classfile"
	"jvmgen/opcode"
	"jvmgen/verify"
)

// BranchTarget is a (PC, frame snapshot) record, deduplicated by PC
// with merging of frames on collision (spec.md §3's "Branch target
// record").
type BranchTarget struct {
	PC          int
	Frame       *verify.Frame
	IsException bool
}

// Builder is the method-scoped Code Builder: the central component
// that drives the Emitter while tracking verification-type state
// (spec.md §4.4). Exactly one Builder is live per method being
// emitted (spec.md §5).
type Builder struct {
	CP  *classfile.Pool
	Buf *opcode.Buffer
	Em  *opcode.Emitter

	frame *verify.Frame
	alive bool

	maxLocals int
	blockBase []int // begin_block()/end_block() locals_count snapshots

	labels        []*Label
	pendingJumps  []PendingJump
	branchTargets []BranchTarget
	control       []controlEntry

	diag Diagnostics
}

// New creates a Builder for a method. For instance methods slot 0 is
// Object(thisClass) or UninitializedThis for constructors; subsequent
// slots take parameter verification types, with Top following any
// wide parameter (spec.md §4.4 "create").
func New(cp *classfile.Pool, isStatic, isConstructor bool, thisClass string, params []verify.Type) *Builder {
	buf := opcode.NewBuffer()
	b := &Builder{
		CP:    cp,
		Buf:   buf,
		Em:    opcode.NewEmitter(buf),
		frame: verify.NewFrame(0),
		alive: true,
	}

	if !isStatic {
		var this verify.Type
		if isConstructor {
			this = verify.TUninitThis()
		} else {
			this = verify.TObject("L" + thisClass + ";")
		}
		b.AllocateLocal(this)
	}
	for _, p := range params {
		b.AllocateLocal(p)
	}
	return b
}

// CurrentPC returns the method code buffer size (spec.md §4.4).
func (b *Builder) CurrentPC() int { return b.Buf.PC() }

// Alive reports whether the current program point is reachable.
func (b *Builder) Alive() bool { return b.alive }

// SetAlive forces reachability, used when a label is placed after
// being reached via a saved frame (spec.md §4.4 "Reachability").
func (b *Builder) SetAlive(v bool) { b.alive = v }

// Frame exposes the current frame for inspection (e.g. by invoke.go's
// uninitialized-reference substitution).
func (b *Builder) Frame() *verify.Frame { return b.frame }

// MaxLocals returns the high-water local slot count.
func (b *Builder) MaxLocals() int { return b.maxLocals }

// MaxStack returns the high-water operand-stack depth.
func (b *Builder) MaxStack() int { return b.frame.MaxStack }

// Push pushes t onto the operand stack. In dead code the push still
// happens (spec.md §4.4: "In dead code, operations are permitted but
// counted as diagnostics") but is counted.
func (b *Builder) Push(t verify.Type) {
	if !b.alive {
		b.diag.DeadCodeOps++
	}
	b.frame.Push(t)
}

// Pop pops the top verification type, counting an underflow
// diagnostic (non-fatal) when the stack was already empty.
func (b *Builder) Pop() verify.Type {
	t, ok := b.frame.Pop()
	if !ok {
		b.diag.StackUnderflows++
	}
	return t
}

// AllocateLocal reserves the next free local slot(s) for t and returns
// the base index (spec.md §4.4 "allocate_local").
func (b *Builder) AllocateLocal(t verify.Type) int {
	idx := len(b.frame.Locals)
	b.frame.SetLocal(idx, t)
	width := verify.Slots(t)
	if idx+width > b.maxLocals {
		b.maxLocals = idx + width
	}
	return idx
}

// BeginBlock snapshots the current locals_count, to be restored by the
// matching EndBlock (spec.md §4.4).
func (b *Builder) BeginBlock() {
	b.blockBase = append(b.blockBase, len(b.frame.Locals))
}

// EndBlock truncates locals so freed slots can be reused, without
// shrinking MaxLocals.
func (b *Builder) EndBlock() {
	n := len(b.blockBase)
	if n == 0 {
		return
	}
	base := b.blockBase[n-1]
	b.blockBase = b.blockBase[:n-1]
	if base < len(b.frame.Locals) {
		b.frame.Locals = b.frame.Locals[:base]
	}
}

// RecordBranchTarget appends or merges (pc, frame) into the
// branch-target list, deduplicated by PC (spec.md §4.4).
func (b *Builder) RecordBranchTarget(pc int, frame *verify.Frame, isException bool) {
	for i := range b.branchTargets {
		if b.branchTargets[i].PC == pc {
			b.branchTargets[i].Frame.Merge(frame)
			return
		}
	}
	b.branchTargets = append(b.branchTargets, BranchTarget{PC: pc, Frame: frame.Clone(), IsException: isException})
}

// RecordExceptionHandler records pc as an exception-handler entry
// whose incoming frame is the handler's initial-method locals plus a
// single-entry stack holding the exception reference (spec.md §4.4).
func (b *Builder) RecordExceptionHandler(pc int, initialLocals []verify.Type, exceptionDescriptor string) {
	f := &verify.Frame{Locals: append([]verify.Type{}, initialLocals...)}
	f.Push(verify.TObject(exceptionDescriptor))
	b.RecordBranchTarget(pc, f, true)
}

// BranchTargets returns the recorded, not-yet-sorted branch-target
// list for the StackMapTable encoder.
func (b *Builder) BranchTargets() []BranchTarget { return b.branchTargets }

// Diagnostics returns the accumulated non-fatal diagnostic counters.
func (b *Builder) Diagnostics() Diagnostics { return b.diag }
