// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verify

// Frame is the combined operand-stack and local-variable type state at
// a program point (spec.md §3, §4.3). Locals is indexed by slot; a
// wide type at index i implies Top at i+1. Stack is positionally
// indexed with the top of stack at the highest index.
type Frame struct {
	Locals []Type
	Stack  []Type

	MaxStack int
}

// NewFrame returns an empty frame with nLocals slots, all Top.
func NewFrame(nLocals int) *Frame {
	locals := make([]Type, nLocals)
	for i := range locals {
		locals[i] = TTop()
	}
	return &Frame{Locals: locals}
}

// Clone deep-copies f.
func (f *Frame) Clone() *Frame {
	locals := make([]Type, len(f.Locals))
	copy(locals, f.Locals)
	stack := make([]Type, len(f.Stack))
	copy(stack, f.Stack)
	return &Frame{Locals: locals, Stack: stack, MaxStack: f.MaxStack}
}

// Push appends t to the stack, plus a trailing Top if t is wide, and
// updates MaxStack. It performs no overflow check and never refuses a
// push.
func (f *Frame) Push(t Type) {
	f.Stack = append(f.Stack, t)
	if Slots(t) == 2 {
		f.Stack = append(f.Stack, TTop())
	}
	if len(f.Stack) > f.MaxStack {
		f.MaxStack = len(f.Stack)
	}
}

// Pop removes and returns the top verification type, handling a wide
// type's trailing Top slot. Returns Top on underflow (spec.md §4.4's
// "pop returns Top on underflow, a diagnostic, not fatal"); ok reports
// whether the stack actually had an entry to pop.
func (f *Frame) Pop() (t Type, ok bool) {
	if len(f.Stack) == 0 {
		return TTop(), false
	}
	top := f.Stack[len(f.Stack)-1]
	if top.Tag == Top && len(f.Stack) >= 2 {
		under := f.Stack[len(f.Stack)-2]
		if Slots(under) == 2 {
			f.Stack = f.Stack[:len(f.Stack)-2]
			return under, true
		}
	}
	f.Stack = f.Stack[:len(f.Stack)-1]
	return top, true
}

// SetLocal stores t at slot i, placing Top at i+1 if t is wide.
func (f *Frame) SetLocal(i int, t Type) {
	for len(f.Locals) < i+Slots(t) {
		f.Locals = append(f.Locals, TTop())
	}
	f.Locals[i] = t
	if Slots(t) == 2 {
		f.Locals[i+1] = TTop()
	}
}

// entryCount counts verification_type_info entries in vs under the
// wide-type-collapsing rule of spec.md §4.5: a Long/Double counts as
// one entry despite occupying two slots; a standalone Top counts as
// one entry (it is not assumed to be the tail of a preceding wide
// type unless the preceding entry actually was wide).
func entryCount(vs []Type) int {
	n := 0
	i := 0
	for i < len(vs) {
		n++
		if Slots(vs[i]) == 2 {
			i += 2
		} else {
			i++
		}
	}
	return n
}

// Entries returns vs collapsed to one verification_type_info per
// logical entry (dropping the implicit Top that follows a Long or
// Double), in order.
func Entries(vs []Type) []Type {
	out := make([]Type, 0, entryCount(vs))
	i := 0
	for i < len(vs) {
		out = append(out, vs[i])
		if Slots(vs[i]) == 2 {
			i += 2
		} else {
			i++
		}
	}
	return out
}

// Merge merges src into dest in place (spec.md §4.3): locals are
// truncated to min(dest, src) count and merged pointwise, with
// wide-slot consistency (if either side is wide, both sides must
// carry the identical wide type to preserve that slot — otherwise the
// slot and its follower both degrade to Top); a trailing run of
// meaningless Top locals is trimmed from the result. The stack is
// reduced to the smaller of the two depths (a depth mismatch is a
// caller-reported diagnostic, not handled here) and merged pointwise.
func (dest *Frame) Merge(src *Frame) {
	n := len(dest.Locals)
	if len(src.Locals) < n {
		n = len(src.Locals)
	}
	merged := make([]Type, n)
	i := 0
	for i < n {
		dt, st := dest.Locals[i], src.Locals[i]
		dWide, sWide := Slots(dt) == 2, Slots(st) == 2
		switch {
		case dWide && sWide && Equal(dt, st):
			merged[i] = dt
			if i+1 < n {
				merged[i+1] = TTop()
			}
			i += 2
		case dWide || sWide:
			merged[i] = TTop()
			if i+1 < n {
				merged[i+1] = TTop()
			}
			i += 2
		default:
			merged[i] = Merge(dt, st)
			i++
		}
	}
	// Trim a trailing run of meaningless Top slots.
	end := len(merged)
	for end > 0 && merged[end-1].Tag == Top {
		end--
	}
	dest.Locals = merged[:end]

	depth := len(dest.Stack)
	if len(src.Stack) < depth {
		depth = len(src.Stack)
	}
	stack := make([]Type, depth)
	for i := 0; i < depth; i++ {
		stack[i] = Merge(dest.Stack[i], src.Stack[i])
	}
	dest.Stack = stack
}

// RestoreSafe deep-copies saved over f and folds saved's stack depth
// into f.MaxStack (spec.md §4.3).
func (f *Frame) RestoreSafe(saved *Frame) {
	clone := saved.Clone()
	if clone.MaxStack < f.MaxStack {
		clone.MaxStack = f.MaxStack
	}
	*f = *clone
}
